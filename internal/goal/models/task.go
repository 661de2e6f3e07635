package models

import (
	"time"

	id "stride/pkg/domain"
	dErrors "stride/pkg/domain-errors"
)

// Priority orders tasks within the worklist. Lower rank sorts first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority to its sort rank (high=0, medium=1, low=2).
// Unknown values rank as medium so malformed data degrades gracefully.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Complexity is an optional effort hint carried into the sort order.
type Complexity string

const (
	ComplexityHigh   Complexity = "high"
	ComplexityMedium Complexity = "medium"
	ComplexityLow    Complexity = "low"
)

// Rank maps a complexity to its sort rank (high=0, medium=1, low=2).
// The empty value defaults to medium.
func (c Complexity) Rank() int {
	switch c {
	case ComplexityHigh:
		return 0
	case ComplexityLow:
		return 2
	default:
		return 1
	}
}

// TaskStatus is a display-level lifecycle label. The Completed flag, not the
// status string, drives scheduling decisions.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// DependencyKind describes how a dependency relates two tasks.
type DependencyKind string

const (
	// DependencyBlocks marks the referenced task as blocking this one.
	DependencyBlocks DependencyKind = "blocks"
	// DependencyRequires marks the referenced task as a prerequisite.
	DependencyRequires DependencyKind = "requires"
)

// DependencyRef points at another task this task waits on.
// References are assumed acyclic; cycle detection is not performed here.
type DependencyRef struct {
	TaskID id.TaskID      `json:"task_id"`
	Kind   DependencyKind `json:"kind"`
}

// Task is a one-off unit of work under a goal.
//
// Invariants:
//   - Title is non-empty
//   - MilestoneID, when set, should reference a milestone on the same goal
//     (dangling references are tolerated and treated as unassigned)
type Task struct {
	ID          id.TaskID       `json:"id"`
	Title       string          `json:"title"`
	Completed   bool            `json:"completed"`
	Priority    Priority        `json:"priority"`
	Status      TaskStatus      `json:"status"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	MilestoneID *id.MilestoneID `json:"milestone_id,omitempty"`
	DependsOn   []DependencyRef `json:"depends_on,omitempty"`
	Complexity  Complexity      `json:"complexity,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewTask constructs a pending task, validating invariants.
func NewTask(taskID id.TaskID, title string, priority Priority, now time.Time) (*Task, error) {
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "task title cannot be empty")
	}
	if priority == "" {
		priority = PriorityMedium
	}
	return &Task{
		ID:        taskID,
		Title:     title,
		Priority:  priority,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ApplyToggle flips the completed flag and keeps the status label in step.
// Notes and every other field are left untouched.
func (t *Task) ApplyToggle(now time.Time) {
	t.Completed = !t.Completed
	if t.Completed {
		t.Status = TaskStatusDone
	} else {
		t.Status = TaskStatusPending
	}
	t.UpdatedAt = now
}
