package models

import (
	"time"

	id "stride/pkg/domain"
	dErrors "stride/pkg/domain-errors"
)

// Milestone groups tasks toward an intermediate target. A milestone may carry
// its own nested routines (e.g. "practice daily until the recital").
type Milestone struct {
	ID         id.MilestoneID `json:"id"`
	Name       string         `json:"name"`
	TargetDate *time.Time     `json:"target_date,omitempty"`
	Routines   []Routine      `json:"routines,omitempty"`
}

// Goal is the aggregate root: a named objective owned by one user, holding
// ordered collections of tasks, routines, and milestones.
//
// Invariants:
//   - Name is non-empty and at most 200 characters
//   - Version increases by one on every persisted mutation; writers must
//     present the version they read (optimistic concurrency)
//
// The scheduling engine treats goals as read-only input; all mutation goes
// through the goal store so the version token is enforced in one place.
type Goal struct {
	ID         id.GoalID   `json:"id"`
	Name       string      `json:"name"`
	OwnerID    id.UserID   `json:"owner_id"`
	Tasks      []Task      `json:"tasks,omitempty"`
	Routines   []Routine   `json:"routines,omitempty"`
	Milestones []Milestone `json:"milestones,omitempty"`
	Version    int64       `json:"version"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewGoal constructs an empty goal, validating invariants.
func NewGoal(goalID id.GoalID, ownerID id.UserID, name string, now time.Time) (*Goal, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "goal name cannot be empty")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "goal name must be 200 characters or less")
	}
	if ownerID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "goal owner is required")
	}
	return &Goal{
		ID:        goalID,
		Name:      name,
		OwnerID:   ownerID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TaskByID returns a pointer into the goal's task slice, or nil.
func (g *Goal) TaskByID(taskID id.TaskID) *Task {
	for i := range g.Tasks {
		if g.Tasks[i].ID == taskID {
			return &g.Tasks[i]
		}
	}
	return nil
}

// RoutineByID returns a pointer to the routine with the given id, searching
// the goal's own routines and every milestone's nested routines. Routines are
// located by stable id, never by title.
func (g *Goal) RoutineByID(routineID id.RoutineID) *Routine {
	for i := range g.Routines {
		if g.Routines[i].ID == routineID {
			return &g.Routines[i]
		}
	}
	for mi := range g.Milestones {
		rs := g.Milestones[mi].Routines
		for i := range rs {
			if rs[i].ID == routineID {
				return &rs[i]
			}
		}
	}
	return nil
}

// MilestoneByID returns the milestone with the given id, or nil.
func (g *Goal) MilestoneByID(milestoneID id.MilestoneID) *Milestone {
	for i := range g.Milestones {
		if g.Milestones[i].ID == milestoneID {
			return &g.Milestones[i]
		}
	}
	return nil
}

// AllRoutines returns the goal's routines followed by every milestone's
// nested routines. The returned slice shares backing arrays with the goal.
func (g *Goal) AllRoutines() []Routine {
	if len(g.Milestones) == 0 {
		return g.Routines
	}
	out := make([]Routine, 0, len(g.Routines))
	out = append(out, g.Routines...)
	for _, m := range g.Milestones {
		out = append(out, m.Routines...)
	}
	return out
}
