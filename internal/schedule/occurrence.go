// Package schedule is the scheduling engine: it converts durable goal,
// task, and routine definitions into a concrete, date-bound worklist.
//
// The pipeline is a pure, synchronous computation: aggregate candidates from
// goals (materializing routine occurrences per day), resolve dependency
// blocking, then apply one deterministic seven-key sort. It holds no state
// between runs; Service owns snapshot lifecycle and mutation.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"stride/internal/goal/models"
	id "stride/pkg/domain"
)

// SourceType identifies which collection produced a candidate.
type SourceType string

const (
	SourceGoal      SourceType = "goal"
	SourceMilestone SourceType = "milestone"
	SourceRoutine   SourceType = "routine"
)

// Provenance records where an occurrence came from, with enough naming for
// grouping and display without re-querying the repository. RoutineID (not the
// routine title) is what completion resolution keys on.
type Provenance struct {
	Type          SourceType      `json:"type"`
	GoalID        id.GoalID       `json:"goal_id"`
	GoalName      string          `json:"goal_name"`
	MilestoneID   *id.MilestoneID `json:"milestone_id,omitempty"`
	MilestoneName string          `json:"milestone_name,omitempty"`
	RoutineID     *id.RoutineID   `json:"routine_id,omitempty"`
	TaskID        *id.TaskID      `json:"task_id,omitempty"`
}

// RecurrenceInfo is a display snapshot of the recurrence parameters captured
// at materialization time.
type RecurrenceInfo struct {
	Pattern       models.Frequency `json:"pattern"`
	TargetCount   int              `json:"target_count"`
	LastCompleted *time.Time       `json:"last_completed,omitempty"`
	NextDue       *time.Time       `json:"next_due,omitempty"`
}

// Occurrence is a concrete, date-bound unit of work. Derived, never
// persisted: identity is deterministic, so re-materializing the same inputs
// reproduces the same ids.
type Occurrence struct {
	ID         string                 `json:"id"`
	Title      string                 `json:"title"`
	Source     Provenance             `json:"source"`
	DueDate    *time.Time             `json:"due_date,omitempty"`
	Priority   models.Priority        `json:"priority"`
	Complexity models.Complexity      `json:"complexity,omitempty"`
	Notes      string                 `json:"notes,omitempty"`
	Completed  bool                   `json:"completed"`
	Blocked    bool                   `json:"blocked"`
	DependsOn  []models.DependencyRef `json:"depends_on,omitempty"`
	Dependents []string               `json:"dependents,omitempty"`
	Recurrence *RecurrenceInfo        `json:"recurrence,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// IsRoutine reports whether the occurrence was materialized from a routine.
func (o *Occurrence) IsRoutine() bool {
	return o.Source.Type == SourceRoutine || o.Source.RoutineID != nil
}

// RoutineOccurrenceID builds the deterministic identity for a routine
// occurrence: routine id plus the epoch of the materialization day (midnight
// UTC). One routine therefore yields at most one id per calendar day.
func RoutineOccurrenceID(routineID id.RoutineID, day time.Time) string {
	return fmt.Sprintf("%s-%d", routineID, StartOfDay(day).Unix())
}

// ParseOccurrenceID splits an occurrence id back into its source reference.
// Routine occurrence ids are "<routineID>-<day epoch>"; anything else must be
// a bare task UUID.
func ParseOccurrenceID(s string) (routineID id.RoutineID, day time.Time, taskID id.TaskID, isRoutine bool, err error) {
	if i := strings.LastIndex(s, "-"); i > 0 {
		if u, uerr := uuid.Parse(s[:i]); uerr == nil {
			epoch, perr := strconv.ParseInt(s[i+1:], 10, 64)
			if perr != nil {
				return id.RoutineID{}, time.Time{}, id.TaskID{}, false, fmt.Errorf("occurrence id %q: bad epoch: %w", s, perr)
			}
			return id.RoutineID(u), time.Unix(epoch, 0).UTC(), id.TaskID{}, true, nil
		}
	}
	u, uerr := uuid.Parse(s)
	if uerr != nil {
		return id.RoutineID{}, time.Time{}, id.TaskID{}, false, fmt.Errorf("occurrence id %q is neither a routine occurrence nor a task id", s)
	}
	return id.RoutineID{}, time.Time{}, id.TaskID(u), false, nil
}

// Window is a half-open evaluation range [Start, End) in whole days.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayWindow is the single-day window containing t: the "due today" default.
func DayWindow(t time.Time) Window {
	start := StartOfDay(t)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// DaysWindow is the n-day window starting at t's day. n < 1 is treated as 1.
func DaysWindow(t time.Time, n int) Window {
	if n < 1 {
		n = 1
	}
	start := StartOfDay(t)
	return Window{Start: start, End: start.AddDate(0, 0, n)}
}

// Days iterates the calendar days covered by the window.
func (w Window) Days() []time.Time {
	var days []time.Time
	for d := StartOfDay(w.Start); d.Before(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
