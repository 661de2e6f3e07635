package models

import (
	"time"

	id "stride/pkg/domain"
)

// Frequency is the recurrence cycle of a routine.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// WeekdaySlot pins a weekly routine to a weekday, optionally at a time of day.
type WeekdaySlot struct {
	Weekday time.Weekday `json:"weekday"`
	At      string       `json:"at,omitempty"` // "HH:MM", display only
}

// Schedule describes when a routine is due within its cycle.
//
// TargetCount is the number of completions expected per cycle and is the
// fallback rule when no explicit weekday/day-of-month anchor is configured.
// Weekdays applies to weekly routines, DayOfMonth to monthly ones, and
// MonthsOfYear to quarterly/yearly ones.
type Schedule struct {
	TargetCount  int           `json:"target_count"`
	Weekdays     []WeekdaySlot `json:"weekdays,omitempty"`
	DayOfMonth   int           `json:"day_of_month,omitempty"`
	MonthsOfYear []time.Month  `json:"months_of_year,omitempty"`
}

// Routine is a recurring unit of work under a goal or milestone.
//
// Completions is the chronological list of recorded completion timestamps.
// The scheduler never mutates a Routine in place; completion recording goes
// through the goal store with the owning goal's version token.
type Routine struct {
	ID          id.RoutineID `json:"id"`
	Title       string       `json:"title"`
	Frequency   Frequency    `json:"frequency"`
	Schedule    *Schedule    `json:"schedule,omitempty"`
	Completions []time.Time  `json:"completions,omitempty"`
	SkipDates   []time.Time  `json:"skip_dates,omitempty"`
	EndDate     *time.Time   `json:"end_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// WellFormed reports whether the routine carries everything its frequency
// needs. Malformed routines are skipped by the materializer, never surfaced
// as errors.
func (r *Routine) WellFormed() bool {
	return r.Title != "" && r.Frequency.Valid() && r.Schedule != nil
}

// Ended reports whether the routine's end date falls before day.
func (r *Routine) Ended(day time.Time) bool {
	return r.EndDate != nil && r.EndDate.Before(day)
}

// SkippedOn reports whether day is in the routine's skip-date list.
// Comparison is by calendar day.
func (r *Routine) SkippedOn(day time.Time) bool {
	for _, s := range r.SkipDates {
		if SameDay(s, day) {
			return true
		}
	}
	return false
}

// CompletionsWithin counts completions in [from, to).
func (r *Routine) CompletionsWithin(from, to time.Time) int {
	n := 0
	for _, c := range r.Completions {
		if !c.Before(from) && c.Before(to) {
			n++
		}
	}
	return n
}

// CompletedOn reports whether any completion falls on the given calendar day.
func (r *Routine) CompletedOn(day time.Time) bool {
	for _, c := range r.Completions {
		if SameDay(c, day) {
			return true
		}
	}
	return false
}

// LastCompleted returns the most recent completion timestamp, if any.
func (r *Routine) LastCompleted() *time.Time {
	if len(r.Completions) == 0 {
		return nil
	}
	last := r.Completions[0]
	for _, c := range r.Completions[1:] {
		if c.After(last) {
			last = c
		}
	}
	return &last
}

// SameDay reports whether two instants fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
