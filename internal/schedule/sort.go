package schedule

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Sort orders the worklist with a single composite comparator. Keys, in
// order: unblocked before blocked, overdue before not overdue (due before
// the start of the evaluation day), priority rank, earliest due date
// (undated last), lower
// complexity first, task-originated before routine-originated, oldest
// creation first. Occurrence id is the final tiebreak, making the order a
// total one regardless of input order.
func Sort(items []Occurrence, now time.Time) {
	slices.SortStableFunc(items, func(a, b Occurrence) int {
		return Compare(&a, &b, now)
	})
}

func Compare(a, b *Occurrence, now time.Time) int {
	if c := cmp.Compare(boolRank(a.Blocked), boolRank(b.Blocked)); c != 0 {
		return c
	}
	if c := cmp.Compare(boolRank(!overdue(a, now)), boolRank(!overdue(b, now))); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
		return c
	}
	if c := compareDue(a.DueDate, b.DueDate); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Complexity.Rank(), b.Complexity.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(boolRank(a.IsRoutine()), boolRank(b.IsRoutine())); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// overdue is day-granular: an item due earlier today is not yet overdue, so
// timed routine slots do not flip mid-day.
func overdue(o *Occurrence, now time.Time) bool {
	return o.DueDate != nil && o.DueDate.Before(StartOfDay(now))
}

// compareDue sorts dated items ascending, with undated items after all dated
// ones.
func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
