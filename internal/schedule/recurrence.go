package schedule

import (
	"time"

	"stride/internal/goal/models"
)

// MaterializeRoutine evaluates a routine against a single calendar day and
// returns the occurrence it produces, or nil when the routine is not due.
// malformed is true when the routine cannot be evaluated at all (missing
// title, unknown frequency, nil schedule, or a quarterly/yearly routine with
// no months configured); those are skipped for display but the caller should
// surface them as integrity warnings.
//
// The returned occurrence carries no provenance; the aggregator fills that in.
func MaterializeRoutine(r *models.Routine, day time.Time) (occ *Occurrence, malformed bool) {
	if !r.WellFormed() {
		return nil, true
	}
	if (r.Frequency == models.FrequencyQuarterly || r.Frequency == models.FrequencyYearly) &&
		len(r.Schedule.MonthsOfYear) == 0 {
		return nil, true
	}

	day = StartOfDay(day)
	if r.Ended(day) || r.SkippedOn(day) {
		return nil, false
	}

	due, nextDue := dueOn(r, day)
	if !due {
		return nil, false
	}

	last := r.LastCompleted()
	dueAt := routineDueAt(r, day)
	return &Occurrence{
		ID:        RoutineOccurrenceID(r.ID, day),
		Title:     r.Title,
		DueDate:   dueAt,
		Priority:  models.PriorityMedium,
		Completed: r.CompletedOn(day),
		Recurrence: &RecurrenceInfo{
			Pattern:       r.Frequency,
			TargetCount:   targetCount(r),
			LastCompleted: last,
			NextDue:       nextDue,
		},
		CreatedAt: r.CreatedAt,
	}, false
}

// dueOn applies the per-frequency rules. nextDue is a best-effort hint for
// display and may be nil.
func dueOn(r *models.Routine, day time.Time) (bool, *time.Time) {
	switch r.Frequency {
	case models.FrequencyDaily:
		next := day.AddDate(0, 0, 1)
		return true, &next
	case models.FrequencyWeekly:
		if len(r.Schedule.Weekdays) > 0 {
			return weeklyByWeekdays(r, day)
		}
		return weeklyByTarget(r, day)
	case models.FrequencyMonthly:
		if r.Schedule.DayOfMonth > 0 {
			return monthlyByDay(r, day)
		}
		return monthlyByTarget(r, day)
	case models.FrequencyQuarterly, models.FrequencyYearly:
		return firstOfConfiguredMonth(r, day)
	}
	return false, nil
}

// weeklyByWeekdays finds the earliest configured weekday at or after the
// evaluation day, within the current Monday-start week, that has no
// completion yet this week. The routine is due only when that weekday is the
// evaluation day itself.
func weeklyByWeekdays(r *models.Routine, day time.Time) (bool, *time.Time) {
	weekStart := startOfWeek(day)
	today := weekdayOffset(day.Weekday())

	var pending []int
	for _, slot := range r.Schedule.Weekdays {
		off := weekdayOffset(slot.Weekday)
		if off < today {
			continue
		}
		slotDay := weekStart.AddDate(0, 0, off)
		if r.CompletionsWithin(slotDay, slotDay.AddDate(0, 0, 1)) > 0 {
			continue
		}
		pending = append(pending, off)
	}
	if len(pending) == 0 {
		next := nextWeekFirstSlot(r, weekStart)
		return false, next
	}
	earliest := pending[0]
	for _, off := range pending[1:] {
		if off < earliest {
			earliest = off
		}
	}
	nextDay := weekStart.AddDate(0, 0, earliest)
	if earliest == today {
		return true, &nextDay
	}
	return false, &nextDay
}

func nextWeekFirstSlot(r *models.Routine, weekStart time.Time) *time.Time {
	first := 7
	for _, slot := range r.Schedule.Weekdays {
		if off := weekdayOffset(slot.Weekday); off < first {
			first = off
		}
	}
	if first == 7 {
		return nil
	}
	next := weekStart.AddDate(0, 0, 7+first)
	return &next
}

// weeklyByTarget is the weekday-free fallback: due any day until the weekly
// completion count reaches the target.
func weeklyByTarget(r *models.Routine, day time.Time) (bool, *time.Time) {
	weekStart := startOfWeek(day)
	done := r.CompletionsWithin(weekStart, weekStart.AddDate(0, 0, 7))
	if done >= targetCount(r) {
		next := weekStart.AddDate(0, 0, 7)
		return false, &next
	}
	next := day.AddDate(0, 0, 1)
	return true, &next
}

// monthlyByDay is due only on the configured day of month, clamped to the
// month's length so a day-31 routine still fires in shorter months.
func monthlyByDay(r *models.Routine, day time.Time) (bool, *time.Time) {
	dom := clampDayOfMonth(r.Schedule.DayOfMonth, day)
	if day.Day() == dom {
		n := nextMonthOccurrence(r.Schedule.DayOfMonth, day)
		return true, &n
	}
	var next time.Time
	if day.Day() < dom {
		next = time.Date(day.Year(), day.Month(), dom, 0, 0, 0, 0, time.UTC)
	} else {
		next = nextMonthOccurrence(r.Schedule.DayOfMonth, day)
	}
	return false, &next
}

// monthlyByTarget is due on the first of the month, and thereafter any day
// the monthly completion count remains below target.
func monthlyByTarget(r *models.Routine, day time.Time) (bool, *time.Time) {
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	done := r.CompletionsWithin(monthStart, monthStart.AddDate(0, 1, 0))
	if day.Day() == 1 || done < targetCount(r) {
		next := day.AddDate(0, 0, 1)
		return true, &next
	}
	next := monthStart.AddDate(0, 1, 0)
	return false, &next
}

// firstOfConfiguredMonth handles quarterly and yearly routines: due on the
// first day of any configured month.
func firstOfConfiguredMonth(r *models.Routine, day time.Time) (bool, *time.Time) {
	configured := false
	for _, m := range r.Schedule.MonthsOfYear {
		if m == day.Month() {
			configured = true
			break
		}
	}
	next := nextConfiguredMonthStart(r.Schedule.MonthsOfYear, day)
	return configured && day.Day() == 1, next
}

func nextConfiguredMonthStart(months []time.Month, day time.Time) *time.Time {
	best := time.Time{}
	for _, m := range months {
		candidate := time.Date(day.Year(), m, 1, 0, 0, 0, 0, time.UTC)
		if !candidate.After(day) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		if best.IsZero() || candidate.Before(best) {
			best = candidate
		}
	}
	if best.IsZero() {
		return nil
	}
	return &best
}

// routineDueAt resolves the occurrence due timestamp: start of day, or the
// configured time slot when one matches the day's weekday.
func routineDueAt(r *models.Routine, day time.Time) *time.Time {
	for _, slot := range r.Schedule.Weekdays {
		if slot.Weekday != day.Weekday() || slot.At == "" {
			continue
		}
		if at, err := time.Parse("15:04", slot.At); err == nil {
			t := day.Add(time.Duration(at.Hour())*time.Hour + time.Duration(at.Minute())*time.Minute)
			return &t
		}
	}
	d := day
	return &d
}

func targetCount(r *models.Routine) int {
	if r.Schedule.TargetCount > 0 {
		return r.Schedule.TargetCount
	}
	return 1
}

// startOfWeek returns the Monday midnight beginning the week containing day.
func startOfWeek(day time.Time) time.Time {
	return StartOfDay(day).AddDate(0, 0, -weekdayOffset(day.Weekday()))
}

// weekdayOffset maps a weekday to its offset from Monday (Mon=0 .. Sun=6).
func weekdayOffset(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func clampDayOfMonth(dom int, day time.Time) int {
	lastDay := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
	if dom > lastDay {
		return lastDay
	}
	return dom
}

func nextMonthOccurrence(dom int, day time.Time) time.Time {
	nextMonth := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return time.Date(nextMonth.Year(), nextMonth.Month(), clampDayOfMonth(dom, nextMonth), 0, 0, 0, 0, time.UTC)
}
