package models

import "time"

// Clone returns a deep copy of the goal. Stores hand out clones so callers
// can never mutate shared state behind the version token's back.
func (g *Goal) Clone() *Goal {
	if g == nil {
		return nil
	}
	out := *g
	out.Tasks = cloneTasks(g.Tasks)
	out.Routines = cloneRoutines(g.Routines)
	if g.Milestones != nil {
		out.Milestones = make([]Milestone, len(g.Milestones))
		for i, m := range g.Milestones {
			cm := m
			cm.Routines = cloneRoutines(m.Routines)
			if m.TargetDate != nil {
				td := *m.TargetDate
				cm.TargetDate = &td
			}
			out.Milestones[i] = cm
		}
	}
	return &out
}

func cloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		ct := t
		if t.DueDate != nil {
			d := *t.DueDate
			ct.DueDate = &d
		}
		if t.MilestoneID != nil {
			m := *t.MilestoneID
			ct.MilestoneID = &m
		}
		if t.DependsOn != nil {
			ct.DependsOn = append([]DependencyRef(nil), t.DependsOn...)
		}
		out[i] = ct
	}
	return out
}

func cloneRoutines(routines []Routine) []Routine {
	if routines == nil {
		return nil
	}
	out := make([]Routine, len(routines))
	for i, r := range routines {
		cr := r
		if r.Schedule != nil {
			cs := *r.Schedule
			if r.Schedule.Weekdays != nil {
				cs.Weekdays = append([]WeekdaySlot(nil), r.Schedule.Weekdays...)
			}
			if r.Schedule.MonthsOfYear != nil {
				cs.MonthsOfYear = append([]time.Month(nil), r.Schedule.MonthsOfYear...)
			}
			cr.Schedule = &cs
		}
		if r.Completions != nil {
			cr.Completions = append([]time.Time(nil), r.Completions...)
		}
		if r.SkipDates != nil {
			cr.SkipDates = append([]time.Time(nil), r.SkipDates...)
		}
		if r.EndDate != nil {
			e := *r.EndDate
			cr.EndDate = &e
		}
		out[i] = cr
	}
	return out
}
