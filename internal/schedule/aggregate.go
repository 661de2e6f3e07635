package schedule

import (
	"log/slog"
	"time"

	"stride/internal/goal/models"
	"stride/internal/schedule/metrics"
)

// Pipeline runs the materialization stages against an in-memory goal
// snapshot. It is stateless: every call recomputes the full worklist from the
// goals it is handed.
type Pipeline struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewPipeline(logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger, metrics: m}
}

// Materialize produces the sorted, dependency-resolved worklist for the
// window, plus the count of dangling dependency references. Sorting uses the
// window start as the overdue cutoff.
func (p *Pipeline) Materialize(goals []*models.Goal, window Window) ([]Occurrence, int) {
	start := time.Now()
	items := p.Aggregate(goals, window)
	dangling := p.Resolve(items)
	Sort(items, window.Start)
	if p.metrics != nil {
		p.metrics.ObserveMaterialize(start)
		p.metrics.OccurrencesMaterialized.Add(float64(len(items)))
	}
	return items, dangling
}

// Aggregate walks every goal and collects occurrence candidates: all tasks
// (goal-level and milestone-level), plus one occurrence per routine per
// window day the routine is due. Duplicate ids are dropped on first-wins
// order, so a routine shared into view twice still appears once.
func (p *Pipeline) Aggregate(goals []*models.Goal, window Window) []Occurrence {
	seen := make(map[string]struct{})
	var out []Occurrence

	add := func(occ Occurrence) {
		if _, dup := seen[occ.ID]; dup {
			return
		}
		seen[occ.ID] = struct{}{}
		out = append(out, occ)
	}

	for _, g := range goals {
		for i := range g.Tasks {
			add(taskOccurrence(g, &g.Tasks[i]))
		}
		for _, day := range window.Days() {
			for ri := range g.Routines {
				p.addRoutine(add, g, &g.Routines[ri], nil, day)
			}
			for mi := range g.Milestones {
				m := &g.Milestones[mi]
				for ri := range m.Routines {
					p.addRoutine(add, g, &m.Routines[ri], m, day)
				}
			}
		}
	}
	return out
}

func (p *Pipeline) addRoutine(add func(Occurrence), g *models.Goal, r *models.Routine, m *models.Milestone, day time.Time) {
	occ, malformed := MaterializeRoutine(r, day)
	if malformed {
		p.logger.Warn("skipping malformed routine",
			"goal_id", g.ID, "routine_id", r.ID, "frequency", r.Frequency)
		if p.metrics != nil {
			p.metrics.IntegrityWarnings.Inc()
		}
		return
	}
	if occ == nil {
		return
	}
	rid := r.ID
	occ.Source = Provenance{
		Type:      SourceRoutine,
		GoalID:    g.ID,
		GoalName:  g.Name,
		RoutineID: &rid,
	}
	if m != nil {
		mid := m.ID
		occ.Source.MilestoneID = &mid
		occ.Source.MilestoneName = m.Name
	}
	add(*occ)
}

// taskOccurrence wraps a task as an occurrence candidate. Tasks attached to
// a milestone inherit its provenance so the worklist can group by milestone.
func taskOccurrence(g *models.Goal, t *models.Task) Occurrence {
	occ := Occurrence{
		ID:         t.ID.String(),
		Title:      t.Title,
		DueDate:    copyTime(t.DueDate),
		Priority:   t.Priority,
		Complexity: t.Complexity,
		Notes:      t.Notes,
		Completed:  t.Completed,
		DependsOn:  append([]models.DependencyRef(nil), t.DependsOn...),
		CreatedAt:  t.CreatedAt,
		Source: Provenance{
			Type:     SourceGoal,
			GoalID:   g.ID,
			GoalName: g.Name,
		},
	}
	tid := t.ID
	occ.Source.TaskID = &tid
	if t.MilestoneID != nil && !t.MilestoneID.IsZero() {
		mid := *t.MilestoneID
		occ.Source.Type = SourceMilestone
		occ.Source.MilestoneID = &mid
		if ms := g.MilestoneByID(mid); ms != nil {
			occ.Source.MilestoneName = ms.Name
		}
	}
	return occ
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
