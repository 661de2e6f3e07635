package schedule

import "sort"

// Resolve computes dependency blocking across the occurrence snapshot,
// in place. An occurrence is blocked when any task it depends on exists in
// the snapshot and is incomplete; the reverse edges are recorded on the
// prerequisite as Dependents. References to tasks absent from the snapshot
// (deleted, or outside the caller's visible goals) never block, but the
// dangling count is returned so callers can surface them.
func (p *Pipeline) Resolve(items []Occurrence) (dangling int) {
	byTask := make(map[string]int, len(items))
	for i := range items {
		if items[i].Source.TaskID != nil {
			byTask[items[i].Source.TaskID.String()] = i
		}
	}

	for i := range items {
		items[i].Blocked = false
		items[i].Dependents = nil
	}

	for i := range items {
		for _, ref := range items[i].DependsOn {
			j, ok := byTask[ref.TaskID.String()]
			if !ok {
				dangling++
				p.logger.Warn("dangling dependency reference",
					"occurrence_id", items[i].ID, "missing_task_id", ref.TaskID)
				continue
			}
			if !items[j].Completed {
				items[i].Blocked = true
			}
			items[j].Dependents = append(items[j].Dependents, items[i].ID)
		}
	}

	for i := range items {
		sort.Strings(items[i].Dependents)
	}
	if dangling > 0 && p.metrics != nil {
		p.metrics.DanglingDependencies.Add(float64(dangling))
	}
	return dangling
}
