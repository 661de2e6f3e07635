package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stride/internal/goal/models"
	goalstore "stride/internal/goal/store/goal"
	id "stride/pkg/domain"
)

// SeedDemoUser creates one user's worth of demo data for development runs
// against the in-memory store: a goal with tasks, a dependency chain, and a
// couple of routines.
func SeedDemoUser(gs *goalstore.InMemory) (id.UserID, *models.Goal) {
	now := time.Now().UTC()
	owner := id.UserID(uuid.New())

	outline := models.Task{
		ID: id.TaskID(uuid.New()), Title: "outline the first chapter",
		Priority: models.PriorityHigh, Complexity: models.ComplexityMedium,
		CreatedAt: now, UpdatedAt: now,
	}
	draft := models.Task{
		ID: id.TaskID(uuid.New()), Title: "draft the first chapter",
		Priority:   models.PriorityHigh,
		Complexity: models.ComplexityHigh,
		DependsOn:  []models.DependencyRef{{TaskID: outline.ID, Kind: models.DependencyRequires}},
		CreatedAt:  now, UpdatedAt: now,
	}

	g := &models.Goal{
		ID:      id.GoalID(uuid.New()),
		Name:    "Write a novel",
		OwnerID: owner,
		Tasks:   []models.Task{outline, draft},
		Routines: []models.Routine{
			{
				ID: id.RoutineID(uuid.New()), Title: "morning writing session",
				Frequency: models.FrequencyDaily,
				Schedule:  &models.Schedule{TargetCount: 1},
				CreatedAt: now, UpdatedAt: now,
			},
			{
				ID: id.RoutineID(uuid.New()), Title: "read craft essays",
				Frequency: models.FrequencyWeekly,
				Schedule: &models.Schedule{Weekdays: []models.WeekdaySlot{
					{Weekday: time.Tuesday, At: "19:00"},
					{Weekday: time.Saturday},
				}},
				CreatedAt: now, UpdatedAt: now,
			},
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_ = gs.Create(context.Background(), g)
	return owner, g
}
