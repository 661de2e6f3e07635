package goal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"stride/internal/goal/models"
	id "stride/pkg/domain"
	"stride/pkg/platform/sentinel"
	"stride/pkg/requestcontext"
)

type GoalStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	owner id.UserID
}

func (s *GoalStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.owner = id.UserID(uuid.New())
}

func TestGoalStoreSuite(t *testing.T) {
	suite.Run(t, new(GoalStoreSuite))
}

func (s *GoalStoreSuite) newGoal(name string, created time.Time) *models.Goal {
	return &models.Goal{
		ID:        id.GoalID(uuid.New()),
		Name:      name,
		OwnerID:   s.owner,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func (s *GoalStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds goal by ID", func() {
		g := s.newGoal("Learn piano", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, g))

		found, err := s.store.FindByID(s.ctx, g.ID)
		s.Require().NoError(err)
		s.Equal("Learn piano", found.Name)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.GoalID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate ID", func() {
		g := s.newGoal("Run a marathon", time.Now())
		s.Require().NoError(s.store.Create(s.ctx, g))
		s.Require().ErrorIs(s.store.Create(s.ctx, g), sentinel.ErrConflict)
	})
}

func (s *GoalStoreSuite) TestFetchOrderingAndScoping() {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	second := s.newGoal("Second", base.Add(time.Hour))
	first := s.newGoal("First", base)
	other := &models.Goal{ID: id.GoalID(uuid.New()), Name: "Other user", OwnerID: id.UserID(uuid.New()), Version: 1, CreatedAt: base}

	s.Require().NoError(s.store.Create(s.ctx, second))
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, other))

	owned, err := s.store.FetchOwned(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(owned, 2)
	s.Equal("First", owned[0].Name)
	s.Equal("Second", owned[1].Name)

	s.Run("shared goals visible only to grantees", func() {
		reader := id.UserID(uuid.New())
		shared, err := s.store.FetchShared(s.ctx, reader)
		s.Require().NoError(err)
		s.Empty(shared)

		s.Require().NoError(s.store.Share(s.ctx, other.ID, reader))
		shared, err = s.store.FetchShared(s.ctx, reader)
		s.Require().NoError(err)
		s.Require().Len(shared, 1)
		s.Equal(other.ID, shared[0].ID)
	})
}

func (s *GoalStoreSuite) TestUpdateTasks_VersionCAS() {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, now)
	g := s.newGoal("Write a novel", now.Add(-48*time.Hour))
	task := models.Task{ID: id.TaskID(uuid.New()), Title: "outline", Priority: models.PriorityHigh, CreatedAt: g.CreatedAt}
	g.Tasks = []models.Task{task}
	s.Require().NoError(s.store.Create(s.ctx, g))

	s.Run("update with current version succeeds and bumps version", func() {
		task.Completed = true
		updated, err := s.store.UpdateTasks(ctx, g.ID, s.owner, 1, []models.Task{task})
		s.Require().NoError(err)
		s.EqualValues(2, updated.Version)
		s.True(updated.Tasks[0].Completed)
		s.Equal(now, updated.UpdatedAt)
	})

	s.Run("stale version loses with ErrConflict", func() {
		_, err := s.store.UpdateTasks(ctx, g.ID, s.owner, 1, []models.Task{task})
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("non-owner is rejected with ErrPermission", func() {
		_, err := s.store.UpdateTasks(ctx, g.ID, id.UserID(uuid.New()), 2, []models.Task{task})
		s.Require().ErrorIs(err, sentinel.ErrPermission)
	})

	s.Run("unknown goal yields ErrNotFound", func() {
		_, err := s.store.UpdateTasks(ctx, id.GoalID(uuid.New()), s.owner, 1, nil)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *GoalStoreSuite) TestUpdateRoutines_ReplacesMilestoneRoutines() {
	now := time.Now().UTC()
	routine := models.Routine{ID: id.RoutineID(uuid.New()), Title: "practice", Frequency: models.FrequencyDaily, Schedule: &models.Schedule{TargetCount: 1}}
	milestone := models.Milestone{ID: id.MilestoneID(uuid.New()), Name: "recital", Routines: []models.Routine{routine}}
	g := s.newGoal("Learn piano", now)
	g.Milestones = []models.Milestone{milestone}
	s.Require().NoError(s.store.Create(s.ctx, g))

	milestone.Routines[0].Completions = []time.Time{now}
	updated, err := s.store.UpdateRoutines(s.ctx, g.ID, s.owner, 1, nil, []models.Milestone{milestone})
	s.Require().NoError(err)
	s.Require().Len(updated.Milestones[0].Routines[0].Completions, 1)
	s.EqualValues(2, updated.Version)
}

func (s *GoalStoreSuite) TestCloneIsolation() {
	g := s.newGoal("Garden", time.Now())
	g.Tasks = []models.Task{{ID: id.TaskID(uuid.New()), Title: "plant tomatoes"}}
	s.Require().NoError(s.store.Create(s.ctx, g))

	found, err := s.store.FindByID(s.ctx, g.ID)
	s.Require().NoError(err)
	found.Tasks[0].Title = "mutated"

	again, err := s.store.FindByID(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Equal("plant tomatoes", again.Tasks[0].Title)
}
