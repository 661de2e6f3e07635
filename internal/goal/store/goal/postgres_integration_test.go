//go:build integration

package goal_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"stride/internal/goal/models"
	goalstore "stride/internal/goal/store/goal"
	id "stride/pkg/domain"
	"stride/pkg/platform/sentinel"
	"stride/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *goalstore.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = goalstore.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "goal_shares", "goals")
	s.Require().NoError(err)
}

func newTestGoal(owner id.UserID) *models.Goal {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Goal{
		ID:        id.GoalID(uuid.New()),
		Name:      "Learn piano",
		OwnerID:   owner,
		Tasks: []models.Task{{
			ID:        id.TaskID(uuid.New()),
			Title:     "buy a keyboard",
			Priority:  models.PriorityMedium,
			Status:    models.TaskStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}},
		Routines: []models.Routine{{
			ID:        id.RoutineID(uuid.New()),
			Title:     "practice scales",
			Frequency: models.FrequencyDaily,
			Schedule:  &models.Schedule{TargetCount: 1},
			CreatedAt: now,
			UpdatedAt: now,
		}},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	g := newTestGoal(owner)
	s.Require().NoError(s.store.Create(ctx, g))

	found, err := s.store.FindByID(ctx, g.ID)
	s.Require().NoError(err)
	s.Equal(g.Name, found.Name)
	s.Require().Len(found.Tasks, 1)
	s.Equal("buy a keyboard", found.Tasks[0].Title)
	s.Require().Len(found.Routines, 1)
	s.Require().NotNil(found.Routines[0].Schedule)
	s.Equal(1, found.Routines[0].Schedule.TargetCount)

	owned, err := s.store.FetchOwned(ctx, owner)
	s.Require().NoError(err)
	s.Len(owned, 1)
}

func (s *PostgresStoreSuite) TestSharing() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	reader := id.UserID(uuid.New())
	g := newTestGoal(owner)
	s.Require().NoError(s.store.Create(ctx, g))

	shared, err := s.store.FetchShared(ctx, reader)
	s.Require().NoError(err)
	s.Empty(shared)

	s.Require().NoError(s.store.Share(ctx, g.ID, reader))
	shared, err = s.store.FetchShared(ctx, reader)
	s.Require().NoError(err)
	s.Require().Len(shared, 1)
	s.Equal(g.ID, shared[0].ID)
}

// TestConcurrentCompletionCAS verifies the lost-update protection: many
// concurrent writers presenting the same version produce exactly one winner.
func (s *PostgresStoreSuite) TestConcurrentCompletionCAS() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	g := newTestGoal(owner)
	s.Require().NoError(s.store.Create(ctx, g))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tasks := append([]models.Task(nil), g.Tasks...)
			tasks[0].Completed = true
			_, err := s.store.UpdateTasks(ctx, g.ID, owner, 1, tasks)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one CAS write should win")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should observe a stale version")

	found, err := s.store.FindByID(ctx, g.ID)
	s.Require().NoError(err)
	s.EqualValues(2, found.Version)
}

func (s *PostgresStoreSuite) TestUpdateClassification() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	g := newTestGoal(owner)
	s.Require().NoError(s.store.Create(ctx, g))

	s.Run("unknown goal", func() {
		_, err := s.store.UpdateTasks(ctx, id.GoalID(uuid.New()), owner, 1, nil)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("non-owner", func() {
		_, err := s.store.UpdateTasks(ctx, g.ID, id.UserID(uuid.New()), 1, g.Tasks)
		s.Require().ErrorIs(err, sentinel.ErrPermission)
	})

	s.Run("stale version", func() {
		_, err := s.store.UpdateTasks(ctx, g.ID, owner, 99, g.Tasks)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *PostgresStoreSuite) TestUpdateRoutines_PersistsCompletions() {
	ctx := context.Background()
	owner := id.UserID(uuid.New())
	g := newTestGoal(owner)
	s.Require().NoError(s.store.Create(ctx, g))

	routines := append([]models.Routine(nil), g.Routines...)
	stamp := time.Date(2024, 6, 10, 7, 30, 0, 0, time.UTC)
	routines[0].Completions = append(routines[0].Completions, stamp)

	updated, err := s.store.UpdateRoutines(ctx, g.ID, owner, 1, routines, nil)
	s.Require().NoError(err)
	s.Require().Len(updated.Routines[0].Completions, 1)
	s.True(updated.Routines[0].Completions[0].Equal(stamp))
	s.EqualValues(2, updated.Version)
}
