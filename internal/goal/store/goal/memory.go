// Package goal provides the goal repository implementations.
//
// Two stores exist behind the same implicit interface: InMemory for tests
// and single-node development, Postgres for production. Both enforce the
// per-goal optimistic concurrency contract: every mutation presents the
// version it read, and a stale version loses with sentinel.ErrConflict.
package goal

import (
	"context"
	"sort"
	"sync"

	"stride/internal/goal/models"
	id "stride/pkg/domain"
	"stride/pkg/platform/sentinel"
	"stride/pkg/requestcontext"
)

// InMemory is a mutex-guarded goal store. It hands out deep copies so
// callers cannot mutate stored state without going through an update.
type InMemory struct {
	mu     sync.RWMutex
	goals  map[id.GoalID]*models.Goal
	shares map[id.GoalID]map[id.UserID]struct{}
}

// NewInMemory constructs an empty in-memory goal store.
func NewInMemory() *InMemory {
	return &InMemory{
		goals:  make(map[id.GoalID]*models.Goal),
		shares: make(map[id.GoalID]map[id.UserID]struct{}),
	}
}

// Create stores a new goal. Fails with sentinel.ErrConflict if the id exists.
func (s *InMemory) Create(ctx context.Context, g *models.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[g.ID]; ok {
		return sentinel.ErrConflict
	}
	s.goals[g.ID] = g.Clone()
	return nil
}

// FindByID returns a copy of the goal, or sentinel.ErrNotFound.
func (s *InMemory) FindByID(ctx context.Context, goalID id.GoalID) (*models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goals[goalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return g.Clone(), nil
}

// FetchOwned returns the goals owned by userID, ordered by creation time.
func (s *InMemory) FetchOwned(ctx context.Context, userID id.UserID) ([]*models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Goal
	for _, g := range s.goals {
		if g.OwnerID == userID {
			out = append(out, g.Clone())
		}
	}
	sortGoals(out)
	return out, nil
}

// FetchShared returns the goals shared with userID, ordered by creation time.
func (s *InMemory) FetchShared(ctx context.Context, userID id.UserID) ([]*models.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Goal
	for goalID, users := range s.shares {
		if _, ok := users[userID]; !ok {
			continue
		}
		if g, ok := s.goals[goalID]; ok {
			out = append(out, g.Clone())
		}
	}
	sortGoals(out)
	return out, nil
}

// Share grants userID read access to the goal.
func (s *InMemory) Share(ctx context.Context, goalID id.GoalID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[goalID]; !ok {
		return sentinel.ErrNotFound
	}
	users, ok := s.shares[goalID]
	if !ok {
		users = make(map[id.UserID]struct{})
		s.shares[goalID] = users
	}
	users[userID] = struct{}{}
	return nil
}

// UpdateTasks replaces the goal's task collection, keyed by the version the
// caller read. Returns the updated goal.
//
// Errors: sentinel.ErrNotFound (goal gone), sentinel.ErrPermission (actor is
// not the owner), sentinel.ErrConflict (version raced).
func (s *InMemory) UpdateTasks(ctx context.Context, goalID id.GoalID, actor id.UserID, version int64, tasks []models.Task) (*models.Goal, error) {
	return s.update(ctx, goalID, actor, version, func(g *models.Goal) {
		g.Tasks = tasks
	})
}

// UpdateRoutines replaces the goal's routine collections (top-level and
// per-milestone), keyed by the version the caller read.
func (s *InMemory) UpdateRoutines(ctx context.Context, goalID id.GoalID, actor id.UserID, version int64, routines []models.Routine, milestones []models.Milestone) (*models.Goal, error) {
	return s.update(ctx, goalID, actor, version, func(g *models.Goal) {
		g.Routines = routines
		if milestones != nil {
			g.Milestones = milestones
		}
	})
}

func (s *InMemory) update(ctx context.Context, goalID id.GoalID, actor id.UserID, version int64, apply func(*models.Goal)) (*models.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[goalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !actor.IsZero() && g.OwnerID != actor {
		return nil, sentinel.ErrPermission
	}
	if g.Version != version {
		return nil, sentinel.ErrConflict
	}
	next := g.Clone()
	apply(next)
	next.Version = version + 1
	next.UpdatedAt = requestcontext.Now(ctx)
	s.goals[goalID] = next
	return next.Clone(), nil
}

func sortGoals(goals []*models.Goal) {
	sort.Slice(goals, func(i, j int) bool {
		if goals[i].CreatedAt.Equal(goals[j].CreatedAt) {
			return goals[i].ID.String() < goals[j].ID.String()
		}
		return goals[i].CreatedAt.Before(goals[j].CreatedAt)
	})
}
