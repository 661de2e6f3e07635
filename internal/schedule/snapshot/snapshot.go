// Package snapshot persists the last successfully materialized worklist per
// user. The engine recomputes views from goals on every read; snapshots only
// exist so reads can still be answered when the goal repository is down or
// the process has just restarted.
package snapshot

import (
	"context"
	"sync"

	"stride/internal/schedule"
	id "stride/pkg/domain"
	"stride/pkg/platform/sentinel"
)

// InMemory keeps snapshots in process memory. The default for tests and
// single-instance deployments without Redis.
type InMemory struct {
	mu    sync.RWMutex
	views map[id.UserID]*schedule.View
}

func NewInMemory() *InMemory {
	return &InMemory{views: make(map[id.UserID]*schedule.View)}
}

func (s *InMemory) Save(_ context.Context, view *schedule.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[view.UserID] = view
	return nil
}

func (s *InMemory) Load(_ context.Context, userID id.UserID) (*schedule.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view, ok := s.views[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return view, nil
}
