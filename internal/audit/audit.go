// Package audit captures who changed what in the scheduling data, decoupled
// from the engine itself. Events fan out through an Appender so deployments
// can keep them in memory, persist them, or ship them to Kafka.
package audit

import (
	"context"
	"time"

	id "stride/pkg/domain"
)

type Action string

const (
	ActionCompletionRecorded Action = "schedule.completion_recorded"
	ActionCompletionCleared  Action = "schedule.completion_cleared"
	ActionWorklistRefreshed  Action = "schedule.worklist_refreshed"
	ActionGoalCreated        Action = "goal.created"
	ActionGoalShared         Action = "goal.shared"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	UserID       id.UserID `json:"user_id"`
	Action       Action    `json:"action"`
	GoalID       string    `json:"goal_id,omitempty"`
	OccurrenceID string    `json:"occurrence_id,omitempty"`
	Detail       string    `json:"detail,omitempty"`
}

// Appender is the write side of an audit sink.
type Appender interface {
	Append(ctx context.Context, event Event) error
}

// Store is a sink that also supports per-user reads.
type Store interface {
	Appender
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
