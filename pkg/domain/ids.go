// Package domain provides typed identifiers shared across modules.
//
// Each entity gets its own UUID-backed type so the compiler rejects
// cross-entity assignment (passing a TaskID where a RoutineID is expected
// fails to compile). Parse* constructors enforce the trust-boundary
// invariant that IDs are valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "stride/pkg/domain-errors"
)

// Typed identifiers for the goal/scheduling domain.
type (
	UserID      uuid.UUID
	GoalID      uuid.UUID
	TaskID      uuid.UUID
	RoutineID   uuid.UUID
	MilestoneID uuid.UUID
)

func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id GoalID) String() string      { return uuid.UUID(id).String() }
func (id TaskID) String() string      { return uuid.UUID(id).String() }
func (id RoutineID) String() string   { return uuid.UUID(id).String() }
func (id MilestoneID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id GoalID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id TaskID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RoutineID) IsZero() bool   { return uuid.UUID(id) == uuid.Nil }
func (id MilestoneID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText/UnmarshalText keep the string UUID form in JSON and SQL paths.

func (id UserID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id GoalID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id TaskID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id RoutineID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id MilestoneID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = UserID(u)
	return nil
}

func (id *GoalID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = GoalID(u)
	return nil
}

func (id *TaskID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = TaskID(u)
	return nil
}

func (id *RoutineID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = RoutineID(u)
	return nil
}

func (id *MilestoneID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = MilestoneID(u)
	return nil
}

// parseUUID validates that s is a well-formed, non-nil UUID.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be the nil UUID")
	}
	return u, nil
}

// ParseUserID parses and validates a user ID from its string form.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}

// ParseGoalID parses and validates a goal ID from its string form.
func ParseGoalID(s string) (GoalID, error) {
	u, err := parseUUID(s, "goal")
	return GoalID(u), err
}

// ParseTaskID parses and validates a task ID from its string form.
func ParseTaskID(s string) (TaskID, error) {
	u, err := parseUUID(s, "task")
	return TaskID(u), err
}

// ParseRoutineID parses and validates a routine ID from its string form.
func ParseRoutineID(s string) (RoutineID, error) {
	u, err := parseUUID(s, "routine")
	return RoutineID(u), err
}

// ParseMilestoneID parses and validates a milestone ID from its string form.
func ParseMilestoneID(s string) (MilestoneID, error) {
	u, err := parseUUID(s, "milestone")
	return MilestoneID(u), err
}
