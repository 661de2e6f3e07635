package goal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"stride/internal/goal/models"
	id "stride/pkg/domain"
	"stride/pkg/platform/sentinel"
	"stride/pkg/requestcontext"
)

// Postgres persists goals in PostgreSQL. Task, routine, and milestone
// collections live as JSONB documents on the goal row; the version column is
// compared-and-swapped on every update so concurrent completions against the
// same goal cannot silently clobber each other.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed goal store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the schema if it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS goals (
			id          UUID PRIMARY KEY,
			owner_id    UUID NOT NULL,
			name        TEXT NOT NULL,
			tasks       JSONB NOT NULL DEFAULT '[]',
			routines    JSONB NOT NULL DEFAULT '[]',
			milestones  JSONB NOT NULL DEFAULT '[]',
			version     BIGINT NOT NULL DEFAULT 1,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS goals_owner_idx ON goals (owner_id, created_at);
		CREATE TABLE IF NOT EXISTS goal_shares (
			goal_id UUID NOT NULL REFERENCES goals (id) ON DELETE CASCADE,
			user_id UUID NOT NULL,
			PRIMARY KEY (goal_id, user_id)
		);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate goals schema: %w", err)
	}
	return nil
}

const goalColumns = `id, owner_id, name, tasks, routines, milestones, version, created_at, updated_at`

// Create inserts a new goal row.
func (s *Postgres) Create(ctx context.Context, g *models.Goal) error {
	tasks, routines, milestones, err := marshalCollections(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO goals (`+goalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(g.ID), uuid.UUID(g.OwnerID), g.Name, tasks, routines, milestones, g.Version, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

// FindByID loads a single goal, or sentinel.ErrNotFound.
func (s *Postgres) FindByID(ctx context.Context, goalID id.GoalID) (*models.Goal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = $1`, uuid.UUID(goalID))
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find goal: %w", err)
	}
	return g, nil
}

// FetchOwned returns the goals owned by userID in creation order.
func (s *Postgres) FetchOwned(ctx context.Context, userID id.UserID) ([]*models.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+goalColumns+` FROM goals
		WHERE owner_id = $1
		ORDER BY created_at, id
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("fetch owned goals: %w", err)
	}
	defer rows.Close()
	return scanGoals(rows)
}

// FetchShared returns the goals shared with userID in creation order.
func (s *Postgres) FetchShared(ctx context.Context, userID id.UserID) ([]*models.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+goalColumns+` FROM goals g
		JOIN goal_shares sh ON sh.goal_id = g.id
		WHERE sh.user_id = $1
		ORDER BY g.created_at, g.id
	`, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("fetch shared goals: %w", err)
	}
	defer rows.Close()
	return scanGoals(rows)
}

// Share grants userID read access to the goal.
func (s *Postgres) Share(ctx context.Context, goalID id.GoalID, userID id.UserID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goal_shares (goal_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, uuid.UUID(goalID), uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("share goal: %w", err)
	}
	return nil
}

// UpdateTasks replaces the goal's task collection under the version token.
func (s *Postgres) UpdateTasks(ctx context.Context, goalID id.GoalID, actor id.UserID, version int64, tasks []models.Task) (*models.Goal, error) {
	payload, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("marshal tasks: %w", err)
	}
	return s.casUpdate(ctx, goalID, actor, version, `tasks = $1`, payload, nil)
}

// UpdateRoutines replaces the goal's routine collections (top-level and
// per-milestone) under the version token.
func (s *Postgres) UpdateRoutines(ctx context.Context, goalID id.GoalID, actor id.UserID, version int64, routines []models.Routine, milestones []models.Milestone) (*models.Goal, error) {
	routinePayload, err := json.Marshal(routines)
	if err != nil {
		return nil, fmt.Errorf("marshal routines: %w", err)
	}
	var milestonePayload []byte
	if milestones != nil {
		milestonePayload, err = json.Marshal(milestones)
		if err != nil {
			return nil, fmt.Errorf("marshal milestones: %w", err)
		}
	}
	return s.casUpdate(ctx, goalID, actor, version, `routines = $1`, routinePayload, milestonePayload)
}

// casUpdate performs the compare-and-swap write. A zero-row update is
// classified with a follow-up read: missing row → ErrNotFound, wrong owner →
// ErrPermission, anything else → ErrConflict (stale version).
func (s *Postgres) casUpdate(ctx context.Context, goalID id.GoalID, actor id.UserID, version int64, setClause string, payload, milestonePayload []byte) (*models.Goal, error) {
	now := requestcontext.Now(ctx)

	query := `
		UPDATE goals
		SET ` + setClause + `, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4
	`
	args := []any{payload, now, uuid.UUID(goalID), version}
	if milestonePayload != nil {
		query = `
			UPDATE goals
			SET ` + setClause + `, milestones = $5, version = version + 1, updated_at = $2
			WHERE id = $3 AND version = $4
		`
		args = append(args, milestonePayload)
	}
	if !actor.IsZero() {
		query += ` AND owner_id = $` + fmt.Sprint(len(args)+1)
		args = append(args, uuid.UUID(actor))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update goal rows affected: %w", err)
	}
	if affected == 0 {
		return nil, s.classifyMiss(ctx, goalID, actor)
	}
	return s.FindByID(ctx, goalID)
}

func (s *Postgres) classifyMiss(ctx context.Context, goalID id.GoalID, actor id.UserID) error {
	var ownerID uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT owner_id FROM goals WHERE id = $1`, uuid.UUID(goalID)).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("classify update miss: %w", err)
	}
	if !actor.IsZero() && ownerID != uuid.UUID(actor) {
		return sentinel.ErrPermission
	}
	return sentinel.ErrConflict
}

func marshalCollections(g *models.Goal) (tasks, routines, milestones []byte, err error) {
	if tasks, err = json.Marshal(emptyIfNilTasks(g.Tasks)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal tasks: %w", err)
	}
	if routines, err = json.Marshal(emptyIfNilRoutines(g.Routines)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal routines: %w", err)
	}
	if milestones, err = json.Marshal(emptyIfNilMilestones(g.Milestones)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal milestones: %w", err)
	}
	return tasks, routines, milestones, nil
}

func emptyIfNilTasks(in []models.Task) []models.Task {
	if in == nil {
		return []models.Task{}
	}
	return in
}

func emptyIfNilRoutines(in []models.Routine) []models.Routine {
	if in == nil {
		return []models.Routine{}
	}
	return in
}

func emptyIfNilMilestones(in []models.Milestone) []models.Milestone {
	if in == nil {
		return []models.Milestone{}
	}
	return in
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (*models.Goal, error) {
	var (
		g          models.Goal
		goalID     uuid.UUID
		ownerID    uuid.UUID
		tasks      []byte
		routines   []byte
		milestones []byte
	)
	if err := row.Scan(&goalID, &ownerID, &g.Name, &tasks, &routines, &milestones, &g.Version, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.ID = id.GoalID(goalID)
	g.OwnerID = id.UserID(ownerID)
	if err := json.Unmarshal(tasks, &g.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}
	if err := json.Unmarshal(routines, &g.Routines); err != nil {
		return nil, fmt.Errorf("unmarshal routines: %w", err)
	}
	if err := json.Unmarshal(milestones, &g.Milestones); err != nil {
		return nil, fmt.Errorf("unmarshal milestones: %w", err)
	}
	return &g, nil
}

func scanGoals(rows *sql.Rows) ([]*models.Goal, error) {
	var out []*models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}
