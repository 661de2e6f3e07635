package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"stride/internal/audit"
	"stride/internal/goal/models"
	"stride/internal/schedule/metrics"
	id "stride/pkg/domain"
	dErrors "stride/pkg/domain-errors"
	"stride/pkg/platform/sentinel"
	"stride/pkg/requestcontext"
)

// completionRetries bounds how many times a completion is replayed after a
// version conflict before giving up.
const completionRetries = 3

//go:generate mockgen -source=service.go -destination=mocks/service_mocks.go -package=mocks

// GoalStore is the repository surface the engine needs: visible-goal fetches
// plus version-checked collection replacement.
type GoalStore interface {
	FetchOwned(ctx context.Context, userID id.UserID) ([]*models.Goal, error)
	FetchShared(ctx context.Context, userID id.UserID) ([]*models.Goal, error)
	UpdateTasks(ctx context.Context, goalID id.GoalID, actor id.UserID, version int64, tasks []models.Task) (*models.Goal, error)
	UpdateRoutines(ctx context.Context, goalID id.GoalID, actor id.UserID, version int64, routines []models.Routine, milestones []models.Milestone) (*models.Goal, error)
}

// SnapshotStore persists the last successfully materialized view per user so
// a restart or a repository outage can still answer reads.
type SnapshotStore interface {
	Save(ctx context.Context, view *View) error
	Load(ctx context.Context, userID id.UserID) (*View, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// View is one materialized worklist: the occurrences visible to a user over
// a window, plus the bookkeeping needed for staleness and supersession.
type View struct {
	UserID      id.UserID    `json:"user_id"`
	Window      Window       `json:"window"`
	Occurrences []Occurrence `json:"occurrences"`
	Dangling    int          `json:"dangling_dependencies,omitempty"`
	Generation  uint64       `json:"-"`
	Stale       bool         `json:"stale"`
	FetchedAt   time.Time    `json:"fetched_at"`
}

// Service orchestrates materialization and completion over the goal
// repository. Reads never block each other; the only internal lock guards
// the per-user retained snapshot and generation counters.
type Service struct {
	store     GoalStore
	pipeline  *Pipeline
	snapshots SnapshotStore
	publisher AuditPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer

	mu       sync.Mutex
	issued   map[id.UserID]uint64
	accepted map[id.UserID]uint64
	lastGood map[id.UserID]*View
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
		s.pipeline = NewPipeline(logger, s.metrics)
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
		s.pipeline = NewPipeline(s.logger, m)
	}
}

func WithSnapshotStore(store SnapshotStore) Option {
	return func(s *Service) {
		s.snapshots = store
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// New constructs a Service.
func New(store GoalStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   slog.Default(),
		tracer:   otel.Tracer("stride/schedule"),
		issued:   make(map[id.UserID]uint64),
		accepted: make(map[id.UserID]uint64),
		lastGood: make(map[id.UserID]*View),
	}
	s.pipeline = NewPipeline(s.logger, nil)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Occurrences materializes the worklist for every goal the user can see,
// over the given window. When the repository is unreachable it falls back to
// the retained last-good view (or the snapshot store) with Stale set, so
// callers can render and offer a retry instead of failing outright.
func (s *Service) Occurrences(ctx context.Context, userID id.UserID, window Window) (*View, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "schedule.occurrences",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	gen := s.issueGeneration(userID)
	goals, err := s.fetchVisible(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return s.serveRetained(ctx, userID, err)
	}

	view := &View{
		UserID:     userID,
		Window:     window,
		Generation: gen,
		FetchedAt:  requestcontext.Now(ctx),
	}
	view.Occurrences, view.Dangling = s.pipeline.Materialize(goals, window)

	accepted := s.accept(view)
	if s.metrics != nil {
		s.metrics.ObserveOccurrences(start)
	}
	span.SetAttributes(attribute.Int("occurrences", len(accepted.Occurrences)))
	return accepted, nil
}

// Refresh forces a re-materialization of the single-day view. The request
// time anchors "today".
func (s *Service) Refresh(ctx context.Context, userID id.UserID) (*View, error) {
	view, err := s.Occurrences(ctx, userID, DayWindow(requestcontext.Now(ctx)))
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, audit.Event{UserID: userID, Action: audit.ActionWorklistRefreshed})
	return view, nil
}

// CompleteOccurrence records a completion for the occurrence and returns the
// refreshed worklist so dependency flags and recurrence state are current.
//
// Routine occurrences append a completion timestamp guarded against
// duplicates on the same calendar day, so replaying a completion is a no-op
// rather than an inflated count. Task occurrences toggle the task done.
// Version conflicts from concurrent writers are retried a bounded number of
// times against freshly read state.
func (s *Service) CompleteOccurrence(ctx context.Context, userID id.UserID, occurrenceID string) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "schedule.complete",
		trace.WithAttributes(attribute.String("occurrence_id", occurrenceID)))
	defer span.End()

	routineID, day, taskID, isRoutine, err := ParseOccurrenceID(occurrenceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed occurrence id")
	}

	var lastErr error
	for attempt := 0; attempt < completionRetries; attempt++ {
		if isRoutine {
			err = s.completeRoutine(ctx, userID, routineID, day)
		} else {
			err = s.completeTask(ctx, userID, taskID)
		}
		if err == nil {
			s.emitAudit(ctx, audit.Event{
				UserID:       userID,
				Action:       audit.ActionCompletionRecorded,
				OccurrenceID: occurrenceID,
			})
			if s.metrics != nil {
				s.metrics.CompletionsRecorded.Inc()
			}
			return s.Occurrences(ctx, userID, DayWindow(requestcontext.Now(ctx)))
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			span.RecordError(err)
			return nil, err
		}
		lastErr = err
		if s.metrics != nil {
			s.metrics.CompletionConflicts.Inc()
		}
		s.logger.DebugContext(ctx, "completion hit version conflict, retrying",
			"occurrence_id", occurrenceID, "attempt", attempt+1)
	}
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "completion retries exhausted")
	return nil, dErrors.Wrap(lastErr, dErrors.CodeConflict, "goal changed concurrently, retry the completion")
}

func (s *Service) completeRoutine(ctx context.Context, userID id.UserID, routineID id.RoutineID, day time.Time) error {
	g, err := s.findGoalWithRoutine(ctx, userID, routineID)
	if err != nil {
		return err
	}
	r := g.RoutineByID(routineID)
	if r.CompletedOn(day) {
		return nil
	}
	// Record on the occurrence's calendar day, not the request's. A stale id
	// from yesterday's view completes yesterday, keeps the duplicate guard in
	// agreement with what it appends, and leaves today's occurrence open.
	now := requestcontext.Now(ctx)
	stamp := time.Date(day.Year(), day.Month(), day.Day(),
		now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
	r.Completions = append(r.Completions, stamp)
	_, err = s.store.UpdateRoutines(ctx, g.ID, userID, g.Version, g.Routines, g.Milestones)
	return s.translateStoreErr(err, "routine")
}

func (s *Service) completeTask(ctx context.Context, userID id.UserID, taskID id.TaskID) error {
	g, err := s.findGoalWithTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	t := g.TaskByID(taskID)
	if t.Completed {
		return nil
	}
	t.ApplyToggle(requestcontext.Now(ctx))
	_, err = s.store.UpdateTasks(ctx, g.ID, userID, g.Version, g.Tasks)
	return s.translateStoreErr(err, "task")
}

// translateStoreErr maps repository sentinels to coded errors, keeping
// ErrConflict untranslated so the retry loop can detect it.
func (s *Service) translateStoreErr(err error, kind string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrConflict):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, kind+" no longer exists")
	case errors.Is(err, sentinel.ErrPermission):
		return dErrors.New(dErrors.CodeForbidden, "not allowed to modify this goal")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist completion")
	}
}

func (s *Service) findGoalWithRoutine(ctx context.Context, userID id.UserID, routineID id.RoutineID) (*models.Goal, error) {
	goals, err := s.fetchVisible(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "goal repository unavailable")
	}
	for _, g := range goals {
		if g.RoutineByID(routineID) != nil {
			return g, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "occurrence not found")
}

func (s *Service) findGoalWithTask(ctx context.Context, userID id.UserID, taskID id.TaskID) (*models.Goal, error) {
	goals, err := s.fetchVisible(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "goal repository unavailable")
	}
	for _, g := range goals {
		if g.TaskByID(taskID) != nil {
			return g, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "occurrence not found")
}

// fetchVisible loads owned and shared goals in parallel with shared
// cancellation on first failure.
func (s *Service) fetchVisible(ctx context.Context, userID id.UserID) ([]*models.Goal, error) {
	g, ctx := errgroup.WithContext(ctx)

	var owned, shared []*models.Goal
	g.Go(func() error {
		var err error
		owned, err = s.store.FetchOwned(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		shared, err = s.store.FetchShared(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(owned, shared...), nil
}

// serveRetained answers a read from the retained view after a fetch failure.
// Falls back to the snapshot store, and only errors when neither has data.
func (s *Service) serveRetained(ctx context.Context, userID id.UserID, cause error) (*View, error) {
	s.logger.WarnContext(ctx, "goal fetch failed, serving retained view",
		"user_id", userID, "error", cause)

	s.mu.Lock()
	retained := s.lastGood[userID]
	s.mu.Unlock()

	if retained == nil && s.snapshots != nil {
		loaded, err := s.snapshots.Load(ctx, userID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "snapshot load failed", "user_id", userID, "error", err)
		}
		retained = loaded
	}
	if retained == nil {
		return nil, dErrors.Wrap(cause, dErrors.CodeUnavailable, "goal repository unavailable")
	}
	if s.metrics != nil {
		s.metrics.StaleViewsServed.Inc()
	}
	stale := *retained
	stale.Occurrences = append([]Occurrence(nil), retained.Occurrences...)
	stale.Stale = true
	return &stale, nil
}

func (s *Service) issueGeneration(userID id.UserID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued[userID]++
	return s.issued[userID]
}

// accept installs the view as the retained snapshot unless a newer
// generation already landed, in which case the newer view wins and the
// superseded computation is discarded.
func (s *Service) accept(view *View) *View {
	s.mu.Lock()
	if view.Generation < s.accepted[view.UserID] {
		current := s.lastGood[view.UserID]
		s.mu.Unlock()
		return current
	}
	s.accepted[view.UserID] = view.Generation
	s.lastGood[view.UserID] = view
	s.mu.Unlock()

	if s.snapshots != nil {
		if err := s.snapshots.Save(context.Background(), view); err != nil {
			s.logger.Warn("snapshot save failed", "user_id", view.UserID, "error", err)
		}
	}
	return view
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
