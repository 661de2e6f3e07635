package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"stride/internal/audit"
	auditmem "stride/internal/audit/store/memory"
	"stride/internal/goal/models"
	goalstore "stride/internal/goal/store/goal"
	id "stride/pkg/domain"
	dErrors "stride/pkg/domain-errors"
	"stride/pkg/platform/sentinel"
	"stride/pkg/requestcontext"
)

// flakyStore wraps the in-memory store to inject fetch outages, version
// conflicts, and a one-shot gate that holds a fetch open mid-flight.
type flakyStore struct {
	*goalstore.InMemory
	fetchErr      error
	conflictsLeft int
	fetchStarted  chan struct{}
	fetchGate     chan struct{}
}

func (f *flakyStore) FetchOwned(ctx context.Context, userID id.UserID) ([]*models.Goal, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.fetchGate != nil {
		gate := f.fetchGate
		f.fetchGate = nil
		close(f.fetchStarted)
		<-gate
	}
	return f.InMemory.FetchOwned(ctx, userID)
}

func (f *flakyStore) FetchShared(ctx context.Context, userID id.UserID) ([]*models.Goal, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.InMemory.FetchShared(ctx, userID)
}

func (f *flakyStore) UpdateRoutines(ctx context.Context, goalID id.GoalID, actor id.UserID, version int64, routines []models.Routine, milestones []models.Milestone) (*models.Goal, error) {
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return nil, sentinel.ErrConflict
	}
	return f.InMemory.UpdateRoutines(ctx, goalID, actor, version, routines, milestones)
}

type ServiceSuite struct {
	suite.Suite
	store  *flakyStore
	events *auditmem.InMemoryStore
	svc    *Service
	ctx    context.Context
	owner  id.UserID
}

func (s *ServiceSuite) SetupTest() {
	s.store = &flakyStore{InMemory: goalstore.NewInMemory()}
	s.events = auditmem.NewInMemoryStore()
	s.svc = New(s.store, WithAuditPublisher(audit.NewPublisher(s.events)))
	s.ctx = requestcontext.WithTime(context.Background(), wednesday.Add(9*time.Hour))
	s.owner = id.UserID(uuid.New())
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) seedGoal(mutate func(*models.Goal)) *models.Goal {
	g := &models.Goal{
		ID:        id.GoalID(uuid.New()),
		Name:      "Learn piano",
		OwnerID:   s.owner,
		Version:   1,
		CreatedAt: wednesday.AddDate(0, -2, 0),
	}
	if mutate != nil {
		mutate(g)
	}
	s.Require().NoError(s.store.Create(s.ctx, g))
	return g
}

func dailyRoutine(title string) models.Routine {
	return models.Routine{
		ID:        id.RoutineID(uuid.New()),
		Title:     title,
		Frequency: models.FrequencyDaily,
		Schedule:  &models.Schedule{TargetCount: 1},
		CreatedAt: wednesday.AddDate(0, -2, 0),
	}
}

func (s *ServiceSuite) TestOccurrencesAcrossOwnedAndShared() {
	s.seedGoal(func(g *models.Goal) {
		g.Tasks = []models.Task{task("tune the piano", nil)}
	})
	other := id.UserID(uuid.New())
	shared := &models.Goal{
		ID: id.GoalID(uuid.New()), Name: "Band practice", OwnerID: other, Version: 1,
		Routines:  []models.Routine{dailyRoutine("rehearse")},
		CreatedAt: wednesday.AddDate(0, -1, 0),
	}
	s.Require().NoError(s.store.Create(s.ctx, shared))
	s.Require().NoError(s.store.Share(s.ctx, shared.ID, s.owner))

	view, err := s.svc.Occurrences(s.ctx, s.owner, DayWindow(wednesday))
	s.Require().NoError(err)
	s.Require().Len(view.Occurrences, 2)
	s.False(view.Stale)

	titles := []string{view.Occurrences[0].Title, view.Occurrences[1].Title}
	s.ElementsMatch([]string{"tune the piano", "rehearse"}, titles)
}

func (s *ServiceSuite) TestCompleteTaskRoundTrip() {
	first := task("write outline", nil)
	second := task("write chapter one", func(t *models.Task) {
		t.DependsOn = []models.DependencyRef{{TaskID: first.ID, Kind: models.DependencyRequires}}
	})
	g := s.seedGoal(func(g *models.Goal) {
		g.Tasks = []models.Task{first, second}
	})

	view, err := s.svc.Occurrences(s.ctx, s.owner, DayWindow(wednesday))
	s.Require().NoError(err)
	s.True(findOcc(s.T(), view, second.ID.String()).Blocked)

	view, err = s.svc.CompleteOccurrence(s.ctx, s.owner, first.ID.String())
	s.Require().NoError(err)
	s.True(findOcc(s.T(), view, first.ID.String()).Completed)
	s.False(findOcc(s.T(), view, second.ID.String()).Blocked, "dependent unblocks in the refreshed view")

	stored, err := s.store.FindByID(s.ctx, g.ID)
	s.Require().NoError(err)
	s.EqualValues(2, stored.Version)
	s.True(stored.Tasks[0].Completed)
}

func (s *ServiceSuite) TestCompleteRoutineIsIdempotentPerDay() {
	r := dailyRoutine("scales")
	g := s.seedGoal(func(g *models.Goal) {
		g.Routines = []models.Routine{r}
	})
	occID := RoutineOccurrenceID(r.ID, wednesday)

	_, err := s.svc.CompleteOccurrence(s.ctx, s.owner, occID)
	s.Require().NoError(err)
	_, err = s.svc.CompleteOccurrence(s.ctx, s.owner, occID)
	s.Require().NoError(err)

	stored, err := s.store.FindByID(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Len(stored.Routines[0].Completions, 1, "same-day replays must not inflate the count")

	events, err := s.events.ListByUser(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().NotEmpty(events)
	s.Equal(audit.ActionCompletionRecorded, events[0].Action)
}

func (s *ServiceSuite) TestCompleteStaleOccurrenceLandsOnItsDay() {
	r := dailyRoutine("scales")
	g := s.seedGoal(func(g *models.Goal) {
		g.Routines = []models.Routine{r}
	})

	// Thursday morning, completing Wednesday's occurrence from a view left
	// open overnight.
	thursday := wednesday.AddDate(0, 0, 1)
	ctx := requestcontext.WithTime(context.Background(), thursday.Add(9*time.Hour))
	staleID := RoutineOccurrenceID(r.ID, wednesday)

	_, err := s.svc.CompleteOccurrence(ctx, s.owner, staleID)
	s.Require().NoError(err)
	view, err := s.svc.CompleteOccurrence(ctx, s.owner, staleID)
	s.Require().NoError(err)

	stored, err := s.store.FindByID(ctx, g.ID)
	s.Require().NoError(err)
	s.Require().Len(stored.Routines[0].Completions, 1, "replaying a stale id must not inflate the count")
	s.True(stored.Routines[0].CompletedOn(wednesday), "completion lands on the occurrence's day")
	s.False(stored.Routines[0].CompletedOn(thursday))
	s.False(findOcc(s.T(), view, RoutineOccurrenceID(r.ID, thursday)).Completed,
		"today's occurrence stays open")
}

func (s *ServiceSuite) TestSupersededEvaluationIsDiscarded() {
	s.seedGoal(func(g *models.Goal) {
		g.Tasks = []models.Task{task("draft agenda", nil)}
	})

	started := make(chan struct{})
	gate := make(chan struct{})
	s.store.fetchStarted = started
	s.store.fetchGate = gate

	resolved := make(chan *View, 1)
	go func() {
		view, err := s.svc.Occurrences(s.ctx, s.owner, DayWindow(wednesday))
		s.NoError(err)
		resolved <- view
	}()
	<-started

	// A second evaluation starts and resolves while the first is still
	// waiting on its fetch.
	later := requestcontext.WithTime(context.Background(), wednesday.Add(10*time.Hour))
	fresh, err := s.svc.Occurrences(later, s.owner, DayWindow(wednesday))
	s.Require().NoError(err)

	close(gate)
	superseded := <-resolved
	s.Equal(fresh.Generation, superseded.Generation, "older evaluation resolves to the retained newer view")
	s.Equal(fresh.FetchedAt, superseded.FetchedAt)

	s.store.fetchErr = sentinel.ErrUnavailable
	degraded, err := s.svc.Occurrences(s.ctx, s.owner, DayWindow(wednesday))
	s.Require().NoError(err)
	s.True(degraded.Stale)
	s.Equal(fresh.FetchedAt, degraded.FetchedAt, "retention kept the later evaluation")
}

func (s *ServiceSuite) TestCompleteRetriesOnConflict() {
	r := dailyRoutine("stretch")
	g := s.seedGoal(func(g *models.Goal) {
		g.Routines = []models.Routine{r}
	})

	s.store.conflictsLeft = 2
	_, err := s.svc.CompleteOccurrence(s.ctx, s.owner, RoutineOccurrenceID(r.ID, wednesday))
	s.Require().NoError(err, "bounded retry should absorb transient conflicts")

	stored, err := s.store.FindByID(s.ctx, g.ID)
	s.Require().NoError(err)
	s.Len(stored.Routines[0].Completions, 1)

	s.Run("exhausted retries surface a conflict", func() {
		s.store.conflictsLeft = 100
		_, err := s.svc.CompleteOccurrence(s.ctx, s.owner, RoutineOccurrenceID(r.ID, wednesday.AddDate(0, 0, 1)))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestCompleteSharedGoalRequiresOwnership() {
	other := id.UserID(uuid.New())
	r := dailyRoutine("water the plants")
	shared := &models.Goal{
		ID: id.GoalID(uuid.New()), Name: "Garden", OwnerID: other, Version: 1,
		Routines: []models.Routine{r}, CreatedAt: wednesday.AddDate(0, -1, 0),
	}
	s.Require().NoError(s.store.Create(s.ctx, shared))
	s.Require().NoError(s.store.Share(s.ctx, shared.ID, s.owner))

	_, err := s.svc.CompleteOccurrence(s.ctx, s.owner, RoutineOccurrenceID(r.ID, wednesday))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ServiceSuite) TestCompleteUnknownOccurrence() {
	s.seedGoal(nil)

	_, err := s.svc.CompleteOccurrence(s.ctx, s.owner, uuid.NewString())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.CompleteOccurrence(s.ctx, s.owner, "not-an-id")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestOutageFallsBackToRetainedView() {
	s.seedGoal(func(g *models.Goal) {
		g.Tasks = []models.Task{task("existing work", nil)}
	})

	view, err := s.svc.Occurrences(s.ctx, s.owner, DayWindow(wednesday))
	s.Require().NoError(err)
	s.Require().Len(view.Occurrences, 1)

	s.store.fetchErr = sentinel.ErrUnavailable
	degraded, err := s.svc.Occurrences(s.ctx, s.owner, DayWindow(wednesday))
	s.Require().NoError(err)
	s.True(degraded.Stale)
	s.Len(degraded.Occurrences, 1, "retained worklist still served")

	s.Run("no retained view means an unavailable error", func() {
		stranger := id.UserID(uuid.New())
		_, err := s.svc.Occurrences(s.ctx, stranger, DayWindow(wednesday))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestRefreshUsesRequestTime() {
	r := dailyRoutine("journal")
	s.seedGoal(func(g *models.Goal) {
		g.Routines = []models.Routine{r}
	})

	view, err := s.svc.Refresh(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(view.Occurrences, 1)
	s.Equal(RoutineOccurrenceID(r.ID, wednesday), view.Occurrences[0].ID)
}

func findOcc(t *testing.T, view *View, occID string) Occurrence {
	t.Helper()
	for _, occ := range view.Occurrences {
		if occ.ID == occID {
			return occ
		}
	}
	t.Fatalf("occurrence %s not in view", occID)
	return Occurrence{}
}
