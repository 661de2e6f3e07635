// Package handler exposes the scheduling engine over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"stride/internal/platform/metrics"
	"stride/internal/platform/middleware"
	"stride/internal/schedule"
	"stride/internal/transport/http/shared"
	id "stride/pkg/domain"
	dErrors "stride/pkg/domain-errors"
	"stride/pkg/requestcontext"
)

const maxWindowDays = 31

//go:generate mockgen -source=handler.go -destination=mocks/schedule-mocks.go -package=mocks Service

// Service defines the scheduling operations the transport needs.
type Service interface {
	Occurrences(ctx context.Context, userID id.UserID, window schedule.Window) (*schedule.View, error)
	CompleteOccurrence(ctx context.Context, userID id.UserID, occurrenceID string) (*schedule.View, error)
	Refresh(ctx context.Context, userID id.UserID) (*schedule.View, error)
}

// Handler handles worklist endpoints.
type Handler struct {
	logger       *slog.Logger
	schedule     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new schedule Handler.
func New(
	scheduleService Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		schedule:     scheduleService,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register registers the schedule routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	scheduleRouter := chi.NewRouter()
	scheduleRouter.Use(middleware.Recovery(h.logger))
	scheduleRouter.Use(middleware.RequestID)
	scheduleRouter.Use(middleware.Logger(h.logger))
	scheduleRouter.Use(middleware.Timeout(30 * time.Second))
	scheduleRouter.Use(middleware.ContentTypeJSON)
	scheduleRouter.Use(middleware.RequestTime)
	scheduleRouter.Use(middleware.Latency(h.metrics, "/schedule"))
	scheduleRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	scheduleRouter.Get("/schedule/occurrences", h.handleOccurrences)
	scheduleRouter.Post("/schedule/occurrences/{occurrenceID}/complete", h.handleComplete)
	scheduleRouter.Post("/schedule/refresh", h.handleRefresh)

	r.Mount("/", scheduleRouter)
}

// handleOccurrences returns the materialized worklist. Defaults to today's
// single-day window; date=YYYY-MM-DD and days=N widen it.
func (h *Handler) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authedUser(w, ctx)
	if !ok {
		return
	}

	window, err := parseWindow(r, requestcontext.Now(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	view, err := h.schedule.Occurrences(ctx, userID, window)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to materialize worklist",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}

// handleComplete records a completion. 204 on success; replays within the
// same day are also 204 since the mutation is idempotent.
func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authedUser(w, ctx)
	if !ok {
		return
	}

	occurrenceID := chi.URLParam(r, "occurrenceID")
	if occurrenceID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "occurrence id is required"))
		return
	}

	if _, err := h.schedule.CompleteOccurrence(ctx, userID, occurrenceID); err != nil {
		h.logger.WarnContext(ctx, "completion rejected",
			"request_id", requestcontext.RequestID(ctx),
			"occurrence_id", occurrenceID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefresh forces a re-materialization.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.authedUser(w, ctx)
	if !ok {
		return
	}

	if _, err := h.schedule.Refresh(ctx, userID); err != nil {
		h.logger.ErrorContext(ctx, "refresh failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) authedUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := middleware.GetUserID(ctx)
	if userID.IsZero() {
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.UserID{}, false
	}
	return userID, true
}

func parseWindow(r *http.Request, now time.Time) (schedule.Window, error) {
	anchor := now
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return schedule.Window{}, dErrors.New(dErrors.CodeBadRequest, "date must be YYYY-MM-DD")
		}
		anchor = parsed
	}

	days := 1
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxWindowDays {
			return schedule.Window{}, dErrors.Newf(dErrors.CodeBadRequest, "days must be between 1 and %d", maxWindowDays)
		}
		days = parsed
	}
	return schedule.DaysWindow(anchor, days), nil
}
