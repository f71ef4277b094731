package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/infra"
	"outfitstudio/internal/jobs"
	"outfitstudio/internal/middleware"
	"outfitstudio/internal/preference"
)

const maxBodyBytes = 1 << 20

// JobService is the job surface the API exposes.
type JobService interface {
	EnqueuePreview(ctx context.Context, req jobs.EnqueueRequest) (*jobs.EnqueueResult, error)
	EnqueueFinal(ctx context.Context, req jobs.EnqueueRequest) (*jobs.EnqueueResult, error)
	Get(ctx context.Context, jobID, userID string) (*domain.GenerationJob, error)
}

// PreferenceService records feedback and reads learned preferences.
type PreferenceService interface {
	RecordFeedback(ctx context.Context, event domain.FeedbackEvent) (*preference.RecordResult, error)
	GetUserPreferences(ctx context.Context, userID string) (domain.TopPreferences, error)
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type App struct {
	Jobs   JobService
	Prefs  PreferenceService
	Logger *infra.Logger
	Checks map[string]ReadinessCheck
}

func NewApp(jobService JobService, prefs PreferenceService, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &App{Jobs: jobService, Prefs: prefs, Logger: logger, Checks: map[string]ReadinessCheck{}}
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, r *http.Request, code int, kind, message string) {
	a.json(w, code, errorResponse{Error: kind, Message: message, RequestID: middleware.RequestIDFromContext(r.Context())})
}

// serviceError maps domain errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500.
func (a *App) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, r, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, r, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrInvalidState):
		a.error(w, r, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "unauthorized")
	default:
		a.Logger.Error().
			Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("http: request failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}
