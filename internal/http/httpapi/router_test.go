package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/http/handlers"
	"outfitstudio/internal/jobs"
	"outfitstudio/internal/middleware"
	"outfitstudio/internal/preference"
)

const testSecret = "router-secret"

type fakeJobs struct{}

func (fakeJobs) EnqueuePreview(ctx context.Context, req jobs.EnqueueRequest) (*jobs.EnqueueResult, error) {
	return &jobs.EnqueueResult{JobID: "job-1", Status: domain.JobStatusQueued, EstimatedDurationSec: 60}, nil
}

func (fakeJobs) EnqueueFinal(ctx context.Context, req jobs.EnqueueRequest) (*jobs.EnqueueResult, error) {
	return &jobs.EnqueueResult{JobID: "job-2", Status: domain.JobStatusQueued, EstimatedDurationSec: 45}, nil
}

func (fakeJobs) Get(ctx context.Context, jobID, userID string) (*domain.GenerationJob, error) {
	return &domain.GenerationJob{ID: jobID, UserID: userID, Status: domain.JobStatusProcessing}, nil
}

type fakePrefs struct{}

func (fakePrefs) RecordFeedback(ctx context.Context, event domain.FeedbackEvent) (*preference.RecordResult, error) {
	return &preference.RecordResult{Success: true}, nil
}

func (fakePrefs) GetUserPreferences(ctx context.Context, userID string) (domain.TopPreferences, error) {
	return domain.TopPreferences{}, nil
}

func newTestRouter(static http.Handler) http.Handler {
	app := handlers.NewApp(fakeJobs{}, fakePrefs{}, nil)
	return NewRouter(app, Options{
		JWTSecret:       testSecret,
		CORSOrigins:     []string{"*"},
		RateLimitPerMin: 100,
		Static:          static,
	})
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := middleware.SignJWT(testSecret, middleware.TokenClaims{Sub: userID, Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return "Bearer " + token
}

func TestPublicRoutes(t *testing.T) {
	router := newTestRouter(nil)
	for _, path := range []string{"/v1/healthz", "/v1/readyz", "/v1/openapi.json", "/v1/docs", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("authorized status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestEnqueueRouteReturnsAccepted(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/final", strings.NewReader(`{"recommendation_id":"rec-1"}`))
	req.Header.Set("Authorization", bearer(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"job_id":"job-2"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestStaticMountStripsPrefix(t *testing.T) {
	var gotPath string
	static := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	router := newTestRouter(static)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/outfits/previews/u/j/img_1.png", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotPath != "/outfits/previews/u/j/img_1.png" {
		t.Fatalf("static path = %q", gotPath)
	}
}
