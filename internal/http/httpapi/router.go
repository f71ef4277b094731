package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"outfitstudio/internal/http/handlers"
	"outfitstudio/internal/infra"
	"outfitstudio/internal/middleware"
)

// Options carries the router settings that do not belong to App.
type Options struct {
	JWTSecret       string
	CORSOrigins     []string
	RateLimitPerMin int
	// Static serves locally stored images under /static when set.
	Static http.Handler
	Logger *infra.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/readyz", app.Ready)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Handle("/metrics", promhttp.Handler())

	if opts.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static", opts.Static))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))

		r.Route("/v1/jobs", func(r chi.Router) {
			r.Post("/preview", app.EnqueuePreview)
			r.Post("/final", app.EnqueueFinal)
			r.Get("/{job_id}", app.JobStatus)
		})
		r.Post("/v1/feedback", app.RecordFeedback)
		r.Get("/v1/preferences", app.Preferences)
	})

	return r
}
