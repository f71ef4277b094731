// Package bootstrap wires the services shared by the API and worker processes.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"outfitstudio/internal/adapter/repo"
	"outfitstudio/internal/assets"
	"outfitstudio/internal/infra"
	"outfitstudio/internal/infra/credentials"
	"outfitstudio/internal/jobs"
	"outfitstudio/internal/preference"
	"outfitstudio/internal/providers/genai"
	"outfitstudio/internal/storage"
)

// Services holds everything a process needs after startup.
type Services struct {
	Pool         *pgxpool.Pool
	Jobs         *repo.JobRepositoryPG
	Queue        jobs.Queue
	Generator    *genai.Client
	Orchestrator *jobs.Orchestrator
	Preferences  *preference.Service
	// FileStore is set in filesystem storage mode so the API can serve it.
	FileStore *storage.FileStore

	closers []func() error
}

// Build connects to the database, the optional queue and the object store.
// A missing REDIS_ADDR leaves Queue nil and jobs run in-process.
func Build(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Services, error) {
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Services{Pool: pool}
	s.closers = append(s.closers, func() error { pool.Close(); return nil })

	runner := infra.NewSQLRunner(pool, infra.Component(logger, "sql"))
	s.Jobs = repo.NewJobRepository(runner)

	store, err := s.objectStore(ctx, cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	pubLogger := infra.Component(logger, "assets")
	publisher := assets.NewPublisher(store, cfg.StorageRoot, cfg.SignedURLTTL, &pubLogger)

	apiKey, err := credentials.NewStore(runner).ResolveGeminiAPIKey(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Warn().Err(err).Msg("bootstrap: gemini api key lookup failed")
		apiKey = ""
	}
	genLogger := infra.Component(logger, "genai")
	s.Generator, err = genai.NewClient(genai.Options{
		APIKey:        apiKey,
		BaseURL:       cfg.GeminiBaseURL,
		PreviewModel:  cfg.GeminiPreviewModel,
		FinalModel:    cfg.GeminiFinalModel,
		HTTPClient:    &http.Client{Timeout: cfg.JobTimeout},
		Logger:        &genLogger,
		RatePerSecond: cfg.GeminiRatePerSec,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	if s.Generator.Synthetic() {
		logger.Warn().Msg("bootstrap: gemini api key missing, rendering synthetic images")
	}

	if cfg.RedisAddr != "" {
		client := jobs.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		q := jobs.NewRedisQueue(client, cfg.QueueName)
		s.Queue = q
		s.closers = append(s.closers, q.Close)
	} else {
		logger.Warn().Msg("bootstrap: REDIS_ADDR not set, jobs run in-process")
	}

	orchLogger := infra.Component(logger, "jobs")
	s.Orchestrator = jobs.NewOrchestrator(s.Jobs, s.Queue, s.Generator, publisher, jobs.Options{
		PreviewVariations: cfg.PreviewVariations,
		FinalVariations:   cfg.FinalVariations,
		JobTimeout:        cfg.JobTimeout,
		Logger:            &orchLogger,
	})

	prefLogger := infra.Component(logger, "preference")
	s.Preferences = preference.NewService(repo.NewFeedbackRepository(runner), repo.NewPreferenceRepository(runner), &prefLogger)
	return s, nil
}

func (s *Services) objectStore(ctx context.Context, cfg *infra.Config) (assets.ObjectStore, error) {
	switch cfg.StorageMode {
	case infra.StorageModeGCS:
		store, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentials)
		if err != nil {
			return nil, fmt.Errorf("configure gcs storage: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	default:
		path := cfg.StoragePath
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		store, err := storage.NewFileStore(path, cfg.StorageBaseURL, cfg.StorageSignKey)
		if err != nil {
			return nil, fmt.Errorf("configure file storage: %w", err)
		}
		s.FileStore = store
		return store, nil
	}
}

// Close releases connections in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
	s.closers = nil
}
