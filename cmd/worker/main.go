package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"outfitstudio/internal/bootstrap"
	"outfitstudio/internal/infra"
	"outfitstudio/internal/jobs"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("worker: REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: startup failed")
	}
	defer svc.Close()

	if err := svc.Queue.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker: queue unreachable")
	}

	workerLogger := infra.Component(logger, "worker")
	worker := jobs.NewWorker(svc.Queue, svc.Orchestrator, svc.Jobs, jobs.WorkerOptions{
		Concurrency: cfg.WorkerConcurrency,
		StaleAfter:  cfg.StaleJobAfter,
		Logger:      &workerLogger,
	})

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := infra.NewHTTPServerAt(cfg.WorkerMetricsAddr, cfg, mux)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.Error().Err(err).Msg("worker: metrics server failed")
		}
	}()

	if err := worker.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("worker: run failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	logger.Info().Msg("worker: stopped")
}
