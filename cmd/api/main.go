package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outfitstudio/internal/bootstrap"
	"outfitstudio/internal/http/handlers"
	httpapi "outfitstudio/internal/http/httpapi"
	"outfitstudio/internal/infra"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if err := cfg.RequireJWTSecret(); err != nil {
		logger.Fatal().Err(err).Msg("api: invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: startup failed")
	}
	defer svc.Close()

	httpLogger := infra.Component(logger, "http")
	app := handlers.NewApp(svc.Orchestrator, svc.Preferences, &httpLogger)
	app.Checks["db"] = svc.Pool.Ping
	if svc.Queue != nil {
		app.Checks[handlers.QueueCheck] = svc.Queue.Ping
	}

	opts := httpapi.Options{
		JWTSecret:       cfg.JWTSecret,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Logger:          &httpLogger,
	}
	if svc.FileStore != nil {
		opts.Static = svc.FileStore.Handler()
	}
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, opts))

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api: listening")
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("api: http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}

	// Jobs that fell back to in-process execution still need their terminal write.
	done := make(chan struct{})
	go func() {
		svc.Orchestrator.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("api: in-process jobs still running at exit")
	}
	logger.Info().Msg("api: stopped")
}
