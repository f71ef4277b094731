package jobs

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/infra"
)

const (
	defaultPopTimeout   = 5 * time.Second
	defaultStaleAfter   = 15 * time.Minute
	queueErrorBackoff   = 2 * time.Second
	recoveryBatchSize   = 500
	interruptedErrorMsg = "worker interrupted"
)

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	Concurrency int
	// StaleAfter marks processing jobs untouched for this long as interrupted.
	StaleAfter time.Duration
	PopTimeout time.Duration
	Logger     *infra.Logger
}

// Worker drains the queue with a fixed number of goroutines. Each goroutine
// handles one job at a time.
type Worker struct {
	queue       Queue
	orch        *Orchestrator
	repo        domain.JobRepository
	concurrency int
	staleAfter  time.Duration
	popTimeout  time.Duration
	logger      *infra.Logger
	now         func() time.Time
}

func NewWorker(queue Queue, orch *Orchestrator, repo domain.JobRepository, opts WorkerOptions) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	w := &Worker{
		queue:       queue,
		orch:        orch,
		repo:        repo,
		concurrency: opts.Concurrency,
		staleAfter:  opts.StaleAfter,
		popTimeout:  opts.PopTimeout,
		logger:      logger,
		now:         time.Now,
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.staleAfter <= 0 {
		w.staleAfter = defaultStaleAfter
	}
	if w.popTimeout <= 0 {
		w.popTimeout = defaultPopTimeout
	}
	return w
}

// Run recovers leftovers from a previous run and then consumes the queue until
// ctx is cancelled. Jobs already started when ctx ends run to completion.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.Recover(ctx); err != nil {
		w.logger.Error().Err(err).Msg("worker: recovery failed")
	}

	w.logger.Info().Int("concurrency", w.concurrency).Msg("worker: started")
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		slot := i
		g.Go(func() error {
			w.loop(gctx, slot)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) loop(ctx context.Context, slot int) {
	log := w.logger.With().Int("slot", slot).Logger()
	for {
		if ctx.Err() != nil {
			return
		}
		jobID, err := w.queue.Pop(ctx, w.popTimeout)
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) || ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Msg("worker: queue pop failed")
			select {
			case <-ctx.Done():
			case <-time.After(queueErrorBackoff):
			}
			continue
		}

		// Shutdown must not abort a job midway; the job deadline still applies.
		if err := w.orch.Process(context.WithoutCancel(ctx), jobID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				log.Debug().Str("job_id", jobID).Msg("worker: job already claimed or missing")
				continue
			}
			log.Error().Err(err).Str("job_id", jobID).Msg("worker: process failed")
		}
	}
}

// Recover re-queues jobs left queued and fails jobs stuck in processing, which
// happens when a previous worker died mid-job.
func (w *Worker) Recover(ctx context.Context) error {
	now := w.now()

	queued, err := w.repo.ListByStatus(ctx, domain.JobStatusQueued, now, recoveryBatchSize)
	if err != nil {
		return err
	}
	for _, job := range queued {
		if err := w.queue.Push(ctx, job.ID); err != nil {
			return err
		}
	}

	stale, err := w.repo.ListByStatus(ctx, domain.JobStatusProcessing, now.Add(-w.staleAfter), recoveryBatchSize)
	if err != nil {
		return err
	}
	msg := interruptedErrorMsg
	failed := 0
	for _, job := range stale {
		err := w.repo.UpdateStatus(ctx, job.ID, job.UserID, domain.JobUpdate{Status: domain.JobStatusFailed, ErrorMessage: &msg})
		if err != nil && !errors.Is(err, domain.ErrInvalidState) {
			return err
		}
		if err == nil {
			failed++
		}
	}

	if len(queued) > 0 || failed > 0 {
		w.logger.Info().Int("requeued", len(queued)).Int("interrupted", failed).Msg("worker: recovered jobs")
	}
	return nil
}
