package jobs

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/infra"
	"outfitstudio/internal/metrics"
	"outfitstudio/internal/providers/genai"
)

const (
	// MaxVariations bounds the variants rendered for one job.
	MaxVariations = 4
	// MaxSeed keeps seed+MaxVariations-1 inside the int32 range the model accepts.
	MaxSeed = math.MaxInt32 - MaxVariations

	previewSecondsPerVariation = 20
	finalSecondsPerVariation   = 45

	// DefaultJobTimeout bounds one job from claim to terminal state.
	DefaultJobTimeout = 5 * time.Minute

	persistTimeout = 10 * time.Second
)

// Generator renders count variants for one request.
type Generator interface {
	GenerateVariations(ctx context.Context, req genai.GenerateRequest, count int) ([]genai.Image, error)
}

// Publisher stores rendered images and returns their URLs in order.
type Publisher interface {
	Publish(ctx context.Context, userID, jobID string, images []genai.Image, quality domain.Quality) ([]string, error)
}

// EnqueueRequest asks for a preview or final render of one recommendation.
type EnqueueRequest struct {
	JobID            string           `json:"job_id" validate:"omitempty,max=128,path_segment"`
	UserID           string           `json:"user_id" validate:"required"`
	RecommendationID string           `json:"recommendation_id" validate:"required"`
	Seed             *int64           `json:"seed" validate:"omitempty,gte=0,lte=2147483643"`
	StylePreset      string           `json:"style_preset"`
	ItemRefs         []domain.ItemRef `json:"item_refs" validate:"required,min=1,dive"`
	VariationCount   int              `json:"variation_count" validate:"omitempty,min=1,max=4"`
	// PreviewJobID lets a final render inherit seed, preset and items from a
	// completed preview of the same user. Fields set on the request win. A nil
	// Seed inherits the preview seed, or means 0 when there is no preview.
	PreviewJobID string `json:"preview_job_id,omitempty"`
}

// EnqueueResult is returned as soon as the job is persisted.
type EnqueueResult struct {
	JobID                string           `json:"job_id"`
	Status               domain.JobStatus `json:"status"`
	EstimatedDurationSec int              `json:"estimated_duration_sec"`
}

// Options configures an Orchestrator.
type Options struct {
	PreviewVariations int
	FinalVariations   int
	JobTimeout        time.Duration
	Logger            *infra.Logger
}

// Orchestrator owns the job state machine: queued, processing, then completed
// or failed. It is the only writer of job records.
type Orchestrator struct {
	repo      domain.JobRepository
	queue     Queue
	generator Generator
	publisher Publisher
	logger    *infra.Logger

	previewVariations int
	finalVariations   int
	jobTimeout        time.Duration

	inline sync.WaitGroup
	newID  func() string
}

// NewOrchestrator wires the orchestrator. queue may be nil, in which case
// every job runs in-process.
func NewOrchestrator(repo domain.JobRepository, queue Queue, generator Generator, publisher Publisher, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	o := &Orchestrator{
		repo:              repo,
		queue:             queue,
		generator:         generator,
		publisher:         publisher,
		logger:            logger,
		previewVariations: clampVariations(opts.PreviewVariations, 3),
		finalVariations:   clampVariations(opts.FinalVariations, 1),
		jobTimeout:        opts.JobTimeout,
		newID:             func() string { return uuid.NewString() },
	}
	if o.jobTimeout <= 0 {
		o.jobTimeout = DefaultJobTimeout
	}
	return o
}

func clampVariations(n, fallback int) int {
	if n < 1 || n > MaxVariations {
		return fallback
	}
	return n
}

// EnqueuePreview accepts a preview render. It never waits for generation.
func (o *Orchestrator) EnqueuePreview(ctx context.Context, req EnqueueRequest) (*EnqueueResult, error) {
	req.PreviewJobID = ""
	return o.enqueue(ctx, req, domain.QualityPreview)
}

// EnqueueFinal accepts a final render, optionally derived from a completed preview.
func (o *Orchestrator) EnqueueFinal(ctx context.Context, req EnqueueRequest) (*EnqueueResult, error) {
	if strings.TrimSpace(req.PreviewJobID) != "" {
		if err := o.inheritPreview(ctx, &req); err != nil {
			return nil, err
		}
	}
	return o.enqueue(ctx, req, domain.QualityFinal)
}

func (o *Orchestrator) inheritPreview(ctx context.Context, req *EnqueueRequest) error {
	preview, err := o.repo.GetByID(ctx, strings.TrimSpace(req.PreviewJobID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: preview job %s", domain.ErrNotFound, req.PreviewJobID)
		}
		return fmt.Errorf("load preview job: %w", err)
	}
	if preview.UserID != strings.TrimSpace(req.UserID) {
		return fmt.Errorf("%w: preview job %s", domain.ErrNotFound, req.PreviewJobID)
	}
	if preview.Quality != domain.QualityPreview || preview.Status != domain.JobStatusCompleted {
		return fmt.Errorf("%w: preview job %s is %s %s, want completed preview",
			domain.ErrInvalidState, preview.ID, preview.Quality, preview.Status)
	}
	if strings.TrimSpace(req.RecommendationID) == "" {
		req.RecommendationID = preview.RecommendationID
	}
	if len(req.ItemRefs) == 0 {
		req.ItemRefs = preview.ItemRefs
	}
	if strings.TrimSpace(req.StylePreset) == "" {
		req.StylePreset = preview.StylePreset
	}
	if req.Seed == nil {
		seed := preview.Seed
		req.Seed = &seed
	}
	return nil
}

func (o *Orchestrator) enqueue(ctx context.Context, req EnqueueRequest, quality domain.Quality) (*EnqueueResult, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.RecommendationID = strings.TrimSpace(req.RecommendationID)
	req.JobID = strings.TrimSpace(req.JobID)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	count := req.VariationCount
	if count == 0 {
		count = o.previewVariations
		if quality == domain.QualityFinal {
			count = o.finalVariations
		}
	}
	jobID := req.JobID
	if jobID == "" {
		jobID = o.newID()
	}
	var seed int64
	if req.Seed != nil {
		seed = *req.Seed
	}
	preset, _ := genai.ResolveStyle(req.StylePreset)
	job := &domain.GenerationJob{
		ID:               jobID,
		UserID:           req.UserID,
		RecommendationID: req.RecommendationID,
		Seed:             seed,
		StylePreset:      preset,
		ItemRefs:         req.ItemRefs,
		Quality:          quality,
		VariationCount:   count,
	}
	log := o.logger.With().Str("job_id", job.ID).Str("quality", string(quality)).Logger()

	queueReady := o.queue != nil && o.queue.Ping(ctx) == nil
	if !queueReady {
		// Run in-process; the record is never visible as queued.
		job.Status = domain.JobStatusProcessing
		if err := o.repo.Insert(ctx, job); err != nil {
			return nil, fmt.Errorf("insert job: %w", err)
		}
		log.Warn().Msg("jobs: queue unavailable, running job inline")
		o.runInline(job)
		return o.accepted(job, "inline"), nil
	}

	job.Status = domain.JobStatusQueued
	if err := o.repo.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	if err := o.queue.Push(ctx, job.ID); err != nil {
		log.Warn().Err(err).Msg("jobs: push failed, running job inline")
		claimed, claimErr := o.repo.Claim(ctx, job.ID)
		if claimErr != nil {
			// The job stays queued; worker recovery will pick it up.
			log.Error().Err(claimErr).Msg("jobs: could not claim job after push failure")
			return o.accepted(job, "queue"), nil
		}
		o.runInline(claimed)
		return o.accepted(claimed, "inline"), nil
	}
	return o.accepted(job, "queue"), nil
}

func (o *Orchestrator) accepted(job *domain.GenerationJob, dispatch string) *EnqueueResult {
	metrics.JobsEnqueued.WithLabelValues(string(job.Quality), dispatch).Inc()
	return &EnqueueResult{
		JobID:                job.ID,
		Status:               job.Status,
		EstimatedDurationSec: EstimatedDuration(job.Quality, job.VariationCount),
	}
}

// EstimatedDuration is the expected seconds to render count variants.
func EstimatedDuration(quality domain.Quality, count int) int {
	if quality == domain.QualityFinal {
		return finalSecondsPerVariation * count
	}
	return previewSecondsPerVariation * count
}

func (o *Orchestrator) runInline(job *domain.GenerationJob) {
	o.inline.Add(1)
	go func() {
		defer o.inline.Done()
		o.execute(context.Background(), job)
	}()
}

// Wait blocks until every job started in-process has finished.
func (o *Orchestrator) Wait() {
	o.inline.Wait()
}

// Process claims a queued job and runs it to a terminal state. A job that is
// missing or no longer queued returns domain.ErrNotFound and is not touched.
// Generation and storage failures are recorded on the job, not returned.
func (o *Orchestrator) Process(ctx context.Context, jobID string) error {
	job, err := o.repo.Claim(ctx, jobID)
	if err != nil {
		return err
	}
	o.execute(ctx, job)
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, job *domain.GenerationJob) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.jobTimeout)
	defer cancel()

	log := o.logger.With().
		Str("job_id", job.ID).
		Str("user_id", job.UserID).
		Str("quality", string(job.Quality)).
		Logger()
	log.Info().Int("variations", job.VariationCount).Int64("seed", job.Seed).Msg("jobs: processing")

	images, err := o.generator.GenerateVariations(ctx, genai.GenerateRequest{
		Prompt:      BuildPrompt(job),
		References:  referencesFor(job),
		Seed:        job.Seed,
		StylePreset: job.StylePreset,
		Quality:     string(job.Quality),
		RequestID:   job.ID,
	}, job.VariationCount)
	if err != nil {
		o.fail(ctx, job, start, o.describe(ctx, err))
		return
	}
	if len(images) == 0 {
		o.fail(ctx, job, start, "no images generated")
		return
	}

	urls, err := o.publisher.Publish(ctx, job.UserID, job.ID, images, job.Quality)
	if err != nil {
		o.fail(ctx, job, start, o.describe(ctx, err))
		return
	}

	update := domain.JobUpdate{Status: domain.JobStatusCompleted}
	if job.Quality == domain.QualityFinal {
		update.FinalURLs = urls
	} else {
		update.PreviewURLs = urls
	}
	if !o.finish(ctx, job, start, update) {
		return
	}
	log.Info().Int("images", len(urls)).Dur("elapsed", time.Since(start)).Msg("jobs: completed")
}

func (o *Orchestrator) describe(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("job timed out after %s: %v", o.jobTimeout, err)
	}
	return err.Error()
}

func (o *Orchestrator) fail(ctx context.Context, job *domain.GenerationJob, start time.Time, message string) {
	o.logger.Warn().Str("job_id", job.ID).Str("error", message).Msg("jobs: failed")
	o.finish(ctx, job, start, domain.JobUpdate{Status: domain.JobStatusFailed, ErrorMessage: &message})
}

// finish writes the terminal state with a context that outlives the job
// deadline so a timed-out job is still recorded.
func (o *Orchestrator) finish(ctx context.Context, job *domain.GenerationJob, start time.Time, update domain.JobUpdate) bool {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := o.repo.UpdateStatus(persistCtx, job.ID, job.UserID, update); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Str("status", string(update.Status)).Msg("jobs: persist terminal state failed")
		return false
	}
	metrics.JobsFinished.WithLabelValues(string(job.Quality), string(update.Status)).Inc()
	metrics.JobDuration.WithLabelValues(string(job.Quality)).Observe(time.Since(start).Seconds())
	return true
}

// Get returns the job if it belongs to userID.
func (o *Orchestrator) Get(ctx context.Context, jobID, userID string) (*domain.GenerationJob, error) {
	job, err := o.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}
