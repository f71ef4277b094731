package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/providers/genai"
)

type memRepo struct {
	mu       sync.Mutex
	jobs     map[string]*domain.GenerationJob
	inserted []domain.JobStatus
}

func newMemRepo() *memRepo {
	return &memRepo{jobs: map[string]*domain.GenerationJob{}}
}

func (r *memRepo) Insert(ctx context.Context, job *domain.GenerationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; ok {
		return fmt.Errorf("%w: duplicate job %s", domain.ErrInvalidState, job.ID)
	}
	now := time.Now()
	job.CreatedAt, job.UpdatedAt = now, now
	copied := *job
	r.jobs[job.ID] = &copied
	r.inserted = append(r.inserted, job.Status)
	return nil
}

func (r *memRepo) Claim(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status != domain.JobStatusQueued {
		return nil, domain.ErrNotFound
	}
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = time.Now()
	copied := *job
	return &copied, nil
}

func (r *memRepo) UpdateStatus(ctx context.Context, jobID, userID string, update domain.JobUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.UserID != userID {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return domain.ErrInvalidState
	}
	job.Status = update.Status
	if update.PreviewURLs != nil {
		job.PreviewURLs = update.PreviewURLs
	}
	if update.FinalURLs != nil {
		job.FinalURLs = update.FinalURLs
	}
	if update.ErrorMessage != nil {
		job.ErrorMessage = update.ErrorMessage
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (r *memRepo) ListByStatus(ctx context.Context, status domain.JobStatus, updatedBefore time.Time, limit int) ([]domain.GenerationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.GenerationJob
	for _, job := range r.jobs {
		if job.Status == status && job.UpdatedAt.Before(updatedBefore) && len(out) < limit {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *memRepo) put(job domain.GenerationJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = &job
}

func (r *memRepo) get(t *testing.T, id string) domain.GenerationJob {
	t.Helper()
	job, err := r.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("job %s: %v", id, err)
	}
	return *job
}

type memQueue struct {
	ch      chan string
	pingErr error
	pushErr error
}

func newMemQueue() *memQueue {
	return &memQueue{ch: make(chan string, 100)}
}

func (q *memQueue) Ping(ctx context.Context) error { return q.pingErr }

func (q *memQueue) Push(ctx context.Context, jobID string) error {
	if q.pushErr != nil {
		return q.pushErr
	}
	q.ch <- jobID
	return nil
}

func (q *memQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	select {
	case id := <-q.ch:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(timeout):
		return "", ErrQueueEmpty
	}
}

type stubGenerator struct {
	mu       sync.Mutex
	requests []genai.GenerateRequest
	counts   []int
	fn       func(ctx context.Context, req genai.GenerateRequest, count int) ([]genai.Image, error)
}

func (g *stubGenerator) GenerateVariations(ctx context.Context, req genai.GenerateRequest, count int) ([]genai.Image, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.counts = append(g.counts, count)
	g.mu.Unlock()
	if g.fn != nil {
		return g.fn(ctx, req, count)
	}
	images := make([]genai.Image, count)
	for i := range images {
		images[i] = genai.Image{Data: []byte(fmt.Sprintf("seed-%d", req.Seed+int64(i))), MIMEType: "image/png"}
	}
	return images, nil
}

func (g *stubGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type stubPublisher struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *stubPublisher) Publish(ctx context.Context, userID, jobID string, images []genai.Image, quality domain.Quality) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	urls := make([]string, len(images))
	for i := range images {
		urls[i] = fmt.Sprintf("https://cdn.test/%s/%s/%s/img_%d.png", quality.StorageTier(), userID, jobID, i+1)
	}
	return urls, nil
}

func seedOf(v int64) *int64 { return &v }

func validRequest() EnqueueRequest {
	return EnqueueRequest{
		UserID:           "user-1",
		RecommendationID: "rec-1",
		Seed:             seedOf(41),
		StylePreset:      "formal",
		ItemRefs: []domain.ItemRef{
			{ItemID: "shirt", ImageURL: "https://img.test/shirt.jpg", Category: "top"},
			{ItemID: "chinos", ImageURL: "https://img.test/chinos.jpg", Category: "bottom"},
		},
	}
}

func newTestOrchestrator(repo *memRepo, queue Queue, gen *stubGenerator, pub *stubPublisher) *Orchestrator {
	o := NewOrchestrator(repo, queue, gen, pub, Options{PreviewVariations: 3, FinalVariations: 1})
	seq := 0
	var mu sync.Mutex
	o.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("job-%d", seq)
	}
	return o
}

func TestEnqueueValidation(t *testing.T) {
	cases := map[string]func(r *EnqueueRequest){
		"empty item refs":   func(r *EnqueueRequest) { r.ItemRefs = []domain.ItemRef{} },
		"nil item refs":     func(r *EnqueueRequest) { r.ItemRefs = nil },
		"missing image url": func(r *EnqueueRequest) { r.ItemRefs[1].ImageURL = "" },
		"relative url":      func(r *EnqueueRequest) { r.ItemRefs[0].ImageURL = "shirt.jpg" },
		"missing item id":   func(r *EnqueueRequest) { r.ItemRefs[0].ItemID = "" },
		"missing user":      func(r *EnqueueRequest) { r.UserID = " " },
		"negative seed":     func(r *EnqueueRequest) { r.Seed = seedOf(-1) },
		"seed too large":    func(r *EnqueueRequest) { r.Seed = seedOf(MaxSeed + 1) },
		"too many variants": func(r *EnqueueRequest) { r.VariationCount = MaxVariations + 1 },
		"job id traversal":  func(r *EnqueueRequest) { r.JobID = "../../previews/victim/job-v" },
		"job id slash":      func(r *EnqueueRequest) { r.JobID = "a/b" },
		"job id backslash":  func(r *EnqueueRequest) { r.JobID = `a\b` },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			repo := newMemRepo()
			queue := newMemQueue()
			o := newTestOrchestrator(repo, queue, &stubGenerator{}, &stubPublisher{})
			req := validRequest()
			req.ItemRefs = append([]domain.ItemRef(nil), req.ItemRefs...)
			mutate(&req)

			_, err := o.EnqueuePreview(context.Background(), req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(repo.jobs) != 0 || len(queue.ch) != 0 {
				t.Fatalf("validation failure must not create a record")
			}
		})
	}
}

func TestEnqueueSeedBoundary(t *testing.T) {
	o := newTestOrchestrator(newMemRepo(), newMemQueue(), &stubGenerator{}, &stubPublisher{})
	req := validRequest()
	req.Seed = seedOf(MaxSeed)
	if _, err := o.EnqueuePreview(context.Background(), req); err != nil {
		t.Fatalf("seed %d should be accepted: %v", MaxSeed, err)
	}
	req.Seed = seedOf(0)
	if _, err := o.EnqueuePreview(context.Background(), req); err != nil {
		t.Fatalf("seed 0 should be accepted: %v", err)
	}
}

func TestEnqueuePreviewQueued(t *testing.T) {
	repo := newMemRepo()
	queue := newMemQueue()
	gen := &stubGenerator{}
	o := newTestOrchestrator(repo, queue, gen, &stubPublisher{})

	res, err := o.EnqueuePreview(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("EnqueuePreview error: %v", err)
	}
	if res.Status != domain.JobStatusQueued || res.EstimatedDurationSec != 60 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if got := <-queue.ch; got != res.JobID {
		t.Fatalf("queued id = %q, want %q", got, res.JobID)
	}
	job := repo.get(t, res.JobID)
	if job.Status != domain.JobStatusQueued || job.VariationCount != 3 || job.Quality != domain.QualityPreview {
		t.Fatalf("unexpected record: %#v", job)
	}
	if gen.calls() != 0 {
		t.Fatalf("enqueue must not generate")
	}
}

func TestEnqueueUsesCallerJobID(t *testing.T) {
	repo := newMemRepo()
	o := newTestOrchestrator(repo, newMemQueue(), &stubGenerator{}, &stubPublisher{})
	req := validRequest()
	req.JobID = "client-id"
	res, err := o.EnqueuePreview(context.Background(), req)
	if err != nil || res.JobID != "client-id" {
		t.Fatalf("EnqueuePreview = %#v, %v", res, err)
	}
	if _, err := o.EnqueuePreview(context.Background(), req); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("reused job id should be ErrInvalidState, got %v", err)
	}
}

func TestEnqueueFallbackWhenQueueUnavailable(t *testing.T) {
	repo := newMemRepo()
	queue := newMemQueue()
	queue.pingErr = errors.New("connection refused")
	o := newTestOrchestrator(repo, queue, &stubGenerator{}, &stubPublisher{})

	res, err := o.EnqueuePreview(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("EnqueuePreview error: %v", err)
	}
	if res.Status != domain.JobStatusProcessing {
		t.Fatalf("fallback status = %s, want processing", res.Status)
	}
	o.Wait()

	if len(repo.inserted) != 1 || repo.inserted[0] != domain.JobStatusProcessing {
		t.Fatalf("record must never be visible as queued, inserted as %v", repo.inserted)
	}
	job := repo.get(t, res.JobID)
	if job.Status != domain.JobStatusCompleted || len(job.PreviewURLs) != 3 {
		t.Fatalf("fallback job not completed: %#v", job)
	}
}

func TestEnqueueFallbackWithoutQueue(t *testing.T) {
	repo := newMemRepo()
	o := newTestOrchestrator(repo, nil, &stubGenerator{}, &stubPublisher{})
	res, err := o.EnqueuePreview(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("EnqueuePreview error: %v", err)
	}
	o.Wait()
	if repo.get(t, res.JobID).Status != domain.JobStatusCompleted {
		t.Fatalf("job not completed inline")
	}
}

func TestEnqueueFallbackWhenPushFails(t *testing.T) {
	repo := newMemRepo()
	queue := newMemQueue()
	queue.pushErr = errors.New("READONLY")
	o := newTestOrchestrator(repo, queue, &stubGenerator{}, &stubPublisher{})

	res, err := o.EnqueuePreview(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("EnqueuePreview error: %v", err)
	}
	if res.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %s, want processing", res.Status)
	}
	o.Wait()
	if repo.get(t, res.JobID).Status != domain.JobStatusCompleted {
		t.Fatalf("job not completed inline after push failure")
	}
}

func TestProcessCompletesPreview(t *testing.T) {
	repo := newMemRepo()
	queue := newMemQueue()
	gen := &stubGenerator{}
	o := newTestOrchestrator(repo, queue, gen, &stubPublisher{})

	res, _ := o.EnqueuePreview(context.Background(), validRequest())
	if err := o.Process(context.Background(), res.JobID); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	job := repo.get(t, res.JobID)
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s", job.Status)
	}
	if len(job.PreviewURLs) != 3 || len(job.FinalURLs) != 0 {
		t.Fatalf("urls: preview=%v final=%v", job.PreviewURLs, job.FinalURLs)
	}
	if !strings.Contains(job.PreviewURLs[0], "/previews/user-1/"+res.JobID+"/img_1.png") {
		t.Fatalf("url = %q", job.PreviewURLs[0])
	}
	req := gen.requests[0]
	if req.Seed != 41 || gen.counts[0] != 3 || req.Quality != "preview" || req.StylePreset != "formal" {
		t.Fatalf("generator request = %#v count %d", req, gen.counts[0])
	}
	if len(req.References) != 2 || req.References[1].URL != "https://img.test/chinos.jpg" {
		t.Fatalf("references = %#v", req.References)
	}
	if !strings.Contains(req.Prompt, "1. top") || !strings.Contains(req.Prompt, "2. bottom") {
		t.Fatalf("prompt does not list items in order: %q", req.Prompt)
	}
}

func TestProcessVariationFailureRecordsNoURLs(t *testing.T) {
	repo := newMemRepo()
	pub := &stubPublisher{}
	gen := &stubGenerator{fn: func(ctx context.Context, req genai.GenerateRequest, count int) ([]genai.Image, error) {
		return nil, fmt.Errorf("variation 2/3 (seed %d): %w", req.Seed+1, &genai.UpstreamError{StatusCode: 500, Message: "boom"})
	}}
	o := newTestOrchestrator(repo, newMemQueue(), gen, pub)

	res, _ := o.EnqueuePreview(context.Background(), validRequest())
	if err := o.Process(context.Background(), res.JobID); err != nil {
		t.Fatalf("job failures must not be returned: %v", err)
	}
	job := repo.get(t, res.JobID)
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.ErrorMessage == nil || !strings.Contains(*job.ErrorMessage, "upstream status 500") {
		t.Fatalf("error message = %v", job.ErrorMessage)
	}
	if len(job.PreviewURLs) != 0 || pub.calls != 0 {
		t.Fatalf("failed job must not publish or keep urls")
	}
}

func TestProcessZeroImagesFails(t *testing.T) {
	repo := newMemRepo()
	gen := &stubGenerator{fn: func(ctx context.Context, req genai.GenerateRequest, count int) ([]genai.Image, error) {
		return nil, nil
	}}
	o := newTestOrchestrator(repo, newMemQueue(), gen, &stubPublisher{})
	res, _ := o.EnqueuePreview(context.Background(), validRequest())
	_ = o.Process(context.Background(), res.JobID)

	job := repo.get(t, res.JobID)
	if job.Status != domain.JobStatusFailed || job.ErrorMessage == nil || *job.ErrorMessage != "no images generated" {
		t.Fatalf("unexpected job: status=%s err=%v", job.Status, job.ErrorMessage)
	}
}

func TestProcessPublishFailure(t *testing.T) {
	repo := newMemRepo()
	pub := &stubPublisher{err: fmt.Errorf("%w: upload: bucket gone", domain.ErrStorageFailure)}
	o := newTestOrchestrator(repo, newMemQueue(), &stubGenerator{}, pub)
	res, _ := o.EnqueuePreview(context.Background(), validRequest())
	_ = o.Process(context.Background(), res.JobID)

	job := repo.get(t, res.JobID)
	if job.Status != domain.JobStatusFailed || len(job.PreviewURLs) != 0 {
		t.Fatalf("unexpected job: %#v", job)
	}
}

func TestProcessTimeout(t *testing.T) {
	repo := newMemRepo()
	gen := &stubGenerator{fn: func(ctx context.Context, req genai.GenerateRequest, count int) ([]genai.Image, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	o := NewOrchestrator(repo, newMemQueue(), gen, &stubPublisher{}, Options{JobTimeout: 20 * time.Millisecond})
	res, _ := o.EnqueuePreview(context.Background(), validRequest())
	_ = o.Process(context.Background(), res.JobID)

	job := repo.get(t, res.JobID)
	if job.Status != domain.JobStatusFailed || job.ErrorMessage == nil || !strings.Contains(*job.ErrorMessage, "timed out") {
		t.Fatalf("unexpected job: status=%s err=%v", job.Status, job.ErrorMessage)
	}
}

func TestProcessIsAtMostOncePerJob(t *testing.T) {
	repo := newMemRepo()
	gen := &stubGenerator{}
	o := newTestOrchestrator(repo, newMemQueue(), gen, &stubPublisher{})
	res, _ := o.EnqueuePreview(context.Background(), validRequest())

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- o.Process(context.Background(), res.JobID)
		}()
	}
	wg.Wait()
	close(errs)

	notFound := 0
	for err := range errs {
		if errors.Is(err, domain.ErrNotFound) {
			notFound++
		}
	}
	if notFound != 4 || gen.calls() != 1 {
		t.Fatalf("job processed %d times (%d rejected claims)", gen.calls(), notFound)
	}
}

func TestTerminalJobsAreImmutable(t *testing.T) {
	repo := newMemRepo()
	o := newTestOrchestrator(repo, newMemQueue(), &stubGenerator{}, &stubPublisher{})
	res, _ := o.EnqueuePreview(context.Background(), validRequest())
	_ = o.Process(context.Background(), res.JobID)

	msg := "late failure"
	err := repo.UpdateStatus(context.Background(), res.JobID, "user-1", domain.JobUpdate{Status: domain.JobStatusFailed, ErrorMessage: &msg})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := o.Process(context.Background(), res.JobID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("reprocessing a completed job must be refused, got %v", err)
	}
	if repo.get(t, res.JobID).Status != domain.JobStatusCompleted {
		t.Fatalf("completed job changed state")
	}
}

func TestEnqueueFinalInheritsFromPreview(t *testing.T) {
	repo := newMemRepo()
	gen := &stubGenerator{}
	o := newTestOrchestrator(repo, newMemQueue(), gen, &stubPublisher{})
	preview, _ := o.EnqueuePreview(context.Background(), validRequest())
	_ = o.Process(context.Background(), preview.JobID)

	res, err := o.EnqueueFinal(context.Background(), EnqueueRequest{UserID: "user-1", PreviewJobID: preview.JobID})
	if err != nil {
		t.Fatalf("EnqueueFinal error: %v", err)
	}
	if res.EstimatedDurationSec != 45 {
		t.Fatalf("estimated = %d, want 45", res.EstimatedDurationSec)
	}
	if err := o.Process(context.Background(), res.JobID); err != nil {
		t.Fatalf("Process error: %v", err)
	}
	final := repo.get(t, res.JobID)
	if final.Quality != domain.QualityFinal || final.Seed != 41 || final.StylePreset != "formal" || len(final.ItemRefs) != 2 {
		t.Fatalf("final did not inherit preview: %#v", final)
	}
	if len(final.FinalURLs) != 1 || len(final.PreviewURLs) != 0 {
		t.Fatalf("final urls = %v preview urls = %v", final.FinalURLs, final.PreviewURLs)
	}
	if !strings.Contains(final.FinalURLs[0], "/final/") {
		t.Fatalf("final url tier: %q", final.FinalURLs[0])
	}
	if gen.requests[1].Quality != "final" {
		t.Fatalf("final render used quality %q", gen.requests[1].Quality)
	}
}

func TestEnqueueFinalRejectsUnusablePreview(t *testing.T) {
	repo := newMemRepo()
	o := newTestOrchestrator(repo, newMemQueue(), &stubGenerator{}, &stubPublisher{})
	preview, _ := o.EnqueuePreview(context.Background(), validRequest())

	_, err := o.EnqueueFinal(context.Background(), EnqueueRequest{UserID: "user-1", PreviewJobID: preview.JobID})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("queued preview should be rejected, got %v", err)
	}
	_, err = o.EnqueueFinal(context.Background(), EnqueueRequest{UserID: "someone-else", PreviewJobID: preview.JobID})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign preview should be hidden, got %v", err)
	}
	_, err = o.EnqueueFinal(context.Background(), EnqueueRequest{UserID: "user-1", PreviewJobID: "missing"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing preview should be ErrNotFound, got %v", err)
	}
}

func TestEnqueueFinalKeepsExplicitZeroSeed(t *testing.T) {
	repo := newMemRepo()
	o := newTestOrchestrator(repo, newMemQueue(), &stubGenerator{}, &stubPublisher{})
	preview, _ := o.EnqueuePreview(context.Background(), validRequest())
	_ = o.Process(context.Background(), preview.JobID)

	res, err := o.EnqueueFinal(context.Background(), EnqueueRequest{UserID: "user-1", PreviewJobID: preview.JobID, Seed: seedOf(0)})
	if err != nil {
		t.Fatalf("EnqueueFinal error: %v", err)
	}
	if got := repo.get(t, res.JobID).Seed; got != 0 {
		t.Fatalf("seed = %d, want explicit 0 over preview seed 41", got)
	}

	req := validRequest()
	req.Seed = nil
	res, err = o.EnqueuePreview(context.Background(), req)
	if err != nil {
		t.Fatalf("EnqueuePreview error: %v", err)
	}
	if got := repo.get(t, res.JobID).Seed; got != 0 {
		t.Fatalf("omitted seed = %d, want 0", got)
	}
}

func TestPreviewAndFinalRunConcurrently(t *testing.T) {
	repo := newMemRepo()
	var entered sync.WaitGroup
	entered.Add(2)
	gen := &stubGenerator{fn: func(ctx context.Context, req genai.GenerateRequest, count int) ([]genai.Image, error) {
		entered.Done()
		entered.Wait() // both jobs must be in flight at once
		return []genai.Image{{Data: []byte("x"), MIMEType: "image/png"}}, nil
	}}
	o := newTestOrchestrator(repo, newMemQueue(), gen, &stubPublisher{})
	preview, _ := o.EnqueuePreview(context.Background(), validRequest())
	final, _ := o.EnqueueFinal(context.Background(), validRequest())

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for _, id := range []string{preview.JobID, final.JobID} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_ = o.Process(context.Background(), id)
			}(id)
		}
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("jobs for the same user did not run concurrently")
	}
	if repo.get(t, preview.JobID).Status != domain.JobStatusCompleted || repo.get(t, final.JobID).Status != domain.JobStatusCompleted {
		t.Fatalf("both jobs should complete")
	}
}

func TestGetChecksOwnership(t *testing.T) {
	repo := newMemRepo()
	o := newTestOrchestrator(repo, newMemQueue(), &stubGenerator{}, &stubPublisher{})
	res, _ := o.EnqueuePreview(context.Background(), validRequest())

	job, err := o.Get(context.Background(), res.JobID, "user-1")
	if err != nil || job.ID != res.JobID {
		t.Fatalf("Get = %#v, %v", job, err)
	}
	if _, err := o.Get(context.Background(), res.JobID, "user-2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
}

func TestUnknownPresetStoredAsDefault(t *testing.T) {
	repo := newMemRepo()
	o := newTestOrchestrator(repo, newMemQueue(), &stubGenerator{}, &stubPublisher{})
	req := validRequest()
	req.StylePreset = "cyberpunk"
	res, err := o.EnqueuePreview(context.Background(), req)
	if err != nil {
		t.Fatalf("unknown preset must not fail: %v", err)
	}
	if got := repo.get(t, res.JobID).StylePreset; got != genai.DefaultStylePreset {
		t.Fatalf("preset = %q", got)
	}
}

func TestEstimatedDuration(t *testing.T) {
	if EstimatedDuration(domain.QualityPreview, 4) != 80 || EstimatedDuration(domain.QualityFinal, 2) != 90 {
		t.Fatalf("unexpected estimates")
	}
}
