package jobs

import (
	"context"
	"testing"
	"time"

	"outfitstudio/internal/domain"
)

func TestWorkerRecover(t *testing.T) {
	repo := newMemRepo()
	queue := newMemQueue()
	now := time.Now()
	repo.put(domain.GenerationJob{ID: "queued-1", UserID: "u", Status: domain.JobStatusQueued, UpdatedAt: now.Add(-time.Minute)})
	repo.put(domain.GenerationJob{ID: "stale-1", UserID: "u", Status: domain.JobStatusProcessing, UpdatedAt: now.Add(-time.Hour)})
	repo.put(domain.GenerationJob{ID: "busy-1", UserID: "u", Status: domain.JobStatusProcessing, UpdatedAt: now.Add(-time.Minute)})
	repo.put(domain.GenerationJob{ID: "done-1", UserID: "u", Status: domain.JobStatusCompleted, UpdatedAt: now.Add(-time.Hour)})

	o := newTestOrchestrator(repo, queue, &stubGenerator{}, &stubPublisher{})
	w := NewWorker(queue, o, repo, WorkerOptions{StaleAfter: 15 * time.Minute})
	w.now = func() time.Time { return now }

	if err := w.Recover(context.Background()); err != nil {
		t.Fatalf("Recover error: %v", err)
	}
	if len(queue.ch) != 1 || <-queue.ch != "queued-1" {
		t.Fatalf("queued job not re-pushed")
	}
	stale := repo.get(t, "stale-1")
	if stale.Status != domain.JobStatusFailed || stale.ErrorMessage == nil || *stale.ErrorMessage != "worker interrupted" {
		t.Fatalf("stale job = %#v", stale)
	}
	if repo.get(t, "busy-1").Status != domain.JobStatusProcessing {
		t.Fatalf("recently updated processing job must be left alone")
	}
	if repo.get(t, "done-1").Status != domain.JobStatusCompleted {
		t.Fatalf("completed job changed")
	}
}

func TestWorkerDrainsQueue(t *testing.T) {
	repo := newMemRepo()
	queue := newMemQueue()
	o := newTestOrchestrator(repo, queue, &stubGenerator{}, &stubPublisher{})

	var ids []string
	for i := 0; i < 5; i++ {
		res, err := o.EnqueuePreview(context.Background(), validRequest())
		if err != nil {
			t.Fatalf("EnqueuePreview error: %v", err)
		}
		ids = append(ids, res.JobID)
	}
	// A duplicate delivery must be ignored.
	_ = queue.Push(context.Background(), ids[0])

	w := NewWorker(queue, o, repo, WorkerOptions{Concurrency: 3, PopTimeout: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(3 * time.Second)
	for {
		completed := 0
		for _, id := range ids {
			if repo.get(t, id).Status == domain.JobStatusCompleted {
				completed++
			}
		}
		if completed == len(ids) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("only %d of %d jobs completed", completed, len(ids))
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
}
