package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for generation jobs.
type JobRepository interface {
	Insert(ctx context.Context, job *GenerationJob) error
	// Claim moves a queued job to processing and returns it. ErrNotFound is
	// returned when the job does not exist or is no longer queued.
	Claim(ctx context.Context, jobID string) (*GenerationJob, error)
	// UpdateStatus never modifies a job that already reached a terminal state;
	// ErrInvalidState is returned in that case.
	UpdateStatus(ctx context.Context, jobID, userID string, update JobUpdate) error
	GetByID(ctx context.Context, jobID string) (*GenerationJob, error)
	ListByStatus(ctx context.Context, status JobStatus, updatedBefore time.Time, limit int) ([]GenerationJob, error)
}

// PreferenceRepository stores the per-user preference blob.
type PreferenceRepository interface {
	// Get returns nil without error when the user has no profile yet.
	Get(ctx context.Context, userID string) (*PreferenceProfile, error)
	Set(ctx context.Context, userID string, profile *PreferenceProfile) error
}

// FeedbackRepository records immutable feedback events.
type FeedbackRepository interface {
	Insert(ctx context.Context, event *FeedbackEvent, analysis *FeedbackAnalysis) (string, error)
}
