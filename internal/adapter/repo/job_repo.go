package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/infra"
	"outfitstudio/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

const uniqueViolation = "23505"

// Insert stores a new job and fills in its timestamps. A reused job id is
// reported as domain.ErrInvalidState.
func (r *JobRepositoryPG) Insert(ctx context.Context, job *domain.GenerationJob) error {
	refs, err := json.Marshal(job.ItemRefs)
	if err != nil {
		return fmt.Errorf("marshal item refs: %w", err)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertGenerationJob,
		job.ID,
		job.UserID,
		job.RecommendationID,
		job.Seed,
		job.StylePreset,
		refs,
		string(job.Quality),
		job.VariationCount,
		string(job.Status),
	)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: job id %s already used", domain.ErrInvalidState, job.ID)
		}
		return err
	}
	return nil
}

// Claim moves a queued job to processing.
func (r *JobRepositoryPG) Claim(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QClaimGenerationJob, jobID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// UpdateStatus writes a transition. Nil URL lists and a nil error message keep
// the stored values.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID, userID string, update domain.JobUpdate) error {
	previews, err := nullableJSON(update.PreviewURLs)
	if err != nil {
		return err
	}
	finals, err := nullableJSON(update.FinalURLs)
	if err != nil {
		return err
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateGenerationJobStatus,
		jobID,
		userID,
		string(update.Status),
		previews,
		finals,
		update.ErrorMessage,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectGenerationJobStatus, jobID, userID).Scan(&current); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrNotFound
		}
		return err
	}
	return fmt.Errorf("%w: job %s is %s", domain.ErrInvalidState, jobID, current)
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationJob, jobID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListByStatus returns up to limit jobs in status last touched before updatedBefore, oldest first.
func (r *JobRepositoryPG) ListByStatus(ctx context.Context, status domain.JobStatus, updatedBefore time.Time, limit int) ([]domain.GenerationJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListGenerationJobsByStatus, string(status), updatedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.GenerationJob, error) {
	var (
		job                   domain.GenerationJob
		quality, status       string
		refs, previews, final []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.RecommendationID,
		&job.Seed,
		&job.StylePreset,
		&refs,
		&quality,
		&job.VariationCount,
		&status,
		&previews,
		&final,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Quality = domain.Quality(quality)
	job.Status = domain.JobStatus(status)
	if err := unmarshalIfPresent(refs, &job.ItemRefs); err != nil {
		return nil, fmt.Errorf("decode item refs: %w", err)
	}
	if err := unmarshalIfPresent(previews, &job.PreviewURLs); err != nil {
		return nil, fmt.Errorf("decode preview urls: %w", err)
	}
	if err := unmarshalIfPresent(final, &job.FinalURLs); err != nil {
		return nil, fmt.Errorf("decode final urls: %w", err)
	}
	return &job, nil
}

func nullableJSON(urls []string) ([]byte, error) {
	if urls == nil {
		return nil, nil
	}
	raw, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("marshal urls: %w", err)
	}
	return raw, nil
}

func unmarshalIfPresent(raw []byte, dest any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
