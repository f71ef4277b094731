package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/jobs"
)

type jobResponse struct {
	JobID            string           `json:"job_id"`
	RecommendationID string           `json:"recommendation_id"`
	Quality          domain.Quality   `json:"quality"`
	Status           domain.JobStatus `json:"status"`
	Seed             int64            `json:"seed"`
	StylePreset      string           `json:"style_preset"`
	VariationCount   int              `json:"variation_count"`
	PreviewURLs      []string         `json:"preview_urls"`
	FinalURLs        []string         `json:"final_urls"`
	ErrorMessage     *string          `json:"error_message"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func newJobResponse(job *domain.GenerationJob) jobResponse {
	res := jobResponse{
		JobID:            job.ID,
		RecommendationID: job.RecommendationID,
		Quality:          job.Quality,
		Status:           job.Status,
		Seed:             job.Seed,
		StylePreset:      job.StylePreset,
		VariationCount:   job.VariationCount,
		PreviewURLs:      job.PreviewURLs,
		FinalURLs:        job.FinalURLs,
		ErrorMessage:     job.ErrorMessage,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}
	if res.PreviewURLs == nil {
		res.PreviewURLs = []string{}
	}
	if res.FinalURLs == nil {
		res.FinalURLs = []string{}
	}
	return res
}

func (a *App) EnqueuePreview(w http.ResponseWriter, r *http.Request) {
	a.enqueue(w, r, a.Jobs.EnqueuePreview)
}

func (a *App) EnqueueFinal(w http.ResponseWriter, r *http.Request) {
	a.enqueue(w, r, a.Jobs.EnqueueFinal)
}

type enqueueFunc func(ctx context.Context, req jobs.EnqueueRequest) (*jobs.EnqueueResult, error)

// enqueue takes the user from the token; a user_id in the body is ignored.
func (a *App) enqueue(w http.ResponseWriter, r *http.Request, fn enqueueFunc) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req jobs.EnqueueRequest
	if !a.decode(w, r, &req) {
		return
	}
	req.UserID = userID

	res, err := fn(r.Context(), req)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, res)
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := strings.TrimSpace(chi.URLParam(r, "job_id"))
	if jobID == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.Get(r.Context(), jobID, userID)
	if err != nil {
		a.serviceError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newJobResponse(job))
}
