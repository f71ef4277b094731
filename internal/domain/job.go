package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Quality selects the generation pass.
type Quality string

const (
	QualityPreview Quality = "preview"
	QualityFinal   Quality = "final"
)

// StorageTier returns the object storage folder used for assets of quality q.
func (q Quality) StorageTier() string {
	if q == QualityFinal {
		return "final"
	}
	return "previews"
}

// ItemRef points at one clothing item of the outfit being rendered.
type ItemRef struct {
	ItemID   string `json:"item_id" validate:"required"`
	ImageURL string `json:"image_url" validate:"required,http_url"`
	Category string `json:"category"`
}

// GenerationJob encapsulates one request to render outfit images at a quality tier.
type GenerationJob struct {
	ID               string
	UserID           string
	RecommendationID string
	Seed             int64
	StylePreset      string
	ItemRefs         []ItemRef
	Quality          Quality
	VariationCount   int
	Status           JobStatus
	PreviewURLs      []string
	FinalURLs        []string
	ErrorMessage     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// URLs returns the asset list matching the job quality.
func (j GenerationJob) URLs() []string {
	if j.Quality == QualityFinal {
		return j.FinalURLs
	}
	return j.PreviewURLs
}

// JobUpdate carries the fields written on a status transition. Nil fields are left untouched.
type JobUpdate struct {
	Status       JobStatus
	PreviewURLs  []string
	FinalURLs    []string
	ErrorMessage *string
}
