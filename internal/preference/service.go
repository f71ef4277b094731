package preference

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/infra"
	"outfitstudio/internal/metrics"
)

const learnTimeout = 10 * time.Second

// RecordResult is returned once the feedback event is stored.
type RecordResult struct {
	Success    bool                     `json:"success"`
	FeedbackID string                   `json:"feedback_id,omitempty"`
	Analysis   *domain.FeedbackAnalysis `json:"analysis,omitempty"`
}

// Service records feedback and maintains the learned preference profile.
type Service struct {
	feedback domain.FeedbackRepository
	prefs    domain.PreferenceRepository
	logger   *infra.Logger
	locks    *userLocks
	now      func() time.Time
}

// NewService wires the service. logger may be nil.
func NewService(feedback domain.FeedbackRepository, prefs domain.PreferenceRepository, logger *infra.Logger) *Service {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Service{
		feedback: feedback,
		prefs:    prefs,
		logger:   logger,
		locks:    newUserLocks(),
		now:      time.Now,
	}
}

// RecordFeedback stores the event and then folds it into the user's profile.
// Only the insert can fail the call; profile update errors are logged.
func (s *Service) RecordFeedback(ctx context.Context, event domain.FeedbackEvent) (*RecordResult, error) {
	event.UserID = strings.TrimSpace(event.UserID)
	event.RecommendationID = strings.TrimSpace(event.RecommendationID)
	if event.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if event.RecommendationID == "" {
		return nil, fmt.Errorf("%w: recommendation id is required", domain.ErrValidation)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}

	analysis := Analyze(event)
	feedbackID, err := s.feedback.Insert(ctx, &event, &analysis)
	if err != nil {
		return nil, fmt.Errorf("record feedback: %w", err)
	}
	kind := "dislike"
	if event.IsLiked {
		kind = "like"
	}
	metrics.FeedbackRecorded.WithLabelValues(kind).Inc()

	// The event is stored; the profile update must not depend on the caller
	// staying connected.
	learnCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), learnTimeout)
	defer cancel()
	if err := s.learn(learnCtx, event.UserID, analysis); err != nil {
		metrics.PreferenceUpdateErrors.Inc()
		s.logger.Warn().
			Err(err).
			Str("user_id", event.UserID).
			Str("recommendation_id", event.RecommendationID).
			Msg("preference: update failed after feedback was recorded")
	}

	return &RecordResult{Success: true, FeedbackID: feedbackID, Analysis: &analysis}, nil
}

// learn is a read-modify-write of the profile, serialized per user so that
// concurrent feedback from one user cannot drop an update.
func (s *Service) learn(ctx context.Context, userID string, analysis domain.FeedbackAnalysis) error {
	unlock := s.locks.lock(userID)
	defer unlock()

	current, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	updated := MergeProfile(current, analysis)
	if err := s.prefs.Set(ctx, userID, updated); err != nil {
		return fmt.Errorf("store preferences: %w", err)
	}
	s.logger.Debug().
		Str("user_id", userID).
		Int("colors", len(updated.Colors)).
		Int("styles", len(updated.Styles)).
		Int("materials", len(updated.Materials)).
		Msg("preference: profile updated")
	return nil
}

// GetUserPreferences returns the strongest positive tags per category. Users
// without a profile get empty lists.
func (s *Service) GetUserPreferences(ctx context.Context, userID string) (domain.TopPreferences, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.TopPreferences{}, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	profile, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return domain.TopPreferences{}, fmt.Errorf("load preferences: %w", err)
	}
	return Top(profile), nil
}

// userLocks hands out one mutex per user id and frees it when the last
// holder releases it.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
