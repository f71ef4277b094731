package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/infra"
	"outfitstudio/internal/sqlinline"
)

// PreferenceRepositoryPG stores preference profiles as one JSONB blob per user.
type PreferenceRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewPreferenceRepository(sql infra.SQLExecutor) *PreferenceRepositoryPG {
	return &PreferenceRepositoryPG{sql: sql}
}

// Get returns nil, nil when the user has no stored profile.
func (r *PreferenceRepositoryPG) Get(ctx context.Context, userID string) (*domain.PreferenceProfile, error) {
	var raw []byte
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectUserPreferences, userID).Scan(&raw); err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	profile := domain.NewPreferenceProfile()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, profile); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
	}
	// Older blobs may lack a category.
	if profile.Colors == nil {
		profile.Colors = map[string]float64{}
	}
	if profile.Styles == nil {
		profile.Styles = map[string]float64{}
	}
	if profile.Materials == nil {
		profile.Materials = map[string]float64{}
	}
	return profile, nil
}

func (r *PreferenceRepositoryPG) Set(ctx context.Context, userID string, profile *domain.PreferenceProfile) error {
	if profile == nil {
		profile = domain.NewPreferenceProfile()
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QUpsertUserPreferences, userID, raw)
	return err
}
