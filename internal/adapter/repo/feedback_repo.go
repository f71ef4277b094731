package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/infra"
	"outfitstudio/internal/sqlinline"
)

// FeedbackRepositoryPG appends feedback events together with their analysis.
type FeedbackRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewFeedbackRepository(sql infra.SQLExecutor) *FeedbackRepositoryPG {
	return &FeedbackRepositoryPG{sql: sql}
}

// Insert returns the generated feedback id.
func (r *FeedbackRepositoryPG) Insert(ctx context.Context, event *domain.FeedbackEvent, analysis *domain.FeedbackAnalysis) (string, error) {
	items := event.OutfitItems
	if items == nil {
		items = []domain.OutfitItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode outfit items: %w", err)
	}
	var weatherJSON []byte
	if event.Weather != nil {
		if weatherJSON, err = json.Marshal(event.Weather); err != nil {
			return "", fmt.Errorf("encode weather: %w", err)
		}
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return "", fmt.Errorf("encode analysis: %w", err)
	}

	var id string
	err = r.sql.QueryRow(ctx, sqlinline.QInsertFeedbackEvent,
		event.UserID,
		event.RecommendationID,
		event.IsLiked,
		event.Reason,
		itemsJSON,
		weatherJSON,
		analysisJSON,
		event.CreatedAt,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
