package domain

import "time"

// OutfitItem is the attribute snapshot of one item at feedback time.
type OutfitItem struct {
	ItemID   string `json:"item_id,omitempty"`
	Category string `json:"category,omitempty"`
	Color    string `json:"color,omitempty"`
	Style    string `json:"style,omitempty"`
	Material string `json:"material,omitempty"`
}

// Weather is the context the recommendation was made for.
type Weather struct {
	Condition    string   `json:"condition,omitempty"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
}

// FeedbackEvent records a like or dislike on a recommendation. Events are insert-only.
type FeedbackEvent struct {
	UserID           string       `json:"user_id"`
	RecommendationID string       `json:"recommendation_id"`
	IsLiked          bool         `json:"is_liked"`
	Reason           string       `json:"reason,omitempty"`
	OutfitItems      []OutfitItem `json:"outfit_items"`
	Weather          *Weather     `json:"weather,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// ItemPair records two item categories that appeared together in one outfit.
type ItemPair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// FeedbackAnalysis holds the signed preference deltas derived from one event.
type FeedbackAnalysis struct {
	Colors    map[string]float64 `json:"colors"`
	Styles    map[string]float64 `json:"styles"`
	Materials map[string]float64 `json:"materials"`
	Pairs     []ItemPair         `json:"pairs"`
}
