package preference

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"outfitstudio/internal/domain"
)

// Per-occurrence weights. Dislikes count half as much as likes because a
// single dislike generalizes less reliably.
const (
	LikeWeight    = 1.0
	DislikeWeight = -0.5
)

// Analyze converts a feedback event into signed preference deltas and the
// category co-occurrence pairs of the outfit. Items with missing attributes
// only skip the missing attribute.
func Analyze(event domain.FeedbackEvent) domain.FeedbackAnalysis {
	weight := DislikeWeight
	if event.IsLiked {
		weight = LikeWeight
	}

	lower := cases.Lower(language.Und)
	normalize := func(tag string) string {
		return lower.String(strings.TrimSpace(tag))
	}

	analysis := domain.FeedbackAnalysis{
		Colors:    map[string]float64{},
		Styles:    map[string]float64{},
		Materials: map[string]float64{},
		Pairs:     []domain.ItemPair{},
	}
	add := func(dst map[string]float64, raw string) {
		if tag := normalize(raw); tag != "" {
			dst[tag] += weight
		}
	}

	for _, item := range event.OutfitItems {
		add(analysis.Colors, item.Color)
		add(analysis.Styles, item.Style)
		add(analysis.Materials, item.Material)
	}

	for i := 0; i < len(event.OutfitItems); i++ {
		first := normalize(event.OutfitItems[i].Category)
		if first == "" {
			continue
		}
		for j := i + 1; j < len(event.OutfitItems); j++ {
			second := normalize(event.OutfitItems[j].Category)
			if second == "" {
				continue
			}
			analysis.Pairs = append(analysis.Pairs, domain.ItemPair{First: first, Second: second})
		}
	}

	return analysis
}
