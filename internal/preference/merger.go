package preference

import (
	"math"
	"sort"

	"outfitstudio/internal/domain"
)

const (
	// DecayFactor shrinks every stored score once per merged event.
	DecayFactor = 0.95
	// PruneThreshold drops scores whose magnitude falls below it.
	PruneThreshold = 0.1
	// TopN bounds the number of tags returned per category on read.
	TopN = 5
)

// Merge decays existing scores, adds deltas and prunes near-zero entries.
// The input map is not modified. Merging the same deltas twice yields a
// different result than merging them once.
func Merge(existing, deltas map[string]float64) map[string]float64 {
	merged := make(map[string]float64, len(existing)+len(deltas))
	for tag, score := range existing {
		merged[tag] = score * DecayFactor
	}
	for tag, delta := range deltas {
		merged[tag] += delta
	}
	for tag, score := range merged {
		if math.Abs(score) < PruneThreshold {
			delete(merged, tag)
		}
	}
	return merged
}

// MergeProfile applies one analysis to every category of profile. A nil
// profile is treated as empty.
func MergeProfile(profile *domain.PreferenceProfile, analysis domain.FeedbackAnalysis) *domain.PreferenceProfile {
	if profile == nil {
		profile = domain.NewPreferenceProfile()
	}
	return &domain.PreferenceProfile{
		Colors:    Merge(profile.Colors, analysis.Colors),
		Styles:    Merge(profile.Styles, analysis.Styles),
		Materials: Merge(profile.Materials, analysis.Materials),
	}
}

// Top returns the read view of profile: at most TopN strictly positive tags
// per category, strongest first, ties ordered lexically.
func Top(profile *domain.PreferenceProfile) domain.TopPreferences {
	if profile == nil {
		profile = domain.NewPreferenceProfile()
	}
	return domain.TopPreferences{
		Colors:    topTags(profile.Colors, TopN),
		Styles:    topTags(profile.Styles, TopN),
		Materials: topTags(profile.Materials, TopN),
	}
}

func topTags(scores map[string]float64, limit int) []string {
	type entry struct {
		tag   string
		score float64
	}
	entries := make([]entry, 0, len(scores))
	for tag, score := range scores {
		if score > 0 {
			entries = append(entries, entry{tag: tag, score: score})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].tag < entries[j].tag
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.tag
	}
	return out
}
