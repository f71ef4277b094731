package domain

// PreferenceProfile is the learned per-user affinity model, persisted as a JSON blob.
type PreferenceProfile struct {
	Colors    map[string]float64 `json:"colors"`
	Styles    map[string]float64 `json:"styles"`
	Materials map[string]float64 `json:"materials"`
}

// NewPreferenceProfile returns an empty profile with all categories allocated.
func NewPreferenceProfile() *PreferenceProfile {
	return &PreferenceProfile{
		Colors:    map[string]float64{},
		Styles:    map[string]float64{},
		Materials: map[string]float64{},
	}
}

// TopPreferences is the read view of a profile: strongest positive tags per category.
type TopPreferences struct {
	Colors    []string `json:"colors"`
	Styles    []string `json:"styles"`
	Materials []string `json:"materials"`
}
