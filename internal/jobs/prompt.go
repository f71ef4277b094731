package jobs

import (
	"fmt"
	"strings"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/providers/genai"
)

var presetDirections = map[string]string{
	"casual":     "relaxed everyday styling, natural daylight, candid pose",
	"formal":     "tailored fit, clean studio backdrop, composed upright pose",
	"streetwear": "urban setting, bold layering, dynamic pose",
	"minimal":    "neutral seamless background, soft even lighting, understated pose",
	"vintage":    "film grain, warm tones, period-appropriate setting",
	"editorial":  "fashion magazine framing, dramatic lighting, confident pose",
}

// BuildPrompt describes the outfit for the generation model. Items appear in
// the same order as the reference images attached to the request.
func BuildPrompt(job *domain.GenerationJob) string {
	preset, _ := genai.ResolveStyle(job.StylePreset)

	var b strings.Builder
	b.WriteString("Full-body fashion photograph of one model wearing a complete outfit made of exactly these items:\n")
	for i, ref := range job.ItemRefs {
		category := strings.TrimSpace(ref.Category)
		if category == "" {
			category = "item"
		}
		fmt.Fprintf(&b, "%d. %s (reference image %d)\n", i+1, category, i+1)
	}
	fmt.Fprintf(&b, "Style: %s; %s.\n", preset, presetDirections[preset])
	b.WriteString("Reproduce every garment faithfully from its reference image: same color, pattern, material and cut. Do not add other clothing items or text.\n")
	if job.Quality == domain.QualityFinal {
		b.WriteString("Render at high resolution with fine fabric detail.")
	} else {
		b.WriteString("Render a quick preview; composition matters more than fine detail.")
	}
	return b.String()
}

func referencesFor(job *domain.GenerationJob) []genai.ReferenceImage {
	refs := make([]genai.ReferenceImage, 0, len(job.ItemRefs))
	for _, ref := range job.ItemRefs {
		refs = append(refs, genai.ReferenceImage{URL: ref.ImageURL})
	}
	return refs
}
