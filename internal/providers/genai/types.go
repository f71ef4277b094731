package genai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoImageData is returned when the API answered successfully but the
// payload carried no decodable image.
var ErrNoImageData = errors.New("genai: no image data in response")

// UpstreamError is a non-success HTTP answer from the generation API.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("genai: upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("genai: upstream status %d: %s", e.StatusCode, e.Message)
}

// ReferenceImage conditions generation on an existing item photo. When Data
// is empty the client downloads URL before calling the API.
type ReferenceImage struct {
	URL      string
	MIMEType string
	Data     []byte
}

// GenerateRequest is one generation call. Quality selects the model.
type GenerateRequest struct {
	Prompt      string
	References  []ReferenceImage
	Seed        int64
	StylePreset string
	Quality     string
	RequestID   string
}

// Image is one generated payload.
type Image struct {
	Data     []byte
	MIMEType string
}

// StyleParams are the sampling hyperparameters a style preset maps to.
type StyleParams struct {
	Temperature float64
	TopP        float64
	TopK        int
}

// DefaultStylePreset is used for unknown presets.
const DefaultStylePreset = "casual"

var stylePresets = map[string]StyleParams{
	"casual":     {Temperature: 0.8, TopP: 0.9, TopK: 40},
	"formal":     {Temperature: 0.5, TopP: 0.8, TopK: 32},
	"streetwear": {Temperature: 1.0, TopP: 0.95, TopK: 64},
	"minimal":    {Temperature: 0.4, TopP: 0.75, TopK: 24},
	"vintage":    {Temperature: 0.9, TopP: 0.9, TopK: 48},
	"editorial":  {Temperature: 0.7, TopP: 0.85, TopK: 40},
}

// ResolveStyle returns the canonical preset name and its parameters. Unknown
// presets silently resolve to DefaultStylePreset.
func ResolveStyle(preset string) (string, StyleParams) {
	key := strings.ToLower(strings.TrimSpace(preset))
	if params, ok := stylePresets[key]; ok {
		return key, params
	}
	return DefaultStylePreset, stylePresets[DefaultStylePreset]
}

// Gemini wire types. Only the fields this client reads or writes are declared.

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature        float64  `json:"temperature"`
	TopP               float64  `json:"topP"`
	TopK               int      `json:"topK"`
	Seed               int64    `json:"seed"`
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}
