package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"outfitstudio/internal/infra"
	"outfitstudio/internal/metrics"
)

const (
	maxResponseBytes  = 64 << 20
	maxReferenceBytes = 16 << 20
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey       string
	BaseURL      string
	PreviewModel string
	FinalModel   string
	HTTPClient   *http.Client
	Logger       *infra.Logger
	// RatePerSecond caps outgoing generation calls. Zero disables the limiter.
	RatePerSecond float64
	// DisableBreaker turns off the circuit breaker, mostly for tests that
	// exercise repeated upstream failures.
	DisableBreaker bool
}

// Client calls the Gemini generateContent endpoint for outfit renders. It is
// constructed explicitly and holds no package-level state. Without an API key
// it renders deterministic synthetic images so local environments keep the
// whole pipeline running.
type Client struct {
	apiKey     string
	baseURL    string
	models     map[string]string
	httpClient *http.Client
	logger     *infra.Logger
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]Image]
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one will be created. Timeouts are driven by the
// request context.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Minute}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	preview := strings.TrimSpace(opts.PreviewModel)
	if preview == "" {
		preview = "gemini-2.5-flash-image"
	}
	final := strings.TrimSpace(opts.FinalModel)
	if final == "" {
		final = preview
	}

	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	c := &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		models:     map[string]string{"preview": preview, "final": final},
		httpClient: client,
		logger:     logger,
	}
	if opts.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	if !opts.DisableBreaker {
		c.breaker = newBreaker(logger)
	}
	return c, nil
}

func newBreaker(logger *infra.Logger) *gobreaker.CircuitBreaker[[]Image] {
	return gobreaker.NewCircuitBreaker[[]Image](gobreaker.Settings{
		Name:        "gemini-generate",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("genai: circuit breaker state change")
		},
	})
}

// breakerSuccess counts only availability problems against the breaker:
// transport errors, 429 and 5xx. Client errors and empty payloads say nothing
// about upstream health.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, ErrNoImageData) || errors.Is(err, context.Canceled) {
		return true
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode < 500 && upstream.StatusCode != http.StatusTooManyRequests
	}
	return false
}

// Synthetic reports whether the client renders placeholders instead of calling the API.
func (c *Client) Synthetic() bool {
	return c.apiKey == ""
}

// Model returns the model used for a quality tier.
func (c *Client) Model(quality string) string {
	if m, ok := c.models[quality]; ok {
		return m
	}
	return c.models["preview"]
}

// Generate performs one generation call and returns every image in the response.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) ([]Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	refs, err := c.resolveReferences(ctx, req.References)
	if err != nil {
		return nil, err
	}
	return c.generate(ctx, req, refs)
}

// GenerateVariations calls the API count times, one after another, with seeds
// req.Seed, req.Seed+1, ... and returns one image per call in seed order. The
// first failing variation aborts the batch; no partial list is returned.
func (c *Client) GenerateVariations(ctx context.Context, req GenerateRequest, count int) ([]Image, error) {
	if count <= 0 {
		return nil, fmt.Errorf("genai: variation count must be positive, got %d", count)
	}
	refs, err := c.resolveReferences(ctx, req.References)
	if err != nil {
		return nil, err
	}

	out := make([]Image, 0, count)
	for i := 0; i < count; i++ {
		variant := req
		variant.Seed = req.Seed + int64(i)
		images, err := c.generate(ctx, variant, refs)
		if err != nil {
			return nil, fmt.Errorf("variation %d/%d (seed %d): %w", i+1, count, variant.Seed, err)
		}
		out = append(out, images[0])
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, req GenerateRequest, refs []ReferenceImage) ([]Image, error) {
	if c.Synthetic() {
		return []Image{renderSynthetic(req)}, nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("genai: rate limit wait: %w", err)
		}
	}

	call := func() ([]Image, error) { return c.invoke(ctx, req, refs) }
	var (
		images []Image
		err    error
	)
	if c.breaker != nil {
		images, err = c.breaker.Execute(call)
	} else {
		images, err = call()
	}
	metrics.GenerationCalls.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.Model(req.Quality)).
		Int64("seed", req.Seed).
		Int("images", len(images)).
		Msg("genai: generated images")
	return images, nil
}

func outcome(err error) string {
	var upstream *UpstreamError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoImageData):
		return "no_image"
	case errors.As(err, &upstream):
		return "upstream_error"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "transport_error"
	}
}

func (c *Client) invoke(ctx context.Context, req GenerateRequest, refs []ReferenceImage) ([]Image, error) {
	_, params := ResolveStyle(req.StylePreset)
	parts := make([]geminiPart, 0, len(refs)+1)
	parts = append(parts, geminiPart{Text: req.Prompt})
	for _, ref := range refs {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: ref.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(ref.Data),
		}})
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:        params.Temperature,
			TopP:               params.TopP,
			TopK:               params.TopK,
			Seed:               req.Seed,
			CandidateCount:     1,
			ResponseModalities: []string{"IMAGE"},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("genai: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.Model(req.Quality)))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("genai: create request: %w", err)
	}
	q := httpReq.URL.Query()
	q.Set("key", c.apiKey)
	httpReq.URL.RawQuery = q.Encode()
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("genai: invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("genai: read response: %w", err)
	}

	result := classifyResponse(resp.StatusCode, raw)
	switch result.kind {
	case resultImages:
		return result.images, nil
	case resultUpstreamError:
		return nil, result.upstream
	default:
		if result.detail != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoImageData, result.detail)
		}
		return nil, ErrNoImageData
	}
}

type resultKind int

const (
	resultImages resultKind = iota
	resultNoImage
	resultUpstreamError
)

// generateResult is the validated outcome of one API answer. Exactly one of
// images (resultImages) or upstream (resultUpstreamError) is set; detail
// explains a resultNoImage.
type generateResult struct {
	kind     resultKind
	images   []Image
	upstream *UpstreamError
	detail   string
}

func classifyResponse(status int, raw []byte) generateResult {
	if status < 200 || status >= 300 {
		upstream := &UpstreamError{StatusCode: status}
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Message != "" {
			upstream.Message = apiErr.Error.Message
		} else {
			upstream.Message = truncate(strings.TrimSpace(string(raw)), 512)
		}
		return generateResult{kind: resultUpstreamError, upstream: upstream}
	}

	var decoded geminiGenerateContentResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return generateResult{kind: resultNoImage, detail: "malformed response body"}
	}
	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return generateResult{kind: resultNoImage, detail: "prompt blocked: " + decoded.PromptFeedback.BlockReason}
	}

	var images []Image
	var finishReason string
	for _, candidate := range decoded.Candidates {
		if finishReason == "" {
			finishReason = candidate.FinishReason
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			if !strings.HasPrefix(strings.ToLower(part.InlineData.MimeType), "image/") {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil || len(data) == 0 {
				continue
			}
			images = append(images, Image{Data: data, MIMEType: part.InlineData.MimeType})
		}
	}
	if len(images) == 0 {
		if finishReason != "" {
			return generateResult{kind: resultNoImage, detail: "finish reason " + finishReason}
		}
		return generateResult{kind: resultNoImage}
	}
	return generateResult{kind: resultImages, images: images}
}

func (c *Client) resolveReferences(ctx context.Context, refs []ReferenceImage) ([]ReferenceImage, error) {
	if c.Synthetic() || len(refs) == 0 {
		return refs, nil
	}
	out := make([]ReferenceImage, len(refs))
	for i, ref := range refs {
		if len(ref.Data) > 0 {
			if ref.MIMEType == "" {
				ref.MIMEType = http.DetectContentType(ref.Data)
			}
			out[i] = ref
			continue
		}
		data, mime, err := c.download(ctx, ref.URL)
		if err != nil {
			return nil, fmt.Errorf("genai: reference %d: %w", i+1, err)
		}
		out[i] = ReferenceImage{URL: ref.URL, MIMEType: firstNonEmpty(ref.MIMEType, mime), Data: data}
	}
	return out, nil
}

func (c *Client) download(ctx context.Context, uri string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(uri))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, "", fmt.Errorf("invalid reference url %q", uri)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download reference: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("download reference status %d", resp.StatusCode)
	}
	blob, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read reference: %w", err)
	}
	if len(blob) == 0 {
		return nil, "", fmt.Errorf("empty reference image")
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(blob)
	}
	return blob, mime, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
