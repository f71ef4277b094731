package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"outfitstudio/internal/domain"
	"outfitstudio/internal/infra"
	"outfitstudio/internal/providers/genai"
)

// DefaultURLTTL is how long a published URL stays valid when no TTL is configured.
const DefaultURLTTL = 30 * time.Minute

// ObjectStore is the minimal surface the publisher needs from a blob store.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Publisher uploads generated images and returns signed URLs for them.
type Publisher struct {
	store  ObjectStore
	root   string
	ttl    time.Duration
	logger *infra.Logger
}

// NewPublisher wires a publisher. root prefixes every key.
func NewPublisher(store ObjectStore, root string, ttl time.Duration, logger *infra.Logger) *Publisher {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Publisher{
		store:  store,
		root:   strings.Trim(strings.TrimSpace(root), "/"),
		ttl:    ttl,
		logger: logger,
	}
}

// Publish uploads images in order and returns one signed URL per image. The
// first failed upload or signing aborts the batch and no URLs are returned.
func (p *Publisher) Publish(ctx context.Context, userID, jobID string, images []genai.Image, quality domain.Quality) ([]string, error) {
	if p == nil || p.store == nil {
		return nil, errors.New("assets: no object store configured")
	}
	if len(images) == 0 {
		return nil, errors.New("assets: no images to publish")
	}
	urls := make([]string, 0, len(images))
	for i, img := range images {
		key, err := ObjectKey(p.root, quality, userID, jobID, i, img.MIMEType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
		}
		if err := p.store.Upload(ctx, key, img.Data, contentType(img.MIMEType)); err != nil {
			return nil, fmt.Errorf("%w: upload %s: %v", domain.ErrStorageFailure, key, err)
		}
		signed, err := p.store.SignedURL(ctx, key, p.ttl)
		if err != nil {
			return nil, fmt.Errorf("%w: sign %s: %v", domain.ErrStorageFailure, key, err)
		}
		urls = append(urls, signed)
	}
	p.logger.Debug().
		Str("job_id", jobID).
		Str("tier", quality.StorageTier()).
		Int("count", len(urls)).
		Msg("assets: published images")
	return urls, nil
}

// ObjectKey builds {root}/{tier}/{userID}/{jobID}/img_{index+1}.{ext}. The
// user and job ids must each be a single path segment.
func ObjectKey(root string, quality domain.Quality, userID, jobID string, index int, mimeType string) (string, error) {
	if err := checkSegment("user id", userID); err != nil {
		return "", err
	}
	if err := checkSegment("job id", jobID); err != nil {
		return "", err
	}
	name := fmt.Sprintf("img_%d.%s", index+1, extensionFor(mimeType))
	parts := []string{quality.StorageTier(), userID, jobID, name}
	if root != "" {
		parts = append([]string{root}, parts...)
	}
	return path.Join(parts...), nil
}

func checkSegment(label, v string) error {
	if strings.TrimSpace(v) == "" || v == "." || strings.Contains(v, "..") || strings.ContainsAny(v, `/\`) {
		return fmt.Errorf("assets: invalid %s %q", label, v)
	}
	return nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

func contentType(mimeType string) string {
	if strings.TrimSpace(mimeType) == "" {
		return "image/png"
	}
	return mimeType
}
