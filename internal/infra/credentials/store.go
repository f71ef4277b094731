package credentials

import (
	"context"
	"errors"
	"strings"

	"outfitstudio/internal/infra"
	"outfitstudio/internal/sqlinline"
)

// ProviderGemini names the image generation credential row.
const ProviderGemini = "gemini"

// Store keeps upstream API keys in the database so they can be rotated
// without redeploying the worker.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// GeminiAPIKey returns the stored key, or "" when none is configured.
func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectProviderCredential, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpsertProviderCredential, ProviderGemini, key)
	return err
}

// ResolveGeminiAPIKey prefers the configured key and falls back to the stored one.
func (s *Store) ResolveGeminiAPIKey(ctx context.Context, configured string) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	return s.GeminiAPIKey(ctx)
}
