package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage modes supported by the asset publisher.
const (
	StorageModeFilesystem = "filesystem"
	StorageModeGCS        = "gcs"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QueueName     string

	StorageMode    string
	StoragePath    string
	StorageBaseURL string
	StorageRoot    string
	StorageSignKey string
	GCSBucket      string
	GCSCredentials string
	SignedURLTTL   time.Duration

	GeminiAPIKey       string
	GeminiBaseURL      string
	GeminiPreviewModel string
	GeminiFinalModel   string
	GeminiRatePerSec   float64

	PreviewVariations int
	FinalVariations   int
	WorkerConcurrency int
	WorkerMetricsAddr string
	JobTimeout        time.Duration
	StaleJobAfter     time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        port,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		QueueName:     getEnv("JOB_QUEUE_NAME", "outfit:jobs"),

		StorageMode:    strings.ToLower(getEnv("STORAGE_MODE", StorageModeFilesystem)),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		StorageRoot:    getEnv("STORAGE_ROOT", "outfits"),
		StorageSignKey: os.Getenv("STORAGE_SIGNING_KEY"),
		GCSBucket:      os.Getenv("GCS_BUCKET"),
		GCSCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		SignedURLTTL:   getEnvDuration("SIGNED_URL_TTL", 30*time.Minute),

		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiPreviewModel: getEnv("GEMINI_PREVIEW_MODEL", "gemini-2.5-flash-image"),
		GeminiFinalModel:   getEnv("GEMINI_FINAL_MODEL", "gemini-3-pro-image-preview"),
		GeminiRatePerSec:   getEnvFloat("GEMINI_RATE_PER_SECOND", 2),

		PreviewVariations: getEnvInt("PREVIEW_VARIATIONS", 3),
		FinalVariations:   getEnvInt("FINAL_VARIATIONS", 1),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		WorkerMetricsAddr: getEnv("WORKER_METRICS_ADDR", ":9091"),
		JobTimeout:        getEnvDuration("JOB_TIMEOUT", 5*time.Minute),
		StaleJobAfter:     getEnvDuration("STALE_JOB_AFTER", 15*time.Minute),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.StorageMode {
	case StorageModeFilesystem:
		if cfg.StorageSignKey == "" {
			cfg.StorageSignKey = cfg.JWTSecret
		}
	case StorageModeGCS:
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is required when STORAGE_MODE=gcs")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_MODE %q", cfg.StorageMode)
	}

	if cfg.PreviewVariations < 1 || cfg.PreviewVariations > 4 {
		return nil, fmt.Errorf("PREVIEW_VARIATIONS must be between 1 and 4")
	}
	if cfg.FinalVariations < 1 || cfg.FinalVariations > 4 {
		return nil, fmt.Errorf("FINAL_VARIATIONS must be between 1 and 4")
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 1
	}

	return cfg, nil
}

// RequireJWTSecret is used by processes that authenticate callers.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
