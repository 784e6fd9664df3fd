package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Embedding providers.
const (
	EmbeddingProviderRemote = "remote"
	EmbeddingProviderHash   = "hash"
)

// Vector backends.
const (
	VectorBackendMemory = "memory"
	VectorBackendQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	DBPath          string
	RefreshInterval time.Duration

	EmbeddingProvider   string
	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingAPIKey     string
	EmbeddingDimensions int
	EmbeddingTimeout    time.Duration
	EmbeddingRateLimit  float64
	EmbeddingBatchSize  int
	EmbeddingCacheSize  int

	VectorBackend    string
	QdrantURL        string
	QdrantCollection string

	RulesFile           string
	MaxResults          int
	SemanticTopK        int
	SemanticMinScore    float64
	LexicalMinScore     float64
	MinScopeSize        int
	HardTechnicalFilter bool

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try current directory first, then walk up a few levels
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		DBPath:             getEnv("CATALOG_DB_PATH", "./data/catalog.db"),
		EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", EmbeddingProviderRemote)),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "all-minilm-l6-v2"),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", "dummy-key"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", VectorBackendMemory)),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "catalog"),
		RulesFile:          getEnv("MATCH_RULES_FILE", ""),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	// EMBEDDING_DIMENSIONS must match the model output; every response is checked against it.
	dimsStr := getEnv("EMBEDDING_DIMENSIONS", "")
	if dimsStr == "" {
		return nil, fmt.Errorf("EMBEDDING_DIMENSIONS is required")
	}
	dims, err := strconv.Atoi(dimsStr)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_DIMENSIONS must be a valid integer: %w", err)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("EMBEDDING_DIMENSIONS must be greater than 0")
	}
	cfg.EmbeddingDimensions = dims

	if cfg.RefreshInterval, err = getDuration("CATALOG_REFRESH_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.EmbeddingTimeout, err = getDuration("EMBEDDING_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.EmbeddingRateLimit, err = getFloat("EMBEDDING_RATE_LIMIT", 20); err != nil {
		return nil, err
	}
	if cfg.EmbeddingBatchSize, err = getPositiveInt("EMBEDDING_BATCH_SIZE", 64); err != nil {
		return nil, err
	}
	if cfg.EmbeddingCacheSize, err = getInt("EMBEDDING_CACHE_SIZE", 2048); err != nil {
		return nil, err
	}
	if cfg.MaxResults, err = getPositiveInt("MATCH_MAX_RESULTS", 50); err != nil {
		return nil, err
	}
	if cfg.SemanticTopK, err = getPositiveInt("MATCH_SEMANTIC_TOP_K", 100); err != nil {
		return nil, err
	}
	if cfg.SemanticMinScore, err = getScore("MATCH_SEMANTIC_MIN_SCORE", 0.6); err != nil {
		return nil, err
	}
	if cfg.LexicalMinScore, err = getScore("MATCH_LEXICAL_MIN_SCORE", 0.5); err != nil {
		return nil, err
	}
	if cfg.MinScopeSize, err = getInt("MATCH_MIN_SCOPE_SIZE", 1); err != nil {
		return nil, err
	}
	if cfg.HardTechnicalFilter, err = getBool("MATCH_HARD_TECHNICAL_FILTER", false); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	switch cfg.EmbeddingProvider {
	case EmbeddingProviderRemote, EmbeddingProviderHash:
	default:
		return nil, fmt.Errorf("EMBEDDING_PROVIDER must be %q or %q, got %q",
			EmbeddingProviderRemote, EmbeddingProviderHash, cfg.EmbeddingProvider)
	}
	switch cfg.VectorBackend {
	case VectorBackendMemory, VectorBackendQdrant:
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q",
			VectorBackendMemory, VectorBackendQdrant, cfg.VectorBackend)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}
	if cfg.RulesFile != "" {
		if _, err := os.Stat(cfg.RulesFile); err != nil {
			return nil, fmt.Errorf("MATCH_RULES_FILE: %w", err)
		}
	}

	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	v, err := getInt(key, defaultValue)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return v, nil
}

// getScore reads a float that must lie within [0, 1].
func getScore(key string, defaultValue float64) (float64, error) {
	v, err := getFloat(key, defaultValue)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("%s must be within [0, 1]", key)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

// getDuration accepts Go durations ("30s", "15m") or bare seconds.
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	s := getEnv(key, "")
	if s == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("%s must not be negative", key)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}
