package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

var envVars = []string{
	"CATALOG_DB_PATH", "CATALOG_REFRESH_INTERVAL",
	"EMBEDDING_PROVIDER", "EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME", "EMBEDDING_API_KEY",
	"EMBEDDING_DIMENSIONS", "EMBEDDING_TIMEOUT", "EMBEDDING_RATE_LIMIT", "EMBEDDING_BATCH_SIZE",
	"EMBEDDING_CACHE_SIZE",
	"VECTOR_BACKEND", "QDRANT_URL", "QDRANT_COLLECTION",
	"MATCH_RULES_FILE", "MATCH_MAX_RESULTS", "MATCH_SEMANTIC_TOP_K", "MATCH_SEMANTIC_MIN_SCORE",
	"MATCH_LEXICAL_MIN_SCORE", "MATCH_MIN_SCOPE_SIZE", "MATCH_HARD_TECHNICAL_FILTER",
	"API_PORT", "LOG_LEVEL", "LOG_FORMAT",
}

// isolateEnv clears every variable Load reads and restores the originals when the test ends.
func isolateEnv(t *testing.T) {
	t.Helper()
	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		unsetEnv(key)
	}
	t.Cleanup(func() {
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name: "defaults with required dimensions",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "384")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.EmbeddingDimensions == 384 &&
					cfg.DBPath == "./data/catalog.db" &&
					cfg.RefreshInterval == 0 &&
					cfg.EmbeddingProvider == EmbeddingProviderRemote &&
					cfg.EmbeddingBaseURL == "http://localhost:8081" &&
					cfg.EmbeddingModelName == "all-minilm-l6-v2" &&
					cfg.EmbeddingTimeout == 2*time.Second &&
					cfg.EmbeddingRateLimit == 20 &&
					cfg.EmbeddingBatchSize == 64 &&
					cfg.EmbeddingCacheSize == 2048 &&
					cfg.VectorBackend == VectorBackendMemory &&
					cfg.QdrantCollection == "catalog" &&
					cfg.MaxResults == 50 &&
					cfg.SemanticTopK == 100 &&
					cfg.SemanticMinScore == 0.6 &&
					cfg.LexicalMinScore == 0.5 &&
					cfg.MinScopeSize == 1 &&
					!cfg.HardTechnicalFilter &&
					cfg.APIPort == "9000" &&
					cfg.LogLevel == slog.LevelInfo &&
					cfg.LogFormat == "text"
			},
		},
		{
			name: "missing EMBEDDING_DIMENSIONS",
			setupEnv: func(t *testing.T) {
			},
			wantErr: true,
		},
		{
			name: "invalid EMBEDDING_DIMENSIONS",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "invalid")
			},
			wantErr: true,
		},
		{
			name: "zero EMBEDDING_DIMENSIONS",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "0")
			},
			wantErr: true,
		},
		{
			name: "custom matching and backends",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "256")
				setEnv("EMBEDDING_PROVIDER", "HASH")
				setEnv("VECTOR_BACKEND", "qdrant")
				setEnv("QDRANT_URL", "http://qdrant:6334")
				setEnv("CATALOG_REFRESH_INTERVAL", "15m")
				setEnv("EMBEDDING_TIMEOUT", "5")
				setEnv("MATCH_MAX_RESULTS", "10")
				setEnv("MATCH_SEMANTIC_MIN_SCORE", "0.75")
				setEnv("MATCH_HARD_TECHNICAL_FILTER", "true")
				setEnv("LOG_LEVEL", "debug")
				setEnv("LOG_FORMAT", "json")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.EmbeddingProvider == EmbeddingProviderHash &&
					cfg.VectorBackend == VectorBackendQdrant &&
					cfg.QdrantURL == "http://qdrant:6334" &&
					cfg.RefreshInterval == 15*time.Minute &&
					cfg.EmbeddingTimeout == 5*time.Second &&
					cfg.MaxResults == 10 &&
					cfg.SemanticMinScore == 0.75 &&
					cfg.HardTechnicalFilter &&
					cfg.LogLevel == slog.LevelDebug &&
					cfg.LogFormat == "json"
			},
		},
		{
			name: "unknown embedding provider",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "384")
				setEnv("EMBEDDING_PROVIDER", "openai")
			},
			wantErr: true,
		},
		{
			name: "unknown vector backend",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "384")
				setEnv("VECTOR_BACKEND", "faiss")
			},
			wantErr: true,
		},
		{
			name: "score outside unit interval",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "384")
				setEnv("MATCH_LEXICAL_MIN_SCORE", "1.5")
			},
			wantErr: true,
		},
		{
			name: "zero max results",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "384")
				setEnv("MATCH_MAX_RESULTS", "0")
			},
			wantErr: true,
		},
		{
			name: "negative refresh interval",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "384")
				setEnv("CATALOG_REFRESH_INTERVAL", "-5s")
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "384")
				setEnv("LOG_LEVEL", "verbose")
			},
			wantErr: true,
		},
		{
			name: "invalid log format",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "384")
				setEnv("LOG_FORMAT", "xml")
			},
			wantErr: true,
		},
		{
			name: "invalid boolean",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "384")
				setEnv("MATCH_HARD_TECHNICAL_FILTER", "maybe")
			},
			wantErr: true,
		},
		{
			name: "missing rules file",
			setupEnv: func(t *testing.T) {
				setEnv("EMBEDDING_DIMENSIONS", "384")
				setEnv("MATCH_RULES_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
			},
			wantErr: true,
		},
		{
			name: "existing rules file",
			setupEnv: func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "rules.yaml")
				if err := os.WriteFile(path, []byte("obsolete_statuses: [RETIRED]\n"), 0644); err != nil {
					t.Fatal(err)
				}
				setEnv("EMBEDDING_DIMENSIONS", "384")
				setEnv("MATCH_RULES_FILE", path)
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return filepath.Base(cfg.RulesFile) == "rules.yaml"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Run from an empty directory so no .env file is picked up
			originalWd, err := os.Getwd()
			if err != nil {
				t.Fatalf("Failed to get working directory: %v", err)
			}
			if err := os.Chdir(t.TempDir()); err != nil {
				t.Fatalf("Failed to change directory: %v", err)
			}
			defer func() {
				_ = os.Chdir(originalWd) // Ignore error in cleanup
			}()

			isolateEnv(t)
			tt.setupEnv(t)

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed: %+v", cfg)
			}
		})
	}
}

func TestLoad_CreatesDataDirectory(t *testing.T) {
	isolateEnv(t)

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test", "catalog.db")

	setEnv("EMBEDDING_DIMENSIONS", "384")
	setEnv("CATALOG_DB_PATH", dbPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Errorf("Load() should create data directory: %v", err)
	}

	if cfg.DBPath != dbPath {
		t.Errorf("Load() DBPath = %v, want %v", cfg.DBPath, dbPath)
	}
}

func TestGetEnv(t *testing.T) {
	originalValue := os.Getenv("TEST_ENV_VAR")
	defer func() {
		if originalValue != "" {
			setEnv("TEST_ENV_VAR", originalValue)
		} else {
			unsetEnv("TEST_ENV_VAR")
		}
	}()

	tests := []struct {
		name         string
		setupEnv     func()
		key          string
		defaultValue string
		want         string
	}{
		{
			name: "env var set",
			setupEnv: func() {
				setEnv("TEST_ENV_VAR", "set-value")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "set-value",
		},
		{
			name: "env var not set",
			setupEnv: func() {
				unsetEnv("TEST_ENV_VAR")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "default",
		},
		{
			name: "empty env var uses default",
			setupEnv: func() {
				setEnv("TEST_ENV_VAR", "")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv()
			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDuration(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{name: "unset uses default", value: "", want: 2 * time.Second},
		{name: "bare seconds", value: "30", want: 30 * time.Second},
		{name: "go duration", value: "1h30m", want: 90 * time.Minute},
		{name: "garbage", value: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv("EMBEDDING_TIMEOUT", tt.value)
			got, err := getDuration("EMBEDDING_TIMEOUT", 2*time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("getDuration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("getDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}
