package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-matcher/internal/catalog"
	"catalog-matcher/internal/config"
	"catalog-matcher/internal/http"
	"catalog-matcher/internal/llm"
	"catalog-matcher/internal/match"
	"catalog-matcher/internal/storage"
	"catalog-matcher/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API matches discontinued products named on end-of-life letters against the
// product catalog and returns ranked, explained candidates.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Catalog Matcher API
//   description: |
//     Multi-strategy matching of obsolete product references against a product catalog.
//     Each candidate carries per-signal scores, a confidence tier and match reasons.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)
	catalogRepo := storage.NewCatalogRepo(db)

	// Match rules (aliases, legacy prefixes, override policies)
	rules, err := match.LoadRules(cfg.RulesFile)
	if err != nil {
		slog.Error("Failed to load match rules", "path", cfg.RulesFile, "error", err)
		os.Exit(1)
	}

	// Embedding provider, validated before anything depends on it (fail-fast)
	var embedder llm.Embedder
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderHash:
		embedder = llm.NewHashEmbedder(cfg.EmbeddingDimensions)
	default:
		embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName,
			cfg.EmbeddingDimensions, cfg.EmbeddingRateLimit)
	}
	probeCtx, cancelProbe := context.WithTimeout(ctx, 30*time.Second)
	err = llm.Probe(probeCtx, embedder)
	cancelProbe()
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	slog.Info("Embedding client validated", "provider", cfg.EmbeddingProvider, "vector_size", cfg.EmbeddingDimensions)

	// Vector index backend
	var vectorStore vectorstore.VectorStore
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		qdrantStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		defer func() {
			_ = qdrantStore.Close()
		}()
		vectorStore = qdrantStore
		slog.Info("Qdrant vector store configured", "url", cfg.QdrantURL, "collection", cfg.QdrantCollection)
	default:
		vectorStore = vectorstore.NewMemoryStore()
		slog.Info("In-memory vector store configured")
	}

	// Catalog index shares the normalizer's canonical range keys
	normalizer := match.NewNormalizer(rules)
	loader := catalog.NewLoader(catalogRepo, catalog.BuildOptions{
		Canonicalize: normalizer.CanonicalRange,
		Embedder:     embedder,
		Vectors:      vectorStore,
		Collection:   cfg.QdrantCollection,
		BatchSize:    cfg.EmbeddingBatchSize,
	})
	holder := catalog.NewHolder(loader)

	engine, err := match.NewEngine(holder, rules, embedder, match.Config{
		MaxResults:          cfg.MaxResults,
		SemanticTopK:        cfg.SemanticTopK,
		SemanticMinScore:    cfg.SemanticMinScore,
		LexicalMinScore:     cfg.LexicalMinScore,
		MinScopeSize:        cfg.MinScopeSize,
		HardTechnicalFilter: cfg.HardTechnicalFilter,
		EmbeddingTimeout:    cfg.EmbeddingTimeout,
		EmbeddingCacheSize:  cfg.EmbeddingCacheSize,
	})
	if err != nil {
		slog.Error("Failed to create match engine", "code", match.CodeOf(err), "error", err)
		os.Exit(1)
	}
	slog.Info("Match engine initialized")

	// Create router with dependencies
	deps := &http.Deps{
		Matcher:     engine,
		Catalog:     holder,
		VectorStore: vectorStore,
	}
	router := http.NewRouter(deps)

	// The first snapshot must load before serving; a broken catalog stops startup.
	slog.Info("Starting catalog index build")
	idx, err := holder.Reload(ctx)
	if err != nil {
		if catalog.IsMisconfigured(err) {
			log.Fatalf("Catalog snapshot is misconfigured: %v", err)
		}
		log.Fatalf("Failed to build catalog index: %v", err)
	}
	slog.Info("Catalog index ready", "products", idx.Len(), "skipped", idx.Skipped(), "version", idx.Version())

	// Later refreshes keep the previous snapshot on failure
	go holder.Run(ctx, cfg.RefreshInterval)

	// Start API server
	addr := ":" + cfg.APIPort
	srv := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
		_ = srv.Close()
	}
	slog.Info("Server stopped")
}
