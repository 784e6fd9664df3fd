package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"catalog-matcher/internal/catalog"
	"catalog-matcher/internal/contextutil"
	"catalog-matcher/internal/vectorstore"
)

// CatalogStatus reports the state of the served catalog snapshot.
type CatalogStatus interface {
	Current() *catalog.Index
	Reloading() bool
	LastError() (time.Time, error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	catalog            CatalogStatus
	vectorStore        vectorstore.VectorStore
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. vectorStore may be nil when
// semantic matching is not backed by a vector index.
func NewHealthHandler(status CatalogStatus, vectorStore vectorstore.VectorStore) *HealthHandler {
	return &HealthHandler{
		catalog:            status,
		vectorStore:        vectorStore,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// Catalog snapshot details, present once a snapshot is loaded
	Catalog *CatalogInfo `json:"catalog,omitempty"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// CatalogInfo describes the active catalog snapshot.
//
// swagger:model CatalogInfo
type CatalogInfo struct {
	Products  int    `json:"products"`
	Skipped   int    `json:"skipped"`
	Version   string `json:"version"`
	BuiltAt   string `json:"built_at"`
	Reloading bool   `json:"reloading"`
	LastError string `json:"last_error,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Returns 200 OK if healthy, 503 Service Unavailable if degraded or unhealthy.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// Reports whether a catalog snapshot is loaded and its vector index is reachable.
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: System is healthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: System is degraded or unhealthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	status := "healthy"

	idx := h.catalog.Current()
	var info *CatalogInfo
	if idx == nil {
		checks["catalog"] = "not_loaded"
		issues = append(issues, "catalog_not_loaded")
		status = "unhealthy"
	} else {
		checks["catalog"] = "ok"
		info = &CatalogInfo{
			Products:  idx.Len(),
			Skipped:   idx.Skipped(),
			Version:   idx.Version(),
			BuiltAt:   idx.BuiltAt().UTC().Format(time.RFC3339),
			Reloading: h.catalog.Reloading(),
		}
		if _, err := h.catalog.LastError(); err != nil {
			info.LastError = err.Error()
			issues = append(issues, "last_reload_failed")
			status = "degraded"
		}
	}

	switch {
	case h.vectorStore == nil || idx == nil || idx.Collection() == "":
		checks["vector_store"] = "disabled"
	case h.checkVectorStore(checkCtx, logger, idx.Collection()):
		checks["vector_store"] = "ok"
	default:
		checks["vector_store"] = "error"
		issues = append(issues, "vector_store_unavailable")
		if status == "healthy" {
			status = "degraded"
		}
	}

	httpStatus := http.StatusOK
	if status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Catalog:   info,
		Issues:    issues,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

// checkVectorStore checks if the snapshot's collection is accessible.
func (h *HealthHandler) checkVectorStore(ctx context.Context, logger *slog.Logger, collection string) bool {
	exists, err := h.vectorStore.CollectionExists(ctx, collection)
	if err != nil {
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		return false
	}
	if !exists {
		logger.WarnContext(ctx, "vector store collection does not exist", "collection", collection)
		return false
	}
	return true
}
