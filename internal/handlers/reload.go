package handlers

import (
	"context"
	"errors"
	"net/http"

	"catalog-matcher/internal/catalog"
	"catalog-matcher/internal/contextutil"
	"catalog-matcher/internal/match"
)

// CatalogReloader starts a background rebuild of the catalog snapshot.
type CatalogReloader interface {
	TriggerReload(ctx context.Context) error
}

// ReloadHandler handles HTTP requests that refresh the catalog snapshot.
type ReloadHandler struct {
	reloader CatalogReloader
}

// NewReloadHandler creates a new ReloadHandler.
func NewReloadHandler(reloader CatalogReloader) *ReloadHandler {
	return &ReloadHandler{reloader: reloader}
}

// ReloadResponse acknowledges a reload request.
//
// swagger:model ReloadResponse
type ReloadResponse struct {
	Status string `json:"status"`
}

// ServeHTTP triggers a catalog reload.
//
// swagger:route POST /api/v1/catalog/reload reloadCatalog
//
// # Rebuild the catalog index
//
// Builds a new snapshot in the background and swaps it in atomically.
// In-flight requests keep the snapshot they started with.
//
// ---
// produces:
// - application/json
// responses:
//
//	'202':
//	  description: Reload started
//	  schema:
//	    "$ref": "#/definitions/ReloadResponse"
//	'409':
//	  description: A reload is already running
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := h.reloader.TriggerReload(ctx); err != nil {
		if errors.Is(err, catalog.ErrReloadInProgress) {
			logger.InfoContext(ctx, "catalog reload already running")
			writeError(w, http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "RELOAD_IN_PROGRESS"})
			return
		}
		logger.ErrorContext(ctx, "failed to start catalog reload", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to start reload", Code: match.CodeInternal})
		return
	}

	logger.InfoContext(ctx, "catalog reload started")
	writeJSON(w, http.StatusAccepted, ReloadResponse{Status: "reloading"})
}
