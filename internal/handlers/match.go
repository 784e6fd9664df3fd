package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"catalog-matcher/internal/contextutil"
	"catalog-matcher/internal/match"
)

// MatchHandler handles HTTP requests for catalog matching.
type MatchHandler struct {
	matcher match.Matcher
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matcher match.Matcher) *MatchHandler {
	return &MatchHandler{matcher: matcher}
}

// MatchRequest represents the HTTP request payload for a match.
// It mirrors match.MatchQuery with wire names used by the extraction step.
//
// swagger:model MatchRequest
type MatchRequest struct {
	// Range label as it appears on the letter (required)
	RangeLabel string `json:"range_label"`

	// Optional subrange or model label
	SubrangeLabel string `json:"subrange_label,omitempty"`

	// Service line hint, e.g. "secure-power" or "SPIBS"
	ProductLine string `json:"product_line,omitempty"`

	// Free text describing the discontinued product
	ProductDescription string `json:"product_description,omitempty"`

	// Optional device type filter, e.g. "UPS"
	DeviceType string `json:"device_type,omitempty"`

	// Raw technical strings such as "12-17.5kV"
	TechnicalSpecs match.TechnicalSpecs `json:"technical_specs"`

	// Only return obsolete products. Defaults to true when omitted.
	RequireObsoleteOnly *bool `json:"require_obsolete_only,omitempty"`

	// Truncation override; 0 uses the server default
	MaxResults int `json:"max_results,omitempty"`
}

// Query converts the request into a match query.
func (r MatchRequest) Query() match.MatchQuery {
	q := match.NewQuery(r.RangeLabel)
	q.SubrangeLabel = r.SubrangeLabel
	q.ServiceLineHint = r.ProductLine
	q.DescriptionText = r.ProductDescription
	q.DeviceType = r.DeviceType
	q.TechnicalSpecs = r.TechnicalSpecs
	q.MaxResults = r.MaxResults
	if r.RequireObsoleteOnly != nil {
		q.RequireObsoleteOnly = *r.RequireObsoleteOnly
	}
	return q
}

// ErrorResponse represents an error response.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Human readable message
	Error string `json:"error"`

	// Machine readable code, e.g. MALFORMED_QUERY
	Code string `json:"code"`

	// Offending request field, when known
	Field string `json:"field,omitempty"`
}

// ServeHTTP handles HTTP requests for catalog matching.
//
// swagger:route POST /api/v1/match matchProduct
//
// # Match a discontinued product against the catalog
//
// Returns ranked candidates with per-signal scores, a confidence tier and
// the reasons each candidate was proposed.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Ranked candidates, possibly empty
//	  schema:
//	    "$ref": "#/definitions/MatchResult"
//	'400':
//	  description: Malformed query
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Catalog not loaded yet
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *MatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed", Code: match.CodeMalformedQuery})
		return
	}

	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: match.CodeMalformedQuery})
		return
	}

	result, err := h.matcher.Match(ctx, req.Query())
	if err != nil {
		h.handleMatchError(w, r, err)
		return
	}
	if result.Candidates == nil {
		result.Candidates = []match.MatchCandidate{}
	}

	writeJSON(w, http.StatusOK, result)
}

// handleMatchError maps typed match errors to HTTP status codes.
func (h *MatchHandler) handleMatchError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var merr *match.Error
	switch code := match.CodeOf(err); code {
	case match.CodeMalformedQuery:
		logger.WarnContext(ctx, "malformed match query", "error", err)
		resp := ErrorResponse{Error: err.Error(), Code: code}
		if errors.As(err, &merr) {
			resp.Field = merr.Field
		}
		writeError(w, http.StatusBadRequest, resp)
	case match.CodeCatalogNotReady:
		logger.WarnContext(ctx, "match rejected, catalog not ready")
		writeError(w, http.StatusServiceUnavailable, ErrorResponse{Error: "Catalog is not loaded yet", Code: code})
	default:
		logger.ErrorContext(ctx, "match failed", "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to process match query", Code: match.CodeInternal})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	writeJSON(w, statusCode, resp)
}
