package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"catalog-matcher/internal/handlers"
	"catalog-matcher/internal/match"
	"catalog-matcher/internal/vectorstore"
)

// CatalogService is the catalog holder as seen by the HTTP layer.
type CatalogService interface {
	handlers.CatalogStatus
	handlers.CatalogReloader
}

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Matcher     match.Matcher
	Catalog     CatalogService
	VectorStore vectorstore.VectorStore // nil when no vector index is configured
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	matchHandler := handlers.NewMatchHandler(deps.Matcher)
	healthHandler := handlers.NewHealthHandler(deps.Catalog, deps.VectorStore)
	reloadHandler := handlers.NewReloadHandler(deps.Catalog)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/match", matchHandler)
			r.Method(http.MethodPost, "/catalog/reload", reloadHandler)
		})
	})

	return r
}
