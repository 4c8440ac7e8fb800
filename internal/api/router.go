package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/trellis/internal/siteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *siteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Modules.
	r.Get("/modules", h.ListModules)
	r.Post("/modules", h.CreateModule)
	r.Delete("/modules/{module}", h.DeleteModule)
	r.Get("/modules/{module}/tree", h.GetTree)
	r.Put("/modules/{module}/order", h.SetOrder)

	// Pages and subpages.
	r.Post("/nodes", h.CreateNode)
	r.Post("/nodes/rename", h.RenameNode)
	r.Delete("/nodes/*", h.DeleteNode)
	r.Patch("/nodes/*", h.UpdateMetadata)

	// Diagrams.
	r.Get("/graph", h.Graph)

	// Analytics.
	r.Get("/analytics", h.Analytics)
	r.Get("/analytics/history", h.History)

	// Cache control.
	r.Post("/cache/invalidate", h.InvalidateCache)

	// Assets (auth-protected).
	r.Get("/assets", h.ListAssets)
	r.Post("/assets", h.UploadAsset)
	r.Delete("/assets", h.DeleteAsset)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
