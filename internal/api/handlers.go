package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/trellis/internal/apperr"
	"github.com/starford/trellis/internal/siteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *siteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *siteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// nodePath extracts the node path from the URL (everything after the
// route prefix). Supports encoded slashes from OpenAPI clients.
func nodePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps the apperr taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrUnknownSlug):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListModules handles GET /api/modules.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListModules(r.Context())
	if err != nil {
		writeError(w, "list modules", err)
		return
	}
	writeJSON(w, http.StatusOK, ModuleListResponse{Modules: list})
}

// CreateModule handles POST /api/modules.
func (h *Handler) CreateModule(w http.ResponseWriter, r *http.Request) {
	var req CreateModuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.CreateModule(r.Context(), req.Name); err != nil {
		writeError(w, "create module", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// DeleteModule handles DELETE /api/modules/{module}.
func (h *Handler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")
	if err := h.svc.DeleteModule(r.Context(), module); err != nil {
		writeError(w, "delete module", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTree handles GET /api/modules/{module}/tree.
func (h *Handler) GetTree(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")
	tree, err := h.svc.GetTree(r.Context(), module)
	if err != nil {
		writeError(w, "get tree", err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// SetOrder handles PUT /api/modules/{module}/order.
func (h *Handler) SetOrder(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")
	var req SetOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var err error
	if req.Parent == "" {
		err = h.svc.SetPageOrder(r.Context(), module, req.Slugs)
	} else {
		err = h.svc.SetSubpageOrder(r.Context(), module, req.Parent, req.Slugs)
	}
	if err != nil {
		writeError(w, "set order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateNode handles POST /api/nodes.
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	node, err := h.svc.CreateNode(r.Context(), req.Module, req.Parent, req.Slug)
	if err != nil {
		writeError(w, "create node", err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// DeleteNode handles DELETE /api/nodes/*.
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	path := nodePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteNode(r.Context(), path); err != nil {
		writeError(w, "delete node", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameNode handles POST /api/nodes/rename.
func (h *Handler) RenameNode(w http.ResponseWriter, r *http.Request) {
	var req RenameNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	node, err := h.svc.RenameNode(r.Context(), req.Path, req.NewSlug)
	if err != nil {
		writeError(w, "rename node", err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// UpdateMetadata handles PATCH /api/nodes/*.
func (h *Handler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	path := nodePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	var patch UpdateMetadataRequest
	if err := json.Unmarshal(body, &patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	meta, err := h.svc.UpdateMetadata(r.Context(), path, patch)
	if err != nil {
		writeError(w, "update metadata", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// Graph handles GET /api/graph. Query: module (empty = whole project),
// mode ("detailed" expands pages into their sub-element taxonomy).
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	module := q.Get("module")
	detailed := q.Get("mode") == "detailed"

	text, err := h.svc.RenderGraph(r.Context(), module, detailed)
	if err != nil {
		writeError(w, "render graph", err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Graph: text})
}

// Analytics handles GET /api/analytics.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Analyze(r.Context())
	if err != nil {
		writeError(w, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// History handles GET /api/analytics/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	snaps, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": snaps})
}

// InvalidateCache handles POST /api/cache/invalidate.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req InvalidateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
			return
		}
	}
	if req.Module == "" {
		h.svc.InvalidateAll()
	} else {
		h.svc.InvalidateModule(req.Module)
	}
	w.WriteHeader(http.StatusNoContent)
}
