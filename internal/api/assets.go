package api

import (
	"io"
	"net/http"
)

const maxUploadBytes = 50 << 20 // 50 MB

// ListAssets handles GET /api/assets. Query: path, kind.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ownerPath := q.Get("path")
	kind := q.Get("kind")
	if ownerPath == "" || kind == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("'path' and 'kind' query parameters are required"))
		return
	}

	refs, err := h.svc.ListAssets(r.Context(), ownerPath, kind)
	if err != nil {
		writeError(w, "list assets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": refs})
}

// DeleteAsset handles DELETE /api/assets. Query: path, kind, filename.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ownerPath := q.Get("path")
	kind := q.Get("kind")
	filename := q.Get("filename")
	if ownerPath == "" || kind == "" || filename == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("'path', 'kind' and 'filename' query parameters are required"))
		return
	}

	if err := h.svc.DeleteAsset(r.Context(), ownerPath, kind, filename); err != nil {
		writeError(w, "delete asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadAsset handles POST /api/assets (multipart/form-data).
// Fields: path (module or node path), kind (screenshots|html|css), file.
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	ownerPath := r.FormValue("path")
	kind := r.FormValue("kind")
	if ownerPath == "" || kind == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("'path' and 'kind' fields are required"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	ref, err := h.svc.AddAsset(r.Context(), ownerPath, kind, header.Filename, data)
	if err != nil {
		writeError(w, "upload asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}
