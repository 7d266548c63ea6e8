package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/levelworks/levelnotes/internal/blob"
)

// FileHandler serves stored blobs (preview images) by relative locator.
type FileHandler struct {
	blobs blob.Store
}

// NewFileHandler creates a handler reading from the given blob store.
func NewFileHandler(blobs blob.Store) *FileHandler {
	return &FileHandler{blobs: blobs}
}

// ServeFile handles GET /file/*. The locator is relative to the data
// directory; traversal outside it is rejected by the blob store.
func (h *FileHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if rel == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	if strings.Contains(rel, "..") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	data, err := h.blobs.Read(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	ct := "application/octet-stream"
	if strings.HasSuffix(rel, ".png") {
		ct = "image/png"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
