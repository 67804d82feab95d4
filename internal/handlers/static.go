package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
)

// HandleStatic serves stored avatars from the uploads directory
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/static/uploads/")
	if name == r.URL.Path || name == "" {
		http.NotFound(w, r)
		return
	}

	// Prevent directory traversal attacks
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	if strings.HasSuffix(name, ".jpg") {
		w.Header().Set("Content-Type", "image/jpeg")
	}
	http.ServeFile(w, r, filepath.Join(h.uploadsDir, name))
}
