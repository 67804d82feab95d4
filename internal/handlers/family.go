package handlers

import (
	"net/http"
)

func (h *Handler) HandleFamily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, _ := splitPath(r.URL.Path, "/api/family")
	if id == "" {
		members, err := h.family.List()
		if err != nil {
			h.writeFailure(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, members)
		return
	}
	member, err := h.family.Get(id)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, member)
}
