package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/heirloom-app/heirloom/internal/crop"
	"github.com/heirloom-app/heirloom/internal/models"
)

func (h *Handler) HandleCrops(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions := h.cropStore.GetAll()
		list := make([]crop.Snapshot, 0, len(sessions))
		for _, s := range sessions {
			list = append(list, s.Snapshot())
		}
		h.writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		h.createCrop(w, r)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) createCrop(w http.ResponseWriter, r *http.Request) {
	var source string
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var req models.CreateCropRequest
		if !h.decodeJSON(w, r, &req) {
			return
		}
		if req.ImageURL == "" {
			h.writeError(w, "image_url is required", http.StatusBadRequest)
			return
		}
		source = req.ImageURL
	} else {
		var ok bool
		if source, ok = h.readUploadedImage(w, r); !ok {
			return
		}
	}

	session := crop.NewSession(uuid.NewString(), h.geometry, h.quality)
	h.cropStore.Set(session.ID(), session)
	h.engine.Open(h.baseCtx, session, source)

	slog.Info("Crop session opened", "session_id", session.ID())
	h.writeJSON(w, http.StatusCreated, models.CropResponse{Session: session.Snapshot()})
}

func (h *Handler) HandleCropDetail(w http.ResponseWriter, r *http.Request) {
	id, action := splitPath(r.URL.Path, "/api/crops/")
	session, ok := h.cropStore.Get(id)
	if !ok {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}

	switch action {
	case "":
		h.cropSession(w, r, session)
	case "zoom":
		h.cropZoom(w, r, session)
	case "pan":
		h.cropPan(w, r, session)
	case "commit":
		h.cropCommit(w, r, session)
	default:
		h.writeError(w, "Unknown action "+action, http.StatusNotFound)
	}
}

func (h *Handler) cropSession(w http.ResponseWriter, r *http.Request, session *crop.Session) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, http.StatusOK, models.CropResponse{Session: session.Snapshot()})
	case http.MethodDelete:
		h.engine.Cancel(session)
		h.cropStore.Delete(session.ID())
		slog.Info("Crop session cancelled", "session_id", session.ID())
		h.writeJSON(w, http.StatusOK, models.CropResponse{Session: session.Snapshot()})
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) cropZoom(w http.ResponseWriter, r *http.Request, session *crop.Session) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.ZoomRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if _, err := session.SetZoom(req.Zoom); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, models.CropResponse{Session: session.Snapshot()})
}

func (h *Handler) cropPan(w http.ResponseWriter, r *http.Request, session *crop.Session) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.PanRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	var err error
	switch req.Phase {
	case "start":
		err = session.BeginPan(req.X, req.Y)
	case "move":
		_, err = session.MovePan(req.X, req.Y)
	case "end":
		session.EndPan()
	case "":
		_, err = session.Pan(req.DX, req.DY)
	default:
		h.writeError(w, "Invalid phase. Must be 'start', 'move' or 'end'", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, models.CropResponse{Session: session.Snapshot()})
}

func (h *Handler) cropCommit(w http.ResponseWriter, r *http.Request, session *crop.Session) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.CommitRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.PersonID != "" {
		if _, err := h.family.Get(req.PersonID); err != nil {
			h.writeFailure(w, err)
			return
		}
	}

	result, err := session.Commit(h.now())
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	url, filename, err := h.saveAvatar(result)
	if err != nil {
		h.writeError(w, "Failed to store avatar: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if req.PersonID != "" {
		if err := h.family.SetAvatar(req.PersonID, url); err != nil {
			h.writeFailure(w, err)
			return
		}
	}
	h.cropStore.Delete(session.ID())

	slog.Info("Avatar stored", "session_id", session.ID(), "url", url, "person_id", req.PersonID, "bytes", len(result.Blob))
	h.writeJSON(w, http.StatusOK, models.CommitResponse{
		URL:            url,
		Filename:       filename,
		MIMEType:       result.MIMEType,
		PreviewDataURL: result.PreviewDataURL,
		Width:          result.Width,
		Height:         result.Height,
		PersonID:       req.PersonID,
	})
}
