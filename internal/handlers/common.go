package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/heirloom-app/heirloom/internal/crop"
	"github.com/heirloom-app/heirloom/internal/family"
	"github.com/heirloom-app/heirloom/internal/models"
	"github.com/heirloom-app/heirloom/internal/storage"
	"github.com/heirloom-app/heirloom/internal/wizard"
)

// Options configures a Handler
type Options struct {
	Geometry       crop.Geometry
	Quality        int
	UploadsDir     string
	MaxUploadBytes int64
	Loader         crop.ImageLoader
	Family         family.Store
	Prompts        wizard.PromptSource
	// Now defaults to time.Now
	Now func() time.Time
}

type Handler struct {
	cropStore   *storage.Store[*crop.Session]
	wizardStore *storage.Store[*wizard.Session]
	engine      *crop.Engine
	family      family.Store
	prompts     wizard.PromptSource

	geometry       crop.Geometry
	quality        int
	uploadsDir     string
	maxUploadBytes int64
	now            func() time.Time

	// background work (image loads, prompt fetches) outlives the request
	baseCtx context.Context
}

func New(ctx context.Context, opts Options) *Handler {
	if opts.Loader == nil {
		opts.Loader = crop.NewLoader()
	}
	if opts.Family == nil {
		opts.Family = family.New()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.UploadsDir == "" {
		opts.UploadsDir = "uploads"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = crop.DefaultMaxSourceBytes
	}
	if opts.Geometry.ViewportDiameter <= 0 || opts.Geometry.OutputSize <= 0 {
		opts.Geometry = crop.DefaultGeometry()
	}
	return &Handler{
		cropStore:      storage.New[*crop.Session](),
		wizardStore:    storage.New[*wizard.Session](),
		engine:         crop.NewEngine(opts.Loader),
		family:         opts.Family,
		prompts:        opts.Prompts,
		geometry:       opts.Geometry,
		quality:        opts.Quality,
		uploadsDir:     opts.UploadsDir,
		maxUploadBytes: opts.MaxUploadBytes,
		now:            opts.Now,
		baseCtx:        ctx,
	}
}

// Routes registers every endpoint on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/family", h.HandleFamily)
	mux.HandleFunc("/api/family/", h.HandleFamily)
	mux.HandleFunc("/api/crops", h.HandleCrops)
	mux.HandleFunc("/api/crops/", h.HandleCropDetail)
	mux.HandleFunc("/api/wizards", h.HandleWizards)
	mux.HandleFunc("/api/wizards/", h.HandleWizardDetail)
	mux.HandleFunc("/static/", h.HandleStatic)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug(message, "status", code)
	}
	h.writeJSON(w, code, models.ErrorResponse{Error: message})
}

// writeFailure maps domain errors onto HTTP statuses
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	var (
		code    int
		errCode string
		message = err.Error()
	)
	switch {
	case errors.Is(err, crop.ErrNotReady):
		code, errCode = http.StatusConflict, "not_ready"
	case errors.Is(err, crop.ErrCancelled):
		code, errCode = http.StatusConflict, "cancelled"
	case errors.Is(err, crop.ErrRasterizationFailed):
		code, errCode = http.StatusUnprocessableEntity, "rasterization_failed"
		message = "couldn't process image"
		slog.Warn("Rasterization failed", "err", err)
	case errors.Is(err, wizard.ErrInvalidTransition):
		code, errCode = http.StatusConflict, "invalid_transition"
	case errors.Is(err, wizard.ErrPromptFetchFailed):
		code, errCode = http.StatusBadGateway, "prompt_fetch_failed"
	case errors.Is(err, family.ErrNotFound):
		code, errCode = http.StatusNotFound, "person_not_found"
	default:
		code, errCode = http.StatusInternalServerError, "internal"
		slog.Error("Request failed", "err", err)
	}
	h.writeJSON(w, code, models.ErrorResponse{Error: message, Code: errCode})
}

// decodeJSON decodes an optional JSON body; an empty body leaves dst untouched
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// splitPath turns /api/crops/{id}/{action} into id and action
func splitPath(path, prefix string) (string, string) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	id, action, _ := strings.Cut(rest, "/")
	return id, action
}

// File operation helpers
func (h *Handler) ensureUploadsDir() error {
	return os.MkdirAll(h.uploadsDir, 0755)
}
