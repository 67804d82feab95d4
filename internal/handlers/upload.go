package handlers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/heirloom-app/heirloom/internal/crop"
)

// readUploadedImage reads a multipart "file" (or "files") field and returns
// it as a data URI the crop engine can load
func (h *Handler) readUploadedImage(w http.ResponseWriter, r *http.Request) (string, bool) {
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return "", false
		}
	}
	defer file.Close()

	fileData, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return "", false
	}
	if int64(len(fileData)) > h.maxUploadBytes {
		h.writeError(w, fmt.Sprintf("File too large (max %d bytes)", h.maxUploadBytes), http.StatusBadRequest)
		return "", false
	}

	slog.Info("Source image uploaded", "filename", header.Filename, "bytes", len(fileData))
	return crop.DataURI(header.Header.Get("Content-Type"), fileData), true
}

// maxAvatarSuffix bounds the search for a free name when several crops are
// committed within the same millisecond
const maxAvatarSuffix = 100

// saveAvatar writes a crop result into the uploads directory and returns
// the URL it is served from and the name it was stored under. An existing
// file is never overwritten; a numeric suffix is added instead.
func (h *Handler) saveAvatar(result *crop.Result) (string, string, error) {
	if err := h.ensureUploadsDir(); err != nil {
		return "", "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	ext := filepath.Ext(result.Filename)
	base := strings.TrimSuffix(result.Filename, ext)
	name := result.Filename
	for n := 1; ; n++ {
		f, err := os.OpenFile(filepath.Join(h.uploadsDir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			if n > maxAvatarSuffix {
				return "", "", fmt.Errorf("failed to save avatar: no free name for %s", result.Filename)
			}
			name = fmt.Sprintf("%s-%d%s", base, n, ext)
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to save avatar: %w", err)
		}
		_, err = f.Write(result.Blob)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(f.Name())
			return "", "", fmt.Errorf("failed to save avatar: %w", err)
		}
		break
	}
	return "/static/uploads/" + name, name, nil
}
