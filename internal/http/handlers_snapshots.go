package httpx

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/treadscan/treadscan/internal/core"
)

// SnapshotHandlers provides HTTP handlers for snapshot upload and retrieval.
type SnapshotHandlers struct {
	Svc *core.SnapshotService

	// MaxBytes caps the decoded snapshot size. Zero disables the cap.
	MaxBytes int64
}

type snapshotRequest struct {
	ImageBase64 string `json:"image_base64"`
}

// Save handles HTTP requests to store a frontend-rendered snapshot for a job.
// Re-posting for the same job overwrites the prior image and returns the
// same reference.
func (h *SnapshotHandlers) Save(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	if h.MaxBytes > 0 {
		// Base64 inflates by 4/3 plus the JSON envelope; leave headroom so
		// a payload just over the cap still reaches the size check below.
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes*2+1024)
	}

	var req snapshotRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_image", Err: err})
		return
	}
	if h.MaxBytes > 0 && int64(len(image)) > h.MaxBytes {
		WriteError(w, ErrorParams{
			Code:    http.StatusRequestEntityTooLarge,
			ErrCode: "snapshot_too_large",
			Err:     fmt.Errorf("snapshot exceeds %d bytes", h.MaxBytes),
		})
		return
	}

	ref, err := h.Svc.Save(r.Context(), id, image)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"snapshot_ref": ref})
}

// Get handles HTTP requests to fetch the stored snapshot image for a job.
func (h *SnapshotHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	image, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(image); err != nil {
		// Client gone; nothing to do.
		return
	}
}
