package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-animator/internal/constants"
	"github.com/kozaktomas/face-animator/internal/imagestore"
)

// ImagesHandler handles still image upload and download.
type ImagesHandler struct {
	store *imagestore.Store
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(store *imagestore.Store) *ImagesHandler {
	return &ImagesHandler{store: store}
}

// Upload stores the multipart "image" field and returns its id.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	img, err := h.store.Save(header.Filename, data)
	if errors.Is(err, imagestore.ErrUnsupportedImage) {
		respondError(w, http.StatusBadRequest, "unsupported image format")
		return
	}
	if err != nil {
		log.Printf("Failed to store image %s: %v", sanitizeForLog(header.Filename), err)
		respondError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	respondJSON(w, http.StatusCreated, img)
}

// Get streams a stored image.
func (h *ImagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := h.store.Open(id)
	if errors.Is(err, imagestore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to open image")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}
