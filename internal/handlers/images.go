package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	apperrors "filmarchive/internal/errors"
	"filmarchive/internal/gallery"
)

// HandleImages serves the full image listing, optionally filtered by film type.
func (h *Handler) HandleImages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// Only allow GET requests
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filmType := strings.TrimSpace(r.URL.Query().Get("film_type"))
	if err := gallery.ValidateFilmType(filmType); err != nil {
		http.Error(w, "Invalid film_type parameter", http.StatusBadRequest)
		return
	}

	images, err := h.gallery.List(r.Context(), filmType)
	if err != nil {
		log.Printf("[Images] Failed to list images: %v", err)
		http.Error(w, "Failed to retrieve images", http.StatusInternalServerError)
		return
	}

	log.Printf("[Images] Served %d images (film_type=%q) in %v", len(images), filmType, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(images); err != nil {
		log.Printf("[Images] Failed to encode response: %v", err)
	}
}

// HandleImageByID dispatches requests under /api/images/. Image IDs contain
// slashes (film_type/batch/filename), so the path cannot be matched with a
// fixed pattern. The trailing component decides the operation:
//
//	GET  /api/images/{id}                fetch a single record
//	PUT  /api/images/{id}/tags           replace user tags
//	PUT  /api/images/{id}/description    replace the description
func (h *Handler) HandleImageByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/images/"), "/")
	if rest == "" {
		http.Error(w, "Missing image ID", http.StatusBadRequest)
		return
	}

	switch {
	case strings.HasSuffix(rest, "/tags"):
		h.handleUpdateTags(w, r, strings.TrimSuffix(rest, "/tags"))
	case strings.HasSuffix(rest, "/description"):
		h.handleUpdateDescription(w, r, strings.TrimSuffix(rest, "/description"))
	default:
		h.handleGetImage(w, r, rest)
	}
}

func (h *Handler) handleGetImage(w http.ResponseWriter, r *http.Request, imageID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	image, err := h.gallery.Get(r.Context(), imageID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			http.Error(w, "Image not found", http.StatusNotFound)
		} else {
			log.Printf("[Images] Failed to get image %s: %v", imageID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(image); err != nil {
		log.Printf("[Images] Failed to encode response: %v", err)
	}
}

func (h *Handler) handleUpdateTags(w http.ResponseWriter, r *http.Request, imageID string) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.gallery.ReplaceTags(r.Context(), imageID, body.Tags); err != nil {
		h.writeUpdateError(w, "tags", imageID, err)
		return
	}

	log.Printf("[Images] Updated tags for %s (%d tags)", imageID, len(body.Tags))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateDescription(w http.ResponseWriter, r *http.Request, imageID string) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.gallery.UpdateDescription(r.Context(), imageID, body.Description); err != nil {
		h.writeUpdateError(w, "description", imageID, err)
		return
	}

	log.Printf("[Images] Updated description for %s", imageID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeUpdateError(w http.ResponseWriter, field, imageID string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		http.Error(w, "Image not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrInvalidInput):
		http.Error(w, "Invalid "+field, http.StatusBadRequest)
	default:
		log.Printf("[Images] Failed to update %s for %s: %v", field, imageID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
