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

// HandleSearch runs a catalog query and serves the matching records.
// The q parameter carries the query string; an empty query matches everything.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	query := params.Get("q")
	filmType := strings.TrimSpace(params.Get("film_type"))
	if err := gallery.ValidateFilmType(filmType); err != nil {
		http.Error(w, "Invalid film_type parameter", http.StatusBadRequest)
		return
	}

	images, err := h.gallery.Search(r.Context(), query, filmType)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidQuery) {
			http.Error(w, "Invalid query: "+err.Error(), http.StatusBadRequest)
		} else {
			log.Printf("[Search] Query %q failed: %v", query, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	log.Printf("[Search] Query %q matched %d images in %v", query, len(images), time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(images); err != nil {
		log.Printf("[Search] Failed to encode response: %v", err)
	}
}
