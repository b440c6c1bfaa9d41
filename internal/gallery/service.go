// Package gallery is the read/annotate surface the HTTP layer talks to:
// listing, search, and the two user-owned write paths (tags, description).
package gallery

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"filmarchive/internal/catalog"
	apperrors "filmarchive/internal/errors"
	"filmarchive/internal/models"
	"filmarchive/internal/search"
)

type Service struct {
	store         catalog.Store
	cache         *recordCache
	unknownFields search.UnknownFieldMode
	logger        *log.Logger
}

func New(store catalog.Store, cacheTTL time.Duration, unknownFields search.UnknownFieldMode, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:         store,
		cache:         newRecordCache(cacheTTL),
		unknownFields: unknownFields,
		logger:        logger,
	}
}

// List returns catalog records, optionally restricted to one film type.
func (s *Service) List(ctx context.Context, filmType string) ([]*models.ImageRecord, error) {
	recs, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return filterFilmType(recs, filmType), nil
}

// Search parses the raw query and returns the matching records. The film
// type filter composes with the parsed clauses as one more AND condition.
func (s *Service) Search(ctx context.Context, query, filmType string) ([]*models.ImageRecord, error) {
	clauses, err := search.Parse(query, s.unknownFields)
	if err != nil {
		return nil, err
	}
	recs, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return search.Filter(filterFilmType(recs, filmType), clauses), nil
}

// Get returns one record by image_id.
func (s *Service) Get(ctx context.Context, imageID string) (*models.ImageRecord, error) {
	return s.store.FindByID(ctx, imageID)
}

// ReplaceTags normalizes and replaces the tag set of a record.
func (s *Service) ReplaceTags(ctx context.Context, imageID string, tags []string) error {
	if err := s.store.UpdateTags(ctx, imageID, CleanTags(tags)); err != nil {
		return fmt.Errorf("replace tags: %w", err)
	}
	s.cache.Invalidate()
	return nil
}

// UpdateDescription replaces the description of a record.
func (s *Service) UpdateDescription(ctx context.Context, imageID, description string) error {
	if err := s.store.UpdateDescription(ctx, imageID, strings.TrimSpace(description)); err != nil {
		return fmt.Errorf("update description: %w", err)
	}
	s.cache.Invalidate()
	return nil
}

// InvalidateCache drops the cached snapshot, e.g. after an external sync run.
func (s *Service) InvalidateCache() {
	s.cache.Invalidate()
}

func (s *Service) all(ctx context.Context) ([]*models.ImageRecord, error) {
	if recs := s.cache.Get(); recs != nil {
		return recs, nil
	}
	recs, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	s.logger.Printf("[Gallery] Cached %d records", len(recs))
	s.cache.Set(recs)
	return recs, nil
}

func filterFilmType(recs []*models.ImageRecord, filmType string) []*models.ImageRecord {
	if filmType == "" {
		return recs
	}
	var out []*models.ImageRecord
	for _, rec := range recs {
		if string(rec.FilmType) == filmType {
			out = append(out, rec)
		}
	}
	return out
}

// CleanTags lowercases, trims, and deduplicates a tag list, preserving first
// occurrence order. Tags are discrete search tokens, so case variants of the
// same tag must collapse.
func CleanTags(tags []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// ValidateFilmType checks an optional film_type filter value.
func ValidateFilmType(filmType string) error {
	if filmType == "" {
		return nil
	}
	for _, ft := range models.FilmTypes {
		if string(ft) == filmType {
			return nil
		}
	}
	return fmt.Errorf("%w: film_type %q", apperrors.ErrInvalidInput, filmType)
}
