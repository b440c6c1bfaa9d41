// Package syncer reconciles scanned candidate records against the catalog.
//
// Classification per candidate, by image_id:
//
//	new: no catalog record          -> insert with empty tags/description
//	unchanged: signature matches    -> no write
//	changed: signature differs      -> rewrite derived fields only
//
// A record marked needs_reload in the catalog is treated as changed even when
// its signature matches; the derived-field rewrite clears the mark.
//
// Tags and description are user-owned and are never written here, so a
// re-scan can run at any time without losing curation work.
package syncer

import (
	"context"
	"errors"
	"log"
	"time"

	"filmarchive/internal/catalog"
	apperrors "filmarchive/internal/errors"
	"filmarchive/internal/models"
)

type Syncer struct {
	store      catalog.Store
	logger     *log.Logger
	dryRun     bool
	reloadOnly bool
	now        func() time.Time
}

type Option func(*Syncer)

// WithDryRun classifies candidates and reports the summary without writing.
func WithDryRun() Option {
	return func(s *Syncer) { s.dryRun = true }
}

// WithReloadMarked restricts the run to records carrying the needs_reload
// mark; everything else is skipped untouched.
func WithReloadMarked() Option {
	return func(s *Syncer) { s.reloadOnly = true }
}

func New(store catalog.Store, logger *log.Logger, opts ...Option) *Syncer {
	if logger == nil {
		logger = log.Default()
	}
	s := &Syncer{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reconciles the candidate set and returns the per-run summary. A failed
// record is retried once immediately, then counted as errored; the run always
// continues, and changes already applied are kept. Running twice over an
// unchanged source tree performs zero writes the second time.
func (s *Syncer) Run(ctx context.Context, candidates []models.ImageRecord) models.SyncSummary {
	var summary models.SyncSummary

	for i := range candidates {
		cand := &candidates[i]

		existing, err := s.findExisting(ctx, cand.ImageID)
		if err != nil {
			s.logger.Printf("[Sync] Lookup failed for %s: %v", cand.ImageID, err)
			summary.Errors++
			continue
		}

		if s.reloadOnly && (existing == nil || !existing.NeedsReload) {
			summary.Skipped++
			continue
		}

		switch {
		case existing == nil:
			if s.dryRun {
				s.logger.Printf("[Sync] [dry-run] Would insert %s", cand.ImageID)
				summary.Inserted++
				continue
			}
			if err := s.withRetry(func() error { return s.insert(ctx, cand) }); err != nil {
				s.logger.Printf("[Sync] Insert failed for %s: %v", cand.ImageID, err)
				summary.Errors++
				continue
			}
			s.logger.Printf("[Sync] Inserted %s", cand.ImageID)
			summary.Inserted++

		case existing.Signature == cand.Signature && !existing.NeedsReload:
			summary.Skipped++

		default:
			if existing.NeedsReload {
				s.logger.Printf("[Sync] Reload marked for %s", cand.ImageID)
			}
			if s.dryRun {
				s.logger.Printf("[Sync] [dry-run] Would update %s", cand.ImageID)
				summary.Updated++
				continue
			}
			fields := models.DerivedFields{
				ThumbnailPath: cand.ThumbnailPath,
				HighresPath:   cand.HighresPath,
				FilmStock:     cand.FilmStock,
				Signature:     cand.Signature,
				Exif:          cand.Exif,
				UpdatedAt:     s.now(),
			}
			if err := s.withRetry(func() error { return s.store.UpdateDerived(ctx, cand.ImageID, fields) }); err != nil {
				s.logger.Printf("[Sync] Update failed for %s: %v", cand.ImageID, err)
				summary.Errors++
				continue
			}
			s.logger.Printf("[Sync] Updated %s", cand.ImageID)
			summary.Updated++
		}
	}

	return summary
}

func (s *Syncer) findExisting(ctx context.Context, imageID string) (*models.ImageRecord, error) {
	var rec *models.ImageRecord
	err := s.withRetry(func() error {
		found, err := s.store.FindByID(ctx, imageID)
		if errors.Is(err, apperrors.ErrNotFound) {
			rec = nil
			return nil
		}
		rec = found
		return err
	})
	return rec, err
}

func (s *Syncer) insert(ctx context.Context, cand *models.ImageRecord) error {
	now := s.now()
	rec := *cand
	rec.Tags = []string{}
	rec.Description = ""
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return s.store.Insert(ctx, &rec)
}

// withRetry runs op, retrying once immediately on failure. Catalog writes are
// single statements, so a second attempt of the same op is safe.
func (s *Syncer) withRetry(op func() error) error {
	if err := op(); err != nil {
		return op()
	}
	return nil
}
