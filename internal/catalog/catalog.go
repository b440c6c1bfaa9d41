// Package catalog persists ImageRecords and exposes the field-grouped write
// operations the rest of the system relies on: the synchronizer may only
// touch derived fields, the gallery surface may only touch user-owned ones.
package catalog

import (
	"context"

	"filmarchive/internal/models"
)

// Store is the catalog interface consumed by the synchronizer and the gallery.
//
// Every write is a single statement, so per-image_id atomicity holds without
// the caller taking a whole-catalog lock.
type Store interface {
	// Insert adds a brand-new record. Tags and description start empty.
	Insert(ctx context.Context, rec *models.ImageRecord) error

	// UpdateDerived rewrites only the scanner-derived fields of an existing
	// record, identified by image_id. User-owned fields are untouched.
	// A pending reload mark is cleared: the rewrite is the refresh it asked
	// for.
	UpdateDerived(ctx context.Context, imageID string, fields models.DerivedFields) error

	// UpdateTags replaces the tag set of a record. User-initiated only.
	UpdateTags(ctx context.Context, imageID string, tags []string) error

	// UpdateDescription replaces the description of a record. User-initiated only.
	UpdateDescription(ctx context.Context, imageID, description string) error

	// FindByID returns the record with the given image_id, or errors.ErrNotFound.
	FindByID(ctx context.Context, imageID string) (*models.ImageRecord, error)

	// FetchAll returns every record in the catalog.
	FetchAll(ctx context.Context) ([]*models.ImageRecord, error)

	Close() error
}
