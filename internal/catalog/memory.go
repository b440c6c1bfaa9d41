package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "filmarchive/internal/errors"
	"filmarchive/internal/models"
)

// Memory is an in-process Store. It backs tests and ad-hoc runs against a
// scan artifact where no database is available.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*models.ImageRecord
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*models.ImageRecord)}
}

func (m *Memory) Insert(ctx context.Context, rec *models.ImageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ImageID]; exists {
		return apperrors.ErrInvalidInput
	}
	m.records[rec.ImageID] = copyRecord(rec)
	return nil
}

func (m *Memory) UpdateDerived(ctx context.Context, imageID string, fields models.DerivedFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[imageID]
	if !ok {
		return apperrors.ErrNotFound
	}
	rec.ThumbnailPath = fields.ThumbnailPath
	rec.HighresPath = fields.HighresPath
	rec.FilmStock = fields.FilmStock
	rec.Signature = fields.Signature
	rec.Exif = copyExif(fields.Exif)
	rec.NeedsReload = false
	rec.UpdatedAt = fields.UpdatedAt
	return nil
}

func (m *Memory) UpdateTags(ctx context.Context, imageID string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[imageID]
	if !ok {
		return apperrors.ErrNotFound
	}
	rec.Tags = append([]string(nil), tags...)
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) UpdateDescription(ctx context.Context, imageID, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[imageID]
	if !ok {
		return apperrors.ErrNotFound
	}
	rec.Description = description
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) FindByID(ctx context.Context, imageID string) (*models.ImageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[imageID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *Memory) FetchAll(ctx context.Context) ([]*models.ImageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := make([]*models.ImageRecord, 0, len(m.records))
	for _, rec := range m.records {
		recs = append(recs, copyRecord(rec))
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ImageID < recs[j].ImageID })
	return recs, nil
}

func (m *Memory) Close() error {
	return nil
}

func copyRecord(rec *models.ImageRecord) *models.ImageRecord {
	out := *rec
	out.Tags = append([]string(nil), rec.Tags...)
	out.Exif = copyExif(rec.Exif)
	return &out
}

func copyExif(e *models.ExifMetadata) *models.ExifMetadata {
	if e == nil {
		return nil
	}
	out := *e
	if e.DateTaken != nil {
		t := *e.DateTaken
		out.DateTaken = &t
	}
	if e.Raw != nil {
		out.Raw = make(map[string]string, len(e.Raw))
		for k, v := range e.Raw {
			out.Raw[k] = v
		}
	}
	return &out
}
