package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	apperrors "filmarchive/internal/errors"
	"filmarchive/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	image_id       TEXT PRIMARY KEY,
	film_type      TEXT NOT NULL,
	batch_info     TEXT NOT NULL,
	filename_base  TEXT NOT NULL,
	film_stock     TEXT NOT NULL DEFAULT '',
	thumbnail_path TEXT NOT NULL,
	highres_path   TEXT NOT NULL,
	signature      TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	tags           TEXT[] NOT NULL DEFAULT '{}',
	camera_make    TEXT NOT NULL DEFAULT '',
	camera_model   TEXT NOT NULL DEFAULT '',
	lens_model     TEXT NOT NULL DEFAULT '',
	focal_length   TEXT NOT NULL DEFAULT '',
	aperture       TEXT NOT NULL DEFAULT '',
	shutter_speed  TEXT NOT NULL DEFAULT '',
	iso            TEXT NOT NULL DEFAULT '',
	date_taken     TIMESTAMPTZ,
	exif_raw       JSONB,
	needs_reload   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS images_batch_idx ON images (film_type, batch_info);
`

const recordColumns = `image_id, film_type, batch_info, filename_base, film_stock,
	thumbnail_path, highres_path, signature, description, tags,
	camera_make, camera_model, lens_model, focal_length, aperture,
	shutter_speed, iso, date_taken, exif_raw, needs_reload, created_at, updated_at`

// Postgres is the production catalog store.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens and pings a PostgreSQL catalog at the given connection URL.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// EnsureSchema creates the images table and indexes if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Insert(ctx context.Context, rec *models.ImageRecord) error {
	exifJSON, dateTaken, exifCols := flattenExif(rec.Exif)

	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO images (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		rec.ImageID, string(rec.FilmType), rec.BatchInfo, rec.FilenameBase, rec.FilmStock,
		rec.ThumbnailPath, rec.HighresPath, rec.Signature, rec.Description, pq.Array(tags),
		exifCols[0], exifCols[1], exifCols[2], exifCols[3], exifCols[4],
		exifCols[5], exifCols[6], dateTaken, exifJSON, rec.NeedsReload, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", rec.ImageID, err)
	}
	return nil
}

func (p *Postgres) UpdateDerived(ctx context.Context, imageID string, fields models.DerivedFields) error {
	exifJSON, dateTaken, exifCols := flattenExif(fields.Exif)

	// A derived-field rewrite is exactly the refresh a reload mark asks for,
	// so the flag is cleared in the same statement.
	res, err := p.db.ExecContext(ctx, `
		UPDATE images SET
			thumbnail_path = $2, highres_path = $3, film_stock = $4, signature = $5,
			camera_make = $6, camera_model = $7, lens_model = $8, focal_length = $9,
			aperture = $10, shutter_speed = $11, iso = $12, date_taken = $13,
			exif_raw = $14, updated_at = $15, needs_reload = FALSE
		WHERE image_id = $1`,
		imageID,
		fields.ThumbnailPath, fields.HighresPath, fields.FilmStock, fields.Signature,
		exifCols[0], exifCols[1], exifCols[2], exifCols[3],
		exifCols[4], exifCols[5], exifCols[6], dateTaken,
		exifJSON, fields.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update derived %s: %w", imageID, err)
	}
	return requireRow(res, imageID)
}

func (p *Postgres) UpdateTags(ctx context.Context, imageID string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE images SET tags = $2, updated_at = $3 WHERE image_id = $1`,
		imageID, pq.Array(tags), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update tags %s: %w", imageID, err)
	}
	return requireRow(res, imageID)
}

func (p *Postgres) UpdateDescription(ctx context.Context, imageID, description string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE images SET description = $2, updated_at = $3 WHERE image_id = $1`,
		imageID, description, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update description %s: %w", imageID, err)
	}
	return requireRow(res, imageID)
}

func (p *Postgres) FindByID(ctx context.Context, imageID string) (*models.ImageRecord, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM images WHERE image_id = $1`, imageID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", imageID, err)
	}
	return rec, nil
}

func (p *Postgres) FetchAll(ctx context.Context) ([]*models.ImageRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM images ORDER BY image_id`)
	if err != nil {
		return nil, fmt.Errorf("fetch all: %w", err)
	}
	defer rows.Close()

	var recs []*models.ImageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch all: %w", err)
	}
	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ImageRecord, error) {
	var (
		rec       models.ImageRecord
		filmType  string
		tags      pq.StringArray
		exif      models.ExifMetadata
		dateTaken sql.NullTime
		exifRaw   []byte
	)

	err := row.Scan(
		&rec.ImageID, &filmType, &rec.BatchInfo, &rec.FilenameBase, &rec.FilmStock,
		&rec.ThumbnailPath, &rec.HighresPath, &rec.Signature, &rec.Description, &tags,
		&exif.CameraMake, &exif.CameraModel, &exif.LensModel, &exif.FocalLength,
		&exif.Aperture, &exif.ShutterSpeed, &exif.ISO, &dateTaken, &exifRaw,
		&rec.NeedsReload, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.FilmType = models.FilmType(filmType)
	rec.Tags = []string(tags)
	if dateTaken.Valid {
		t := dateTaken.Time
		exif.DateTaken = &t
	}
	if len(exifRaw) > 0 {
		// Corrupt raw blobs are tolerated; the normalized columns stand alone.
		_ = json.Unmarshal(exifRaw, &exif.Raw)
	}
	if hasExif(&exif) {
		rec.Exif = &exif
	}
	return &rec, nil
}

func hasExif(e *models.ExifMetadata) bool {
	return e.CameraMake != "" || e.CameraModel != "" || e.LensModel != "" ||
		e.FocalLength != "" || e.Aperture != "" || e.ShutterSpeed != "" ||
		e.ISO != "" || e.DateTaken != nil || len(e.Raw) > 0
}

// flattenExif splits an ExifMetadata into the jsonb raw blob, the nullable
// capture time, and the seven normalized text columns (in table order).
func flattenExif(e *models.ExifMetadata) ([]byte, sql.NullTime, [7]string) {
	var (
		raw  []byte
		date sql.NullTime
		cols [7]string
	)
	if e == nil {
		return nil, date, cols
	}
	if len(e.Raw) > 0 {
		raw, _ = json.Marshal(e.Raw)
	}
	if e.DateTaken != nil {
		date = sql.NullTime{Time: *e.DateTaken, Valid: true}
	}
	cols = [7]string{e.CameraMake, e.CameraModel, e.LensModel, e.FocalLength,
		e.Aperture, e.ShutterSpeed, e.ISO}
	return raw, date, cols
}

func requireRow(res sql.Result, imageID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected %s: %w", imageID, err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
