package models

import "time"

// FilmType distinguishes the two top-level library subtrees.
type FilmType string

const (
	FilmTypeRoll  FilmType = "rollfilm"
	FilmTypeSheet FilmType = "sheetfilm"
)

// FilmTypes lists the recognized library subtrees in scan order.
var FilmTypes = []FilmType{FilmTypeRoll, FilmTypeSheet}

// ExifMetadata holds normalized capture metadata extracted from the
// high-resolution file, plus the full raw tag map for display.
type ExifMetadata struct {
	CameraMake   string            `json:"camera_make,omitempty"`
	CameraModel  string            `json:"camera_model,omitempty"`
	LensModel    string            `json:"lens_model,omitempty"`
	FocalLength  string            `json:"focal_length,omitempty"`  // e.g. "50mm"
	Aperture     string            `json:"aperture,omitempty"`      // e.g. "f/2.8"
	ShutterSpeed string            `json:"shutter_speed,omitempty"` // e.g. "1/125"
	ISO          string            `json:"iso,omitempty"`
	DateTaken    *time.Time        `json:"date_taken,omitempty"`
	Raw          map[string]string `json:"raw,omitempty"`
}

// ImageRecord is one physical photograph in the catalog.
//
// Two field groups live on this type: derived fields recomputed from the
// source files on every sync (paths, film stock, signature, exif), and
// user-owned fields (Tags, Description) that only the HTTP surface writes.
// NeedsReload is an operator marker set in the catalog to force the next
// sync to refresh a record's derived fields even when its signature is
// unchanged; the refresh clears it.
type ImageRecord struct {
	ImageID       string        `json:"image_id"`
	FilmType      FilmType      `json:"film_type"`
	BatchInfo     string        `json:"batch_info"`
	FilenameBase  string        `json:"filename_base"`
	FilmStock     string        `json:"film_stock,omitempty"`
	ThumbnailPath string        `json:"thumbnail_path"`
	HighresPath   string        `json:"highres_path"`
	Signature     string        `json:"signature,omitempty"`
	Description   string        `json:"description"`
	Tags          []string      `json:"tags"`
	Exif          *ExifMetadata `json:"exif,omitempty"`
	NeedsReload   bool          `json:"needs_reload,omitempty"`
	CreatedAt     time.Time     `json:"created_at,omitzero"`
	UpdatedAt     time.Time     `json:"updated_at,omitzero"`
}

// DerivedFields is the allow-list of fields the synchronizer may rewrite on
// an existing record. Tags and Description deliberately have no place here.
type DerivedFields struct {
	ThumbnailPath string
	HighresPath   string
	FilmStock     string
	Signature     string
	Exif          *ExifMetadata
	UpdatedAt     time.Time
}

// SyncSummary is the per-run outcome of a catalog reconciliation.
type SyncSummary struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Ok reports whether the run completed without per-record failures.
func (s SyncSummary) Ok() bool {
	return s.Errors == 0
}

// ScanReport summarizes one pass of the filesystem scanner.
type ScanReport struct {
	Candidates    int      `json:"candidates"`
	Incomplete    int      `json:"incomplete"`
	ExifExtracted int      `json:"exif_extracted"`
	ExifMissing   int      `json:"exif_missing"`
	Collisions    []string `json:"collisions,omitempty"`
}

// Ok reports whether the scan found no identity collisions.
func (r ScanReport) Ok() bool {
	return len(r.Collisions) == 0
}
