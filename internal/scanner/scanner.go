// Package scanner walks the picture library and produces candidate
// ImageRecords for the synchronizer.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"filmarchive/internal/exifmeta"
	"filmarchive/internal/library"
	"filmarchive/internal/models"
)

type Scanner struct {
	root    string
	workers int
	logger  *log.Logger
}

// New creates a scanner over the library root (the directory containing the
// rollfilm/ and sheetfilm/ subtrees). workers bounds parallel EXIF extraction.
func New(root string, workers int, logger *log.Logger) *Scanner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{root: root, workers: workers, logger: logger}
}

// ScanLibrary walks the whole library and returns candidate records sorted by
// image_id, together with a report of incomplete folders, collisions, and
// EXIF extraction counts. Candidates carry no tags or description; those
// belong to the catalog.
func (s *Scanner) ScanLibrary(ctx context.Context) ([]models.ImageRecord, *models.ScanReport, error) {
	return s.scan(ctx, "")
}

// ScanBatch restricts the walk to one batch directory (matched by its
// sanitized name) across both film types. Record semantics are identical to a
// full scan restricted to that subtree.
func (s *Scanner) ScanBatch(ctx context.Context, batch string) ([]models.ImageRecord, *models.ScanReport, error) {
	if batch == "" {
		return nil, nil, fmt.Errorf("batch name must not be empty")
	}
	return s.scan(ctx, library.SanitizeName(batch))
}

func (s *Scanner) scan(ctx context.Context, batchFilter string) ([]models.ImageRecord, *models.ScanReport, error) {
	report := &models.ScanReport{}

	var candidates []models.ImageRecord
	seen := map[string]string{} // image_id -> source folder
	collided := map[string]bool{}

	for _, filmType := range models.FilmTypes {
		filmDir := filepath.Join(s.root, string(filmType))
		batches, err := os.ReadDir(filmDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", filmDir, err)
		}

		for _, batch := range batches {
			if !batch.IsDir() || strings.HasPrefix(batch.Name(), ".") {
				continue
			}
			// Library batch directories normally carry sanitized names, but
			// directories that predate the sanitization rules may not. The
			// filter compares sanitized forms so both spellings are reachable.
			if batchFilter != "" && library.SanitizeName(batch.Name()) != batchFilter {
				continue
			}

			batchDir := filepath.Join(filmDir, batch.Name())
			folders, err := os.ReadDir(batchDir)
			if err != nil {
				return nil, nil, fmt.Errorf("read %s: %w", batchDir, err)
			}

			for _, folder := range folders {
				if !folder.IsDir() || strings.HasPrefix(folder.Name(), ".") {
					continue
				}

				cand, ok := s.candidate(filmType, batch.Name(), folder.Name())
				if !ok {
					report.Incomplete++
					continue
				}

				// Two distinct source folders must never share an identity.
				// Neither side is trusted; both are dropped for manual renaming.
				sourceFolder := filepath.Join(batchDir, folder.Name())
				if prev, dup := seen[cand.ImageID]; dup {
					s.logger.Printf("[Scanner] Identity collision on %s: %s vs %s", cand.ImageID, prev, sourceFolder)
					if !collided[cand.ImageID] {
						report.Collisions = append(report.Collisions, cand.ImageID)
						collided[cand.ImageID] = true
					}
					continue
				}
				seen[cand.ImageID] = sourceFolder
				candidates = append(candidates, cand)
			}
		}
	}

	// Drop the first occurrence of every collided identity as well.
	if len(collided) > 0 {
		kept := candidates[:0]
		for _, cand := range candidates {
			if !collided[cand.ImageID] {
				kept = append(kept, cand)
			}
		}
		candidates = kept
	}

	if err := s.extractExif(ctx, candidates); err != nil {
		return nil, nil, err
	}

	for i := range candidates {
		if candidates[i].Exif != nil {
			report.ExifExtracted++
		} else {
			report.ExifMissing++
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ImageID < candidates[j].ImageID
	})
	report.Candidates = len(candidates)
	return candidates, report, nil
}

// candidate builds a record draft for one image folder, or reports it
// incomplete when either resolution is missing.
func (s *Scanner) candidate(filmType models.FilmType, batch, folder string) (models.ImageRecord, bool) {
	base := filepath.Join(s.root, string(filmType), batch, folder)
	thumb := filepath.Join(base, library.ThumbnailDir, folder+".jpg")
	highres := filepath.Join(base, library.HighresDir, folder+".jpg")

	thumbInfo, err := os.Stat(thumb)
	if err != nil {
		s.logger.Printf("[Scanner] Incomplete folder (no %spx): %s", library.ThumbnailDir, base)
		return models.ImageRecord{}, false
	}
	highresInfo, err := os.Stat(highres)
	if err != nil {
		s.logger.Printf("[Scanner] Incomplete folder (no %spx): %s", library.HighresDir, base)
		return models.ImageRecord{}, false
	}

	return models.ImageRecord{
		ImageID:       library.MakeImageID(filmType, batch, folder),
		FilmType:      filmType,
		BatchInfo:     library.SanitizeName(batch),
		FilenameBase:  library.SanitizeName(folder),
		FilmStock:     library.ExtractFilmStock(batch, folder),
		ThumbnailPath: thumb,
		HighresPath:   highres,
		Signature:     Signature(thumbInfo, highresInfo),
	}, true
}

// extractExif fills candidate EXIF in parallel. Folders are independent, so
// each goroutine writes only its own slice element.
func (s *Scanner) extractExif(ctx context.Context, candidates []models.ImageRecord) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			meta, err := exifmeta.ExtractFile(candidates[i].HighresPath)
			if err != nil {
				// The file existed at stat time; treat a read failure the
				// same as absent EXIF and keep going.
				s.logger.Printf("[Scanner] EXIF read failed for %s: %v", candidates[i].ImageID, err)
				return nil
			}
			candidates[i].Exif = meta
			return nil
		})
	}
	return g.Wait()
}

// Signature is the change-detection summary for an image pair: modification
// time and size of both resolutions. Cheap to compute, stable across runs
// that do not touch the files.
func Signature(thumb, highres fs.FileInfo) string {
	return fmt.Sprintf("%d:%d|%d:%d",
		thumb.ModTime().Unix(), thumb.Size(),
		highres.ModTime().Unix(), highres.Size())
}
