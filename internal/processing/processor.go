// Package processing renders the 600px and 2560px library derivatives from
// the source batches, preserving EXIF where the source format allows it.
package processing

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"filmarchive/internal/library"
	"filmarchive/internal/models"
)

// Derivative sizes, longest edge. Sources smaller than the box are not
// upscaled.
var sizes = map[string]int{
	library.ThumbnailDir: 600,
	library.HighresDir:   2560,
}

const jpegQuality = 85

// Report summarizes one processing run.
type Report struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

type Processor struct {
	sources map[models.FilmType]string
	libRoot string
	logger  *log.Logger
}

// New creates a processor that reads source batches from the per-film-type
// directories and writes derivatives into the library root. Film types with
// an empty source directory are skipped.
func New(sources map[models.FilmType]string, libraryRoot string, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{sources: sources, libRoot: libraryRoot, logger: logger}
}

// Run processes every source batch. Per-image failures are counted and the
// run continues; the processing index keeps already-current derivatives from
// being redone.
func (p *Processor) Run(ctx context.Context) (Report, error) {
	return p.run(ctx, "")
}

// RunBatch restricts processing to one source batch (matched by raw or
// sanitized name).
func (p *Processor) RunBatch(ctx context.Context, batch string) (Report, error) {
	if batch == "" {
		return Report{}, fmt.Errorf("batch name must not be empty")
	}
	return p.run(ctx, batch)
}

func (p *Processor) run(ctx context.Context, batchFilter string) (Report, error) {
	var report Report

	index, err := loadIndex(p.indexPath())
	if err != nil {
		return report, err
	}

	for _, filmType := range models.FilmTypes {
		sourceDir := p.sources[filmType]
		if sourceDir == "" {
			continue
		}
		entries, err := os.ReadDir(sourceDir)
		if os.IsNotExist(err) {
			p.logger.Printf("[Process] Source directory missing, skipping: %s", sourceDir)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("read %s: %w", sourceDir, err)
		}

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			// Batches arrive as directories or symlinks to them.
			info, err := os.Stat(filepath.Join(sourceDir, entry.Name()))
			if err != nil || !info.IsDir() {
				continue
			}
			if batchFilter != "" && entry.Name() != batchFilter &&
				library.SanitizeName(entry.Name()) != library.SanitizeName(batchFilter) {
				continue
			}
			p.processBatch(filmType, sourceDir, entry.Name(), index, &report)
		}
	}

	if err := index.save(p.indexPath()); err != nil {
		return report, err
	}
	return report, nil
}

func (p *Processor) processBatch(filmType models.FilmType, sourceDir, batch string, index processingIndex, report *Report) {
	batchDir := filepath.Join(sourceDir, batch)
	targetBatch := library.SanitizeName(batch)

	sources := collectSources(batchDir)
	basenames := make([]string, 0, len(sources))
	for base := range sources {
		basenames = append(basenames, base)
	}
	sort.Strings(basenames)

	for _, base := range basenames {
		sourcePath := sources[base]
		cleanBase := library.SanitizeName(base)
		imageDir := filepath.Join(p.libRoot, string(filmType), targetBatch, cleanBase)

		fresh := false
		stale := false
		for resDir := range sizes {
			target := filepath.Join(imageDir, resDir, cleanBase+".jpg")
			if _, err := os.Stat(target); err != nil {
				fresh = true
			} else if needsUpdate(sourcePath, target, index) {
				stale = true
			}
		}
		if !fresh && !stale {
			report.Skipped++
			continue
		}

		if err := p.renderDerivatives(sourcePath, imageDir, cleanBase, index); err != nil {
			p.logger.Printf("[Process] %s: %v", sourcePath, err)
			report.Errors++
			continue
		}
		if fresh {
			p.logger.Printf("[Process] New: %s/%s/%s", filmType, targetBatch, cleanBase)
			report.New++
		} else {
			p.logger.Printf("[Process] Updated: %s/%s/%s", filmType, targetBatch, cleanBase)
			report.Updated++
		}
	}
}

// renderDerivatives decodes the source once and writes both resolutions.
func (p *Processor) renderDerivatives(sourcePath, imageDir, base string, index processingIndex) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	img, err := decodeSource(sourcePath, data)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	// JPEG sources keep their EXIF: the APP1 block is carried over verbatim,
	// including the orientation tag, so pixels are left untransformed.
	exifBlock := exifSegment(data)

	for resDir, edge := range sizes {
		resized := imaging.Fit(img, edge, edge, imaging.Lanczos)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return fmt.Errorf("encode %s: %w", resDir, err)
		}
		out := buf.Bytes()
		if exifBlock != nil {
			out = spliceExif(out, exifBlock)
		}

		target := filepath.Join(imageDir, resDir, base+".jpg")
		if err := writeAtomic(target, out); err != nil {
			return err
		}
		index.set(sourcePath, target, fileSignature(sourcePath))
	}
	return nil
}

// sourceExts are accepted source formats. Multi-frame TIFFs contribute only
// their first frame; the decoder reads nothing past it.
var sourceExts = map[string]bool{
	".jpg": true, ".jpeg": true,
	".tif": true, ".tiff": true,
	".heic": true, ".heif": true,
}

// collectSources maps basenames to source files in a batch directory,
// looking one level deep. When a basename exists in several formats the
// JPEG wins (scans are often delivered as TIFF plus a JPEG proof).
func collectSources(dir string) map[string]string {
	sources := map[string]string{}
	walk(dir, 0, func(path, name string) {
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "part_") {
			return
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !sourceExts[ext] {
			return
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		existing, ok := sources[base]
		if !ok {
			sources[base] = path
			return
		}
		existingExt := strings.ToLower(filepath.Ext(existing))
		if (ext == ".jpg" || ext == ".jpeg") && existingExt != ".jpg" && existingExt != ".jpeg" {
			sources[base] = path
		}
	})
	return sources
}

func walk(dir string, depth int, visit func(path, name string)) {
	if depth > 1 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if !strings.HasPrefix(entry.Name(), ".") {
				walk(path, depth+1, visit)
			}
			continue
		}
		visit(path, entry.Name())
	}
}

func writeAtomic(target string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (p *Processor) indexPath() string {
	return filepath.Join(p.libRoot, ".processing_index")
}
