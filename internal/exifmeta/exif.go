// Package exifmeta extracts and normalizes EXIF metadata from library images.
//
// Film scans carry whatever tags the digitizing camera or scanner wrote, in
// whatever encoding it chose. Extraction is therefore strictly best-effort:
// a tag that cannot be decoded is kept as its string representation, and a
// file with no usable EXIF yields a nil result rather than an error.
package exifmeta

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"filmarchive/internal/models"
)

// ExifTimeLayout is the timestamp format written by cameras.
const ExifTimeLayout = "2006:01:02 15:04:05"

// ExtractFile reads EXIF metadata from the image at path.
// A file without EXIF, or with EXIF too damaged to decode, returns (nil, nil);
// the error return is reserved for failing to open the file at all.
func ExtractFile(path string) (meta *models.ExifMetadata, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// goexif can panic on pathological vendor blobs; a damaged image must
	// degrade to "no EXIF", not take the batch down.
	defer func() {
		if r := recover(); r != nil {
			meta = nil
			err = nil
		}
	}()

	x, decErr := exif.Decode(f)
	if decErr != nil {
		return nil, nil
	}

	return normalize(x), nil
}

func normalize(x *exif.Exif) *models.ExifMetadata {
	meta := &models.ExifMetadata{
		CameraMake:   stringField(x, exif.Make),
		CameraModel:  stringField(x, exif.Model),
		LensModel:    stringField(x, exif.LensModel),
		FocalLength:  formatFocalLength(ratField(x, exif.FocalLength)),
		Aperture:     formatAperture(ratField(x, exif.FNumber)),
		ShutterSpeed: formatShutterSpeed(ratField(x, exif.ExposureTime)),
		Raw:          rawTags(x),
	}

	if iso, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if v, err := iso.Int(0); err == nil {
			meta.ISO = strconv.Itoa(v)
		}
	}

	// DateTimeOriginal is the capture time; DateTime is often the scan time
	// but is still better than nothing.
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		s, err := tag.StringVal()
		if err != nil {
			continue
		}
		if t, err := ParseExifTime(s); err == nil {
			meta.DateTaken = &t
			break
		}
	}

	return meta
}

// ParseExifTime parses the standard EXIF timestamp format.
func ParseExifTime(s string) (time.Time, error) {
	return time.Parse(ExifTimeLayout, strings.TrimSpace(s))
}

func stringField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return cleanString(s)
}

// ratField returns the first rational value of a tag as a float, or 0 when
// the tag is absent or not rational.
func ratField(x *exif.Exif, name exif.FieldName) float64 {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func formatFocalLength(mm float64) string {
	if mm <= 0 {
		return ""
	}
	return fmt.Sprintf("%dmm", int(mm))
}

func formatAperture(f float64) string {
	if f <= 0 {
		return ""
	}
	return fmt.Sprintf("f/%.1f", f)
}

func formatShutterSpeed(sec float64) string {
	if sec <= 0 {
		return ""
	}
	if sec < 1 {
		return fmt.Sprintf("1/%d", int(1/sec+0.5))
	}
	return fmt.Sprintf("%gs", sec)
}

// rawTags collects every tag as a display string, keyed by field name.
// Values that cannot be decoded are kept in their raw string form.
type rawWalker map[string]string

func (w rawWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	w[string(name)] = normalizeTag(tag)
	return nil
}

func rawTags(x *exif.Exif) map[string]string {
	w := rawWalker{}
	if err := x.Walk(w); err != nil || len(w) == 0 {
		return nil
	}
	return map[string]string(w)
}

// normalizeTag renders one tag value as a plain string suitable for JSON.
func normalizeTag(tag *tiff.Tag) string {
	switch tag.Format() {
	case tiff.StringVal:
		if s, err := tag.StringVal(); err == nil {
			return cleanString(s)
		}
	case tiff.IntVal:
		vals := make([]string, 0, tag.Count)
		for i := 0; i < int(tag.Count); i++ {
			v, err := tag.Int(i)
			if err != nil {
				break
			}
			vals = append(vals, strconv.Itoa(v))
		}
		if len(vals) > 0 {
			return strings.Join(vals, " ")
		}
	case tiff.FloatVal:
		vals := make([]string, 0, tag.Count)
		for i := 0; i < int(tag.Count); i++ {
			v, err := tag.Float(i)
			if err != nil {
				break
			}
			vals = append(vals, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if len(vals) > 0 {
			return strings.Join(vals, " ")
		}
	case tiff.RatVal:
		vals := make([]string, 0, tag.Count)
		for i := 0; i < int(tag.Count); i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				break
			}
			vals = append(vals, fmt.Sprintf("%d/%d", num, den))
		}
		if len(vals) > 0 {
			return strings.Join(vals, " ")
		}
	}
	// Vendor blobs and anything else fall back to the raw representation.
	return cleanString(tag.String())
}

// cleanString strips NUL bytes (byte-string tag padding that breaks JSON
// consumers and Postgres) and surrounding whitespace.
func cleanString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
