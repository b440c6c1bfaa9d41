package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	"github.com/adrium/goheif"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"
)

// decodeSource decodes one source image by extension. TIFF and HEIC sources
// lose their metadata container in the conversion, so their EXIF orientation
// is baked into the pixels here; JPEG sources keep the tag instead (the APP1
// block is spliced into the output).
func decodeSource(path string, data []byte) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return jpeg.Decode(bytes.NewReader(data))
	case ".tif", ".tiff":
		img, err := tiff.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return applyOrientation(img, data), nil
	case ".heic", ".heif":
		img, err := goheif.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return applyOrientation(img, data), nil
	}
	return nil, fmt.Errorf("unsupported source format %q", filepath.Ext(path))
}

// applyOrientation reads the EXIF orientation tag and transforms the pixels
// accordingly. Missing or unreadable orientation leaves the image as is.
func applyOrientation(img image.Image, data []byte) image.Image {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return img
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return img
	}
	orient, err := tag.Int(0)
	if err != nil {
		return img
	}

	// EXIF orientation values: 1=normal, 2=flip-h, 3=180, 4=flip-v,
	// 5=transpose, 6=270, 7=transverse, 8=90
	switch orient {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}
