// Package library defines the on-disk layout of the picture library and the
// naming rules shared by the processing and scanning stages.
//
// The layout is two levels below the film-type root:
//
//	<root>/rollfilm/<batch>/<image_folder>/600/<image_folder>.jpg
//	<root>/rollfilm/<batch>/<image_folder>/2560/<image_folder>.jpg
package library

import (
	"regexp"
	"strings"

	"filmarchive/internal/models"
)

// Resolution directory names. Both must be present for an image to be valid.
const (
	ThumbnailDir = "600"
	HighresDir   = "2560"
)

// IDSeparator joins the three path segments of an image identity.
const IDSeparator = "/"

var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeName maps a source directory or file name to its library-safe form.
// Whitespace runs collapse to a single underscore and hash symbols become "n"
// (both break URLs and shell quoting). The mapping is deterministic: the same
// input always yields the same output, so identities survive re-scans.
func SanitizeName(name string) string {
	name = whitespaceRun.ReplaceAllString(strings.TrimSpace(name), "_")
	return strings.ReplaceAll(name, "#", "n")
}

// MakeImageID builds the stable identity for an image from its sanitized path
// segments. The identity is independent of resolution and of the library root.
func MakeImageID(filmType models.FilmType, batch, folder string) string {
	return string(filmType) + IDSeparator + SanitizeName(batch) + IDSeparator + SanitizeName(folder)
}

// Trailing letters+digits token, e.g. "0042_Panchro400" -> "Panchro400".
var stockSuffix = regexp.MustCompile(`_?([A-Za-z]+[0-9]+)$`)

// ExtractFilmStock guesses the film stock from the batch and image folder
// names. Batches named "<...>_med_<stock>" are explicit; otherwise a trailing
// letters+digits token on the folder name is taken. No confident match yields
// the empty string, never a placeholder.
func ExtractFilmStock(batch, folder string) string {
	if _, stock, ok := strings.Cut(batch, "_med_"); ok && stock != "" {
		return stock
	}
	if m := stockSuffix.FindStringSubmatch(folder); m != nil {
		return m[1]
	}
	return ""
}
