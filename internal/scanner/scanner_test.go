package scanner

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"filmarchive/internal/models"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// writeImagePair creates a complete image folder under root. The files are
// not real JPEGs; the scanner only stats them and EXIF degrades to nil.
func writeImagePair(t *testing.T, root string, filmType models.FilmType, batch, folder string) {
	t.Helper()
	for _, res := range []string{"600", "2560"} {
		dir := filepath.Join(root, string(filmType), batch, folder, res)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, folder+".jpg"), []byte("jpeg bytes"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanLibrary(t *testing.T) {
	root := t.TempDir()
	writeImagePair(t, root, models.FilmTypeRoll, "482_2020_Bronica_med_Ilford", "ilford125_08")
	writeImagePair(t, root, models.FilmTypeSheet, "5x7_0041-0045", "0042_Panchro400")

	// Incomplete folder: thumbnail only.
	dir := filepath.Join(root, "rollfilm", "482_2020_Bronica_med_Ilford", "ilford125_09", "600")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ilford125_09.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	candidates, report, err := New(root, 2, quietLogger()).ScanLibrary(context.Background())
	if err != nil {
		t.Fatalf("ScanLibrary: %v", err)
	}

	if report.Candidates != 2 {
		t.Errorf("candidates = %d, want 2", report.Candidates)
	}
	if report.Incomplete != 1 {
		t.Errorf("incomplete = %d, want 1", report.Incomplete)
	}
	if !report.Ok() {
		t.Errorf("unexpected collisions: %v", report.Collisions)
	}

	if candidates[0].ImageID != "rollfilm/482_2020_Bronica_med_Ilford/ilford125_08" {
		t.Errorf("unexpected first id %q", candidates[0].ImageID)
	}
	if candidates[0].FilmStock != "Ilford" {
		t.Errorf("film stock = %q, want Ilford", candidates[0].FilmStock)
	}
	if candidates[1].FilmStock != "Panchro400" {
		t.Errorf("film stock = %q, want Panchro400", candidates[1].FilmStock)
	}
	for _, c := range candidates {
		if c.Signature == "" {
			t.Errorf("%s has empty signature", c.ImageID)
		}
		if c.Tags != nil || c.Description != "" {
			t.Errorf("%s carries user-owned fields from a scan", c.ImageID)
		}
	}
	if report.ExifMissing != 2 || report.ExifExtracted != 0 {
		t.Errorf("exif counts = %d/%d, want 0 extracted, 2 missing",
			report.ExifExtracted, report.ExifMissing)
	}
}

func TestScanIdentityDeterminism(t *testing.T) {
	root := t.TempDir()
	writeImagePair(t, root, models.FilmTypeRoll, "batch_a", "frame_01")

	s := New(root, 1, quietLogger())
	first, _, err := s.ScanLibrary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := New(root, 1, quietLogger()).ScanLibrary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first[0].ImageID != second[0].ImageID {
		t.Errorf("image_id changed between scans: %q vs %q", first[0].ImageID, second[0].ImageID)
	}
}

func TestScanCollision(t *testing.T) {
	root := t.TempDir()
	// "frame 01" and "frame_01" sanitize to the same identity.
	writeImagePair(t, root, models.FilmTypeRoll, "batch_a", "frame 01")
	writeImagePair(t, root, models.FilmTypeRoll, "batch_a", "frame_01")

	candidates, report, err := New(root, 1, quietLogger()).ScanLibrary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Ok() {
		t.Fatal("expected a collision report")
	}
	if len(report.Collisions) != 1 || report.Collisions[0] != "rollfilm/batch_a/frame_01" {
		t.Errorf("collisions = %v", report.Collisions)
	}
	// Neither side of the pair may survive as a candidate.
	for _, c := range candidates {
		if c.ImageID == "rollfilm/batch_a/frame_01" {
			t.Errorf("collided identity was not dropped")
		}
	}
}

func TestScanBatchScoped(t *testing.T) {
	root := t.TempDir()
	writeImagePair(t, root, models.FilmTypeRoll, "batch_a", "frame_01")
	writeImagePair(t, root, models.FilmTypeRoll, "batch_a", "frame_02")
	writeImagePair(t, root, models.FilmTypeRoll, "batch_b", "frame_01")

	candidates, report, err := New(root, 1, quietLogger()).ScanBatch(context.Background(), "batch_a")
	if err != nil {
		t.Fatal(err)
	}
	if report.Candidates != 2 {
		t.Fatalf("scoped candidates = %d, want 2", report.Candidates)
	}
	for _, c := range candidates {
		if c.BatchInfo != "batch_a" {
			t.Errorf("scoped scan leaked %s", c.ImageID)
		}
	}
}

func TestScanBatchUnsanitizedDirName(t *testing.T) {
	root := t.TempDir()
	// A batch directory that kept its spaces. A full scan ingests it, so a
	// scoped scan must reach it too, under either spelling of the name.
	writeImagePair(t, root, models.FilmTypeRoll, "summer trip", "frame_01")

	full, _, err := New(root, 1, quietLogger()).ScanLibrary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(full) != 1 {
		t.Fatalf("full scan candidates = %d, want 1", len(full))
	}

	for _, filter := range []string{"summer trip", "summer_trip"} {
		scoped, report, err := New(root, 1, quietLogger()).ScanBatch(context.Background(), filter)
		if err != nil {
			t.Fatal(err)
		}
		if report.Candidates != 1 {
			t.Errorf("ScanBatch(%q) candidates = %d, want 1", filter, report.Candidates)
			continue
		}
		if scoped[0].ImageID != full[0].ImageID {
			t.Errorf("ScanBatch(%q) id = %q, full scan id = %q", filter, scoped[0].ImageID, full[0].ImageID)
		}
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeImagePair(t, root, models.FilmTypeSheet, "5x7_0001-0005", "0003_HP5400")

	candidates, _, err := New(root, 1, quietLogger()).ScanLibrary(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "image_data.json")
	if err := WriteArtifact(path, candidates); err != nil {
		t.Fatal(err)
	}
	loaded, err := ReadArtifact(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != len(candidates) {
		t.Fatalf("loaded %d candidates, want %d", len(loaded), len(candidates))
	}
	if loaded[0].ImageID != candidates[0].ImageID || loaded[0].Signature != candidates[0].Signature {
		t.Errorf("artifact round trip mutated the record: %+v vs %+v", loaded[0], candidates[0])
	}
}
