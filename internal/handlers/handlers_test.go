package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"filmarchive/internal/catalog"
	"filmarchive/internal/gallery"
	"filmarchive/internal/handlers"
	"filmarchive/internal/models"
	"filmarchive/internal/router"
	"filmarchive/internal/search"
)

func newTestServer(t *testing.T, recs ...*models.ImageRecord) (http.Handler, *catalog.Memory) {
	t.Helper()
	store := catalog.NewMemory()
	for _, rec := range recs {
		if err := store.Insert(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
	svc := gallery.New(store, time.Minute, search.UnknownFieldReject, log.New(io.Discard, "", 0))
	return router.Setup(handlers.New(svc)), store
}

func record(id string, filmType models.FilmType, tags ...string) *models.ImageRecord {
	return &models.ImageRecord{
		ImageID:   id,
		FilmType:  filmType,
		BatchInfo: "482_2020_Bronica",
		Tags:      tags,
	}
}

func decodeRecords(t *testing.T, body io.Reader) []*models.ImageRecord {
	t.Helper()
	var recs []*models.ImageRecord
	if err := json.NewDecoder(body).Decode(&recs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return recs
}

func TestHealth(t *testing.T) {
	handler, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestListImages(t *testing.T) {
	handler, _ := newTestServer(t,
		record("rollfilm/482_2020_Bronica/frame_01", models.FilmTypeRoll),
		record("sheetfilm/510_2021_Chamonix/plate_02", models.FilmTypeSheet),
	)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/images", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := decodeRecords(t, rr.Body); len(got) != 2 {
		t.Errorf("unfiltered list = %d records, want 2", len(got))
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/images?film_type=sheetfilm", nil))
	got := decodeRecords(t, rr.Body)
	if len(got) != 1 || got[0].FilmType != models.FilmTypeSheet {
		t.Errorf("filtered list = %v", got)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/images?film_type=plates", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown film_type status = %d, want 400", rr.Code)
	}
}

func TestGetImageByID(t *testing.T) {
	handler, _ := newTestServer(t,
		record("rollfilm/482_2020_Bronica/frame_01", models.FilmTypeRoll, "landscape"),
	)

	// Image IDs contain slashes and must route through the subtree handler.
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/images/rollfilm/482_2020_Bronica/frame_01", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got models.ImageRecord
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.ImageID != "rollfilm/482_2020_Bronica/frame_01" {
		t.Errorf("image_id = %q", got.ImageID)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/images/rollfilm/absent/frame_99", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing image status = %d, want 404", rr.Code)
	}
}

func TestUpdateTags(t *testing.T) {
	handler, store := newTestServer(t,
		record("rollfilm/482_2020_Bronica/frame_01", models.FilmTypeRoll),
	)

	body := strings.NewReader(`{"tags": [" Landscape ", "Winter", "landscape"]}`)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/images/rollfilm/482_2020_Bronica/frame_01/tags", body))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rr.Code, rr.Body.String())
	}

	rec, err := store.FindByID(context.Background(), "rollfilm/482_2020_Bronica/frame_01")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"landscape", "winter"}
	if len(rec.Tags) != len(want) || rec.Tags[0] != want[0] || rec.Tags[1] != want[1] {
		t.Errorf("stored tags = %v, want %v", rec.Tags, want)
	}
}

func TestUpdateDescription(t *testing.T) {
	handler, store := newTestServer(t,
		record("rollfilm/482_2020_Bronica/frame_01", models.FilmTypeRoll),
	)

	body := strings.NewReader(`{"description": "  Lac Blanc at dawn  "}`)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/images/rollfilm/482_2020_Bronica/frame_01/description", body))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", rr.Code, rr.Body.String())
	}

	rec, err := store.FindByID(context.Background(), "rollfilm/482_2020_Bronica/frame_01")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Description != "Lac Blanc at dawn" {
		t.Errorf("stored description = %q", rec.Description)
	}

	// GET on a write path is rejected.
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/images/rollfilm/482_2020_Bronica/frame_01/description", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET on description status = %d, want 405", rr.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	handler, _ := newTestServer(t,
		record("rollfilm/482_2020_Bronica/frame_01", models.FilmTypeRoll, "landscape"),
		record("rollfilm/482_2020_Bronica/frame_02", models.FilmTypeRoll, "portrait"),
		record("sheetfilm/510_2021_Chamonix/plate_02", models.FilmTypeSheet, "landscape"),
	)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/search?q=tag%3Alandscape&film_type=rollfilm", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	got := decodeRecords(t, rr.Body)
	if len(got) != 1 || got[0].ImageID != "rollfilm/482_2020_Bronica/frame_01" {
		t.Errorf("search result = %v", got)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/search?q=camera%3Anikon", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rr.Code)
	}

	// Empty query matches everything.
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/search", nil))
	if got := decodeRecords(t, rr.Body); len(got) != 3 {
		t.Errorf("empty query matched %d records, want 3", len(got))
	}
}
