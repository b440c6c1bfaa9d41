package search

import (
	"errors"
	"testing"
	"time"

	apperrors "filmarchive/internal/errors"
	"filmarchive/internal/models"
)

func record(id string, tags []string, date string, exifText ...string) *models.ImageRecord {
	rec := &models.ImageRecord{
		ImageID:   id,
		FilmType:  models.FilmTypeRoll,
		BatchInfo: "482_2020_Bronica",
		Tags:      tags,
	}
	if date != "" || len(exifText) > 0 {
		rec.Exif = &models.ExifMetadata{}
		if date != "" {
			t, err := time.Parse("2006-01-02", date)
			if err != nil {
				panic(err)
			}
			rec.Exif.DateTaken = &t
		}
		if len(exifText) > 0 {
			rec.Exif.CameraMake = exifText[0]
		}
		if len(exifText) > 1 {
			rec.Exif.CameraModel = exifText[1]
		}
	}
	return rec
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    []Clause
		wantErr bool
	}{
		{
			name:  "empty query",
			query: "",
			want:  nil,
		},
		{
			name:  "bare words",
			query: "nikon street",
			want:  []Clause{{Value: "nikon"}, {Value: "street"}},
		},
		{
			name:  "field scoped",
			query: "tag:landscape date:2024",
			want:  []Clause{{Field: "tag", Value: "landscape"}, {Field: "date", Value: "2024"}},
		},
		{
			name:  "quoted multi-word field value",
			query: `tag:"street photography"`,
			want:  []Clause{{Field: "tag", Value: "street photography"}},
		},
		{
			name:  "bare quoted phrase",
			query: `"golden hour"`,
			want:  []Clause{{Value: "golden hour"}},
		},
		{
			name:  "unterminated quote swallows the rest",
			query: `tag:"street photo`,
			want:  []Clause{{Field: "tag", Value: "street photo"}},
		},
		{
			name:  "mixed quoting and words",
			query: `nikon tag:"large format" date:2023-08`,
			want: []Clause{
				{Value: "nikon"},
				{Field: "tag", Value: "large format"},
				{Field: "date", Value: "2023-08"},
			},
		},
		{
			name:    "unrecognized field rejected",
			query:   "camera:foo",
			wantErr: true,
		},
		{
			name:  "whitespace only",
			query: "   \t ",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.query, UnknownFieldReject)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %v", tt.query, got)
				}
				if !errors.Is(err, apperrors.ErrInvalidQuery) {
					t.Errorf("Parse(%q) error = %v, want ErrInvalidQuery", tt.query, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.query, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Parse(%q) = %v, want %v", tt.query, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Parse(%q)[%d] = %v, want %v", tt.query, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseUnknownFieldModes(t *testing.T) {
	const query = "camera:nikon"

	if _, err := Parse(query, UnknownFieldReject); err == nil {
		t.Error("reject mode accepted an unknown field")
	}

	got, err := Parse(query, UnknownFieldIgnore)
	if err != nil || len(got) != 0 {
		t.Errorf("ignore mode = %v, %v; want empty, nil", got, err)
	}

	got, err = Parse(query, UnknownFieldLiteral)
	if err != nil || len(got) != 1 || got[0] != (Clause{Value: "camera:nikon"}) {
		t.Errorf("literal mode = %v, %v; want one literal clause", got, err)
	}
}

func TestQueryConjunction(t *testing.T) {
	r1 := record("r1", []string{"landscape"}, "2024-06-01")
	r2 := record("r2", []string{"portrait"}, "2024-06-01")
	recs := []*models.ImageRecord{r1, r2}

	clauses, err := Parse("tag:landscape date:2024", UnknownFieldReject)
	if err != nil {
		t.Fatal(err)
	}
	got := Filter(recs, clauses)
	if len(got) != 1 || got[0].ImageID != "r1" {
		t.Errorf("tag:landscape date:2024 matched %v, want [r1]", ids(got))
	}

	clauses, err = Parse("tag:landscape date:2025", UnknownFieldReject)
	if err != nil {
		t.Fatal(err)
	}
	if got := Filter(recs, clauses); len(got) != 0 {
		t.Errorf("tag:landscape date:2025 matched %v, want none", ids(got))
	}
}

func TestQuotedTagExactMatch(t *testing.T) {
	withTag := record("a", []string{"street photography"}, "")
	withWords := record("b", []string{"street", "photography"}, "")

	clauses, err := Parse(`tag:"street photography"`, UnknownFieldReject)
	if err != nil {
		t.Fatal(err)
	}
	got := Filter([]*models.ImageRecord{withTag, withWords}, clauses)
	if len(got) != 1 || got[0].ImageID != "a" {
		t.Errorf("quoted tag matched %v, want [a]", ids(got))
	}
}

func TestTagMatchCaseInsensitive(t *testing.T) {
	rec := record("a", []string{"Landscape"}, "")
	clauses, _ := Parse("tag:landscape", UnknownFieldReject)
	if !Matches(rec, clauses) {
		t.Error("tag match should be case-insensitive")
	}
	// Substring of a tag is not a tag match.
	clauses, _ = Parse("tag:land", UnknownFieldReject)
	if Matches(rec, clauses) {
		t.Error("tag:land must not match tag Landscape")
	}
}

func TestDatePrefix(t *testing.T) {
	rec := record("a", nil, "2024-12-25")
	noDate := record("b", nil, "")

	tests := []struct {
		query string
		want  bool
	}{
		{"date:2024", true},
		{"date:2024-12", true},
		{"date:2024-12-25", true},
		{"date:2024-11", false},
		{"date:2025", false},
	}
	for _, tt := range tests {
		clauses, err := Parse(tt.query, UnknownFieldReject)
		if err != nil {
			t.Fatal(err)
		}
		if got := Matches(rec, clauses); got != tt.want {
			t.Errorf("%s on dated record = %v, want %v", tt.query, got, tt.want)
		}
		if Matches(noDate, clauses) {
			t.Errorf("%s matched a record with no capture date", tt.query)
		}
	}
}

func TestDatePrefixNormalizesZone(t *testing.T) {
	// A capture at 00:15 UTC on June 1st, as handed back by a database
	// session running two hours behind UTC. The local rendering would be
	// May 31st; the match must see June.
	taken := time.Date(2024, 6, 1, 0, 15, 0, 0, time.UTC).In(time.FixedZone("UTC-2", -2*60*60))
	rec := record("a", nil, "")
	rec.Exif = &models.ExifMetadata{DateTaken: &taken}

	clauses, err := Parse("date:2024-06", UnknownFieldReject)
	if err != nil {
		t.Fatal(err)
	}
	if !Matches(rec, clauses) {
		t.Errorf("date:2024-06 missed a June capture carried in a non-UTC zone")
	}
	clauses, _ = Parse("date:2024-05", UnknownFieldReject)
	if Matches(rec, clauses) {
		t.Errorf("date:2024-05 matched via the zone-local rendering")
	}
}

func TestBareTermSubstring(t *testing.T) {
	nikonCamera := record("a", nil, "", "NIKON CORPORATION", "NIKON F3")
	nikonTag := record("b", []string{"shot-on-nikon"}, "")
	other := record("c", []string{"leica"}, "", "Leica", "M6")
	other.Description = "canal at dusk"

	clauses, err := Parse("nikon", UnknownFieldReject)
	if err != nil {
		t.Fatal(err)
	}
	got := Filter([]*models.ImageRecord{nikonCamera, nikonTag, other}, clauses)
	if len(got) != 2 || got[0].ImageID != "a" || got[1].ImageID != "b" {
		t.Errorf("bare nikon matched %v, want [a b]", ids(got))
	}

	// Batch info is searchable too.
	clauses, _ = Parse("bronica", UnknownFieldReject)
	if !Matches(other, clauses) {
		t.Error("bare term should match batch info")
	}
}

func TestEmptyQueryMatchesAll(t *testing.T) {
	recs := []*models.ImageRecord{record("a", nil, ""), record("b", nil, "")}
	clauses, err := Parse("", UnknownFieldReject)
	if err != nil {
		t.Fatal(err)
	}
	if got := Filter(recs, clauses); len(got) != 2 {
		t.Errorf("empty query matched %d records, want 2", len(got))
	}
}

func ids(recs []*models.ImageRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ImageID
	}
	return out
}
