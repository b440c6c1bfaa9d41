// Package search compiles free-text gallery queries into flat conjunctive
// clause lists and evaluates them against catalog records.
//
// Grammar: whitespace-separated tokens, each one of
//
//	word
//	"quoted phrase"
//	field:value
//	field:"quoted multi-word value"
//
// Only AND is supported; every clause must match.
package search

import (
	"fmt"
	"strings"

	apperrors "filmarchive/internal/errors"
	"filmarchive/internal/models"
)

// Recognized clause fields. An empty field means the clause matches against
// every searchable field of a record.
const (
	FieldTag  = "tag"
	FieldDate = "date"
)

// Clause is one parsed query token. The tagged-field shape leaves room for
// OR/negation variants later without reshaping callers.
type Clause struct {
	Field string
	Value string
}

// UnknownFieldMode decides what happens to a token with an unrecognized field
// prefix, e.g. "camera:foo". There is no single right reading, so this is an
// explicit configuration choice.
type UnknownFieldMode int

const (
	// UnknownFieldReject reports unrecognized prefixes as query errors.
	UnknownFieldReject UnknownFieldMode = iota
	// UnknownFieldIgnore silently drops such tokens.
	UnknownFieldIgnore
	// UnknownFieldLiteral folds the whole token into a bare substring match.
	UnknownFieldLiteral
)

// ParseUnknownFieldMode maps a configuration string to a mode.
func ParseUnknownFieldMode(s string) (UnknownFieldMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return UnknownFieldReject, nil
	case "ignore":
		return UnknownFieldIgnore, nil
	case "literal":
		return UnknownFieldLiteral, nil
	}
	return 0, fmt.Errorf("unknown field mode %q (want reject, ignore, or literal)", s)
}

// Parse compiles a query string into its clause list. An empty query yields
// an empty list, which matches every record. Malformed quoting never fails:
// an unterminated quote swallows the rest of the input as one value.
func Parse(query string, mode UnknownFieldMode) ([]Clause, error) {
	var clauses []Clause
	for _, tok := range tokenize(query) {
		clause, keep, err := classify(tok, mode)
		if err != nil {
			return nil, err
		}
		if keep {
			clauses = append(clauses, clause)
		}
	}
	return clauses, nil
}

// token is one whitespace-delimited unit with quotes resolved.
type token struct {
	field string // text before an unquoted colon, "" if none
	value string // remaining text, quotes stripped
	raw   string // original text, for literal fallback
}

// tokenize splits on whitespace outside quotes, in a single pass.
func tokenize(query string) []token {
	var (
		tokens   []token
		field    strings.Builder
		value    strings.Builder
		raw      strings.Builder
		inQuote  bool
		sawColon bool
		active   bool
	)

	flush := func() {
		if !active {
			return
		}
		t := token{value: value.String(), raw: raw.String()}
		if sawColon {
			t.field = field.String()
		} else {
			t.value = field.String() + t.value
		}
		tokens = append(tokens, t)
		field.Reset()
		value.Reset()
		raw.Reset()
		inQuote, sawColon, active = false, false, false
	}

	for _, r := range query {
		switch {
		case r == '"':
			active = true
			raw.WriteRune(r)
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		case !inQuote && !sawColon && r == ':':
			active = true
			sawColon = true
			raw.WriteRune(r)
		default:
			active = true
			raw.WriteRune(r)
			if sawColon || inQuote {
				value.WriteRune(r)
			} else {
				field.WriteRune(r)
			}
		}
	}
	flush()
	return tokens
}

func classify(t token, mode UnknownFieldMode) (Clause, bool, error) {
	switch t.field {
	case "":
		if t.value == "" {
			return Clause{}, false, nil
		}
		return Clause{Value: t.value}, true, nil
	case FieldTag, FieldDate:
		if t.value == "" {
			return Clause{}, false, nil
		}
		return Clause{Field: t.field, Value: t.value}, true, nil
	}

	switch mode {
	case UnknownFieldIgnore:
		return Clause{}, false, nil
	case UnknownFieldLiteral:
		return Clause{Value: t.raw}, true, nil
	default:
		return Clause{}, false, fmt.Errorf("%w: unrecognized field %q", apperrors.ErrInvalidQuery, t.field)
	}
}

// Matches reports whether the record satisfies every clause.
func Matches(rec *models.ImageRecord, clauses []Clause) bool {
	for _, c := range clauses {
		if !matchClause(rec, c) {
			return false
		}
	}
	return true
}

// Filter returns the records matching every clause, preserving order.
func Filter(recs []*models.ImageRecord, clauses []Clause) []*models.ImageRecord {
	if len(clauses) == 0 {
		return recs
	}
	var out []*models.ImageRecord
	for _, rec := range recs {
		if Matches(rec, clauses) {
			out = append(out, rec)
		}
	}
	return out
}

func matchClause(rec *models.ImageRecord, c Clause) bool {
	switch c.Field {
	case FieldTag:
		// Tags are discrete tokens: exact match, case-insensitive.
		for _, tag := range rec.Tags {
			if strings.EqualFold(tag, c.Value) {
				return true
			}
		}
		return false
	case FieldDate:
		// Prefix match on YYYY-MM-DD: "2024" hits the year, "2024-12" the
		// month. Records without a capture date never match. Capture times
		// are stored in UTC but can come back from the database in the
		// session zone, so the date is taken in UTC.
		if rec.Exif == nil || rec.Exif.DateTaken == nil {
			return false
		}
		return strings.HasPrefix(rec.Exif.DateTaken.UTC().Format("2006-01-02"), c.Value)
	default:
		return matchAnywhere(rec, c.Value)
	}
}

// matchAnywhere is the unscoped case-insensitive substring match over the
// searchable text of a record.
func matchAnywhere(rec *models.ImageRecord, value string) bool {
	needle := strings.ToLower(value)
	fields := []string{
		strings.Join(rec.Tags, " "),
		rec.Description,
		rec.BatchInfo,
	}
	if rec.Exif != nil {
		fields = append(fields, rec.Exif.CameraMake, rec.Exif.CameraModel, rec.Exif.LensModel)
	}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
