// Package record holds the date/time string conventions and the loose-typing
// helpers used when mapping store documents to typed records. Dates are
// YYYY-MM-DD, clock times are HH:MM (24-hour), and createdAt/updatedAt are
// date-only strings produced by truncating a timestamp to its date portion.
package record

import (
	"time"

	"github.com/medtrack/clinic-service/internal/docstore"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// DateOnly truncates a timestamp to its date portion.
func DateOnly(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidClock reports whether s is a well-formed HH:MM time. The check is a
// strict round-trip: time.Parse alone accepts non-padded hours ("9:30"),
// which would break lexicographic ordering of date+time strings.
func ValidClock(s string) bool {
	t, err := time.Parse(ClockLayout, s)
	return err == nil && t.Format(ClockLayout) == s
}

// DateBefore reports whether a is strictly before b. Naive comparison, no
// timezone normalization; well-formed dates compare correctly as strings.
func DateBefore(a, b string) bool {
	return a < b
}

// Str reads a string field, defaulting to "" on a missing or non-string value.
func Str(doc docstore.Document, key string) string {
	s, _ := doc[key].(string)
	return s
}

// OptStr reads an optional string field: nil when missing or null.
func OptStr(doc docstore.Document, key string) *string {
	if s, ok := doc[key].(string); ok {
		return &s
	}
	return nil
}

// OptNum reads an optional numeric field: nil when missing or null.
func OptNum(doc docstore.Document, key string) *float64 {
	switch t := doc[key].(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	default:
		return nil
	}
}

// Num reads a numeric field. JSON numbers decode as float64; integers stored
// by the in-memory implementation are accepted too.
func Num(doc docstore.Document, key string) float64 {
	switch t := doc[key].(type) {
	case float64:
		return t
	case int:
		return float64(t)
	default:
		return 0
	}
}

// Int reads a numeric field truncated to int.
func Int(doc docstore.Document, key string) int {
	return int(Num(doc, key))
}

// StrSlice reads an array-of-strings field, skipping non-string elements.
func StrSlice(doc docstore.Document, key string) []string {
	raw, ok := doc[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Sub reads a nested document field, returning nil when missing or not an
// object.
func Sub(doc docstore.Document, key string) docstore.Document {
	switch t := doc[key].(type) {
	case docstore.Document:
		return t
	case map[string]interface{}:
		return docstore.Document(t)
	default:
		return nil
	}
}

// AnySlice converts a string slice for storage.
func AnySlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
