package docstore

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Store is the read-only document database the analytics pipeline runs
// against. Paths are slash separated, alternating collection and document
// segments ("users/u1/progress/c1").
type Store interface {
	// QueryEquals returns every document in the collection whose field equals
	// the given value.
	QueryEquals(ctx context.Context, collection, field, value string) ([]Document, error)
	// GetDocument fetches a single document. The boolean reports presence;
	// an absent document is not an error.
	GetDocument(ctx context.Context, path string) (Document, bool, error)
	// ListCollection returns all documents in the collection at path.
	ListCollection(ctx context.Context, path string) ([]Document, error)
}

// Document is a flat, loosely typed key-value record. Field values arrive as
// whatever the store handed back (numbers may be strings, timestamps may be
// several shapes), so consumers go through the typed accessors below rather
// than asserting on Fields directly.
type Document struct {
	ID     string
	Fields map[string]interface{}
}

// String returns the field as a string, or fallback when absent.
func (d Document) String(key, fallback string) string {
	v, ok := d.Fields[key]
	if !ok || v == nil {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

// Float returns the field coerced to float64, defaulting to 0.
func (d Document) Float(key string) float64 {
	f, _ := d.FloatOK(key)
	return f
}

// FloatOK returns the field coerced to float64 and whether it was present
// and coercible.
func (d Document) FloatOK(key string) (float64, bool) {
	v, ok := d.Fields[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns the field coerced to int, defaulting to 0.
func (d Document) Int(key string) int {
	f, ok := d.FloatOK(key)
	if !ok {
		return 0
	}
	return int(f)
}

// Bool returns the field coerced to bool, defaulting to false.
func (d Document) Bool(key string) bool {
	v, ok := d.Fields[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		return err == nil && parsed
	default:
		return false
	}
}

// Time returns the field converted to a time, or the zero time when absent
// or unparseable. Accepted shapes: time.Time, RFC3339 string, YYYY-MM-DD
// string, epoch seconds number, and {"seconds": n} maps.
func (d Document) Time(key string) time.Time {
	v, ok := d.Fields[key]
	if !ok || v == nil {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC()
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed.UTC()
		}
		return time.Time{}
	case float64:
		return time.Unix(int64(t), 0).UTC()
	case int64:
		return time.Unix(t, 0).UTC()
	case map[string]interface{}:
		sub := Document{Fields: t}
		if secs, ok := sub.FloatOK("seconds"); ok {
			return time.Unix(int64(secs), 0).UTC()
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// Strings returns the field as a slice of strings, skipping any non-string
// elements. Absent fields yield nil.
func (d Document) Strings(key string) []string {
	v, ok := d.Fields[key]
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		if typed, ok := v.([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
