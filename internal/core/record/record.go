// Package record holds the canonical map-like entity for one archived capture
// and the schema every accepted mutation must satisfy
package record

import (
	"bytes"
	"maps"
	"math"
	"strconv"
	"strings"
)

// Record is one capture flowing through the pipeline
// it is owned by a single worker and never shared across goroutines
type Record struct {
	fields  map[string]any
	revisit bool

	// lazily decoded payload, reset whenever content changes
	decoded []byte
	decDone bool
}

// New wraps fields as a record; the map is taken over, not copied
func New(fields map[string]any) *Record {
	if fields == nil {
		fields = map[string]any{}
	}
	if _, ok := fields[Extra]; !ok {
		fields[Extra] = []any{}
	}
	return &Record{fields: fields}
}

// FromFields builds a record from a stored row, revisit state included
func FromFields(fields map[string]any, revisit bool) *Record {
	r := New(fields)
	r.revisit = revisit
	return r
}

// Get returns the value of field, nil when absent
func (r *Record) Get(field string) any { return r.fields[field] }

// String returns the field as a string, "" when absent or not a string
func (r *Record) String(field string) string {
	s, _ := r.fields[field].(string)
	return s
}

// Has reports whether field is present
func (r *Record) Has(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Set assigns a field value
func (r *Record) Set(field string, v any) {
	if field == Content {
		r.decoded, r.decDone = nil, false
	}
	r.fields[field] = v
}

// Delete removes a field; absent fields are a no-op
func (r *Record) Delete(field string) {
	if field == Content {
		r.decoded, r.decDone = nil, false
	}
	delete(r.fields, field)
}

// Pop removes field and returns its value or def when absent
func (r *Record) Pop(field string, def any) any {
	v, ok := r.fields[field]
	if !ok {
		return def
	}
	r.Delete(field)
	return v
}

// IsRevisit reports whether the capture was a revisit record
func (r *Record) IsRevisit() bool { return r.revisit }

// Len returns the number of fields
func (r *Record) Len() int { return len(r.fields) }

// Fields returns a shallow copy of the field map
func (r *Record) Fields() map[string]any { return maps.Clone(r.fields) }

// Canonical returns a shallow copy of all fields except extra
func (r *Record) Canonical() map[string]any {
	out := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		if k == Extra {
			continue
		}
		out[k] = v
	}
	return out
}

// ExtraList returns the extra list, empty when absent or malformed
func (r *Record) ExtraList() []any {
	if xs, ok := r.fields[Extra].([]any); ok {
		return xs
	}
	return nil
}

// AppendExtra extends the extra list with vs
func (r *Record) AppendExtra(vs ...any) {
	r.fields[Extra] = append(r.ExtraList(), vs...)
}

// Clone returns a deep, independent copy
func (r *Record) Clone() *Record {
	out := &Record{
		fields:  make(map[string]any, len(r.fields)),
		revisit: r.revisit,
		decoded: bytes.Clone(r.decoded),
		decDone: r.decDone,
	}
	for k, v := range r.fields {
		out.fields[k] = deepCopy(v)
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = deepCopy(x)
		}
		return m
	case map[string]string:
		return maps.Clone(t)
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = deepCopy(x)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	case []byte:
		return append([]byte(nil), t...)
	default:
		return v
	}
}

// NormalizeInts coerces integer fields to int64, dropping values that cannot be coerced
func (r *Record) NormalizeInts() {
	for _, f := range intFields {
		v, ok := r.fields[f]
		if !ok {
			continue
		}
		n, ok := toInt64(v)
		if !ok {
			delete(r.fields, f)
			continue
		}
		r.fields[f] = n
	}
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint32:
		return int64(t), true
	case float32:
		return floatToInt(float64(t))
	case float64:
		return floatToInt(t)
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}
