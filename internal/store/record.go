package store

import (
	"fmt"

	"clinic-store/internal/globalconst"
)

// Record is a single stored item: field names mapped to JSON-model values.
// Stored records are never mutated in place; an update replaces the record.
type Record map[string]any

// ID returns the record identifier, or "" if the record has none.
func (r Record) ID() string {
	id, _ := r[globalconst.ID].(string)
	return id
}

// CreatedAt returns the record's creation timestamp.
func (r Record) CreatedAt() string {
	ts, _ := r[globalconst.CreatedAt].(string)
	return ts
}

// UpdatedAt returns the record's last update timestamp.
func (r Record) UpdatedAt() string {
	ts, _ := r[globalconst.UpdatedAt].(string)
	return ts
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = cloneValue(inner)
		}
		return out
	default:
		return val
	}
}

// newRecord builds a normalized record from caller-supplied fields.
func newRecord(fields map[string]any) Record {
	rec := make(Record, len(fields)+3)
	for k, v := range fields {
		rec[k] = normalizeValue(v)
	}
	return rec
}

// validate rejects records holding numbers JSON cannot represent. One such
// value would make every later flush of the store fail.
func (r Record) validate() error {
	for field, v := range r {
		if !isEncodable(v) {
			return fmt.Errorf("%w: field %q holds a NaN or infinite number", ErrInvalidValue, field)
		}
	}
	return nil
}

// isManagedField reports whether the store owns the field; callers cannot set it.
func isManagedField(field string) bool {
	return field == globalconst.ID || field == globalconst.CreatedAt || field == globalconst.UpdatedAt
}

// Snapshot is a point-in-time view of every collection, in insertion order.
// Records inside a snapshot are shared with the store and must be treated as read-only.
type Snapshot map[string][]Record
