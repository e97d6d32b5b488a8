package store

import (
	"sort"

	"clinic-store/internal/globalconst"
)

// Predicate selects records by strict per-field equality. A nil value is
// ignored and matches everything.
//
// There is no operator vocabulary: a value such as {"$gte": 5} or
// {"$in": [...]} is compared as a whole and only matches a field holding that
// exact mapping. Range and set filters therefore match nothing.
type Predicate map[string]any

// FindOptions controls ordering and pagination for GetMany.
type FindOptions struct {
	SortBy    string
	SortOrder string // "asc" (default) or "desc"
	Offset    int
	Limit     int // 0 means no limit
}

// normalize drops ignored keys and converts values to the store's value model.
func (p Predicate) normalize() Predicate {
	out := make(Predicate, len(p))
	for k, v := range p {
		if v == nil {
			continue
		}
		out[k] = normalizeValue(v)
	}
	return out
}

// matches reports whether every key of p equals the record's field.
// p must already be normalized.
func (p Predicate) matches(rec Record) bool {
	for field, want := range p {
		if want == nil {
			continue
		}
		got, ok := rec[field]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// sortRecords orders records in place by a single field. Missing fields sort
// as the lowest value. The sort is stable, so ties keep insertion order.
func sortRecords(records []Record, field, order string) {
	if field == "" {
		return
	}
	desc := order == globalconst.SortDesc
	sort.SliceStable(records, func(i, j int) bool {
		cmp := compareValues(records[i][field], records[j][field])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// paginate applies offset then limit.
func paginate(records []Record, offset, limit int) []Record {
	offset = min(max(offset, 0), len(records))
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
