package store

import (
	"slices"

	"clinic-store/internal/globalconst"

	"github.com/google/btree"
)

const btreeDegree = 32 // Degree of the primary-key B-Tree.

// idKey implements the item for the primary-key B-Tree.
type idKey struct {
	ID     string
	Record Record
}

func idLess(a, b idKey) bool {
	return a.ID < b.ID
}

// table is one named collection: records in insertion order plus a B-Tree
// keyed by id for direct lookups. Callers hold the store lock.
type table struct {
	name    string
	records []Record
	byID    *btree.BTreeG[idKey]
}

func newTable(name string) *table {
	return &table{
		name: name,
		byID: btree.NewG[idKey](btreeDegree, idLess),
	}
}

func (t *table) len() int {
	return len(t.records)
}

func (t *table) hasID(id string) bool {
	return t.byID.Has(idKey{ID: id})
}

func (t *table) append(rec Record) {
	t.records = append(t.records, rec)
	t.byID.ReplaceOrInsert(idKey{ID: rec.ID(), Record: rec})
}

func (t *table) replace(pos int, rec Record) {
	t.records[pos] = rec
	t.byID.ReplaceOrInsert(idKey{ID: rec.ID(), Record: rec})
}

func (t *table) removeAt(pos int) {
	id := t.records[pos].ID()
	t.records = slices.Delete(t.records, pos, pos+1)
	t.byID.Delete(idKey{ID: id})
}

// first returns the position of the first record matching pred, or -1.
// A predicate on a string id is answered from the B-Tree.
func (t *table) first(pred Predicate) int {
	if id, ok := pred[globalconst.ID].(string); ok {
		item, found := t.byID.Get(idKey{ID: id})
		if !found || !pred.matches(item.Record) {
			return -1
		}
		for i, rec := range t.records {
			if rec.ID() == id {
				return i
			}
		}
		return -1
	}

	for i, rec := range t.records {
		if pred.matches(rec) {
			return i
		}
	}
	return -1
}

// filter returns the matching records in insertion order. The returned slice
// is fresh; the records are shared.
func (t *table) filter(pred Predicate) []Record {
	if id, ok := pred[globalconst.ID].(string); ok {
		item, found := t.byID.Get(idKey{ID: id})
		if !found || !pred.matches(item.Record) {
			return []Record{}
		}
		return []Record{item.Record}
	}

	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		if pred.matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// snapshot copies the record slice so later in-place edits do not leak into it.
func (t *table) snapshot() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}
