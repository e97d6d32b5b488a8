package store

import (
	"reflect"
	"testing"

	"clinic-store/internal/globalconst"
)

func seedCheckins(t *testing.T, s *Store) {
	t.Helper()
	for _, c := range []map[string]any{
		{"user": "u1", "mood": 3, "sleep": 7},
		{"user": "u2", "mood": 5},
		{"user": "u1", "mood": 4, "sleep": 6},
		{"user": "u3", "mood": 3, "sleep": 8},
		{"user": "u1", "mood": 2, "sleep": 5},
	} {
		mustInsert(t, s, globalconst.WellnessCheckins, c)
	}
}

func fieldValues(records []Record, field string) []any {
	out := make([]any, len(records))
	for i, rec := range records {
		out[i] = rec[field]
	}
	return out
}

func TestGetManyFilters(t *testing.T) {
	s := newMemStore(t)
	seedCheckins(t, s)

	tests := []struct {
		name string
		pred Predicate
		want int
	}{
		{"empty predicate", Predicate{}, 5},
		{"nil predicate", nil, 5},
		{"single field", Predicate{"user": "u1"}, 3},
		{"two fields", Predicate{"user": "u1", "mood": 4}, 1},
		{"int matches float", Predicate{"mood": int64(3)}, 2},
		{"no match", Predicate{"user": "u9"}, 0},
		{"string is not a number", Predicate{"mood": "3"}, 0},
		{"nil value ignored", Predicate{"user": "u1", "sleep": nil}, 3},
		{"missing field", Predicate{"weight": 60}, 0},
		{"operator object matches nothing", Predicate{"mood": map[string]any{"$gte": 3}}, 0},
		{"list value matches nothing", Predicate{"user": map[string]any{"$in": []any{"u1", "u2"}}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.GetMany(globalconst.WellnessCheckins, tt.pred, FindOptions{})
			if len(got) != tt.want {
				t.Errorf("len(GetMany) = %d, want %d", len(got), tt.want)
			}
			if n := s.Count(globalconst.WellnessCheckins, tt.pred); n != len(got) {
				t.Errorf("Count = %d, want len(GetMany) = %d", n, len(got))
			}
		})
	}
}

func TestGetManyKeepsInsertionOrderWithoutSort(t *testing.T) {
	s := newMemStore(t)
	seedCheckins(t, s)

	got := fieldValues(s.GetMany(globalconst.WellnessCheckins, Predicate{"user": "u1"}, FindOptions{}), "mood")
	want := []any{3.0, 4.0, 2.0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("moods = %v, want %v", got, want)
	}
}

func TestGetManySorts(t *testing.T) {
	s := newMemStore(t)
	seedCheckins(t, s)

	tests := []struct {
		name  string
		opts  FindOptions
		field string
		want  []any
	}{
		{"ascending, stable ties", FindOptions{SortBy: "mood"}, "user", []any{"u1", "u1", "u3", "u1", "u2"}},
		{"descending", FindOptions{SortBy: "mood", SortOrder: globalconst.SortDesc}, "mood", []any{5.0, 4.0, 3.0, 3.0, 2.0}},
		{"missing sorts lowest", FindOptions{SortBy: "sleep"}, "sleep", []any{nil, 5.0, 6.0, 7.0, 8.0}},
		{"missing sorts last descending", FindOptions{SortBy: "sleep", SortOrder: globalconst.SortDesc}, "sleep", []any{8.0, 7.0, 6.0, 5.0, nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldValues(s.GetMany(globalconst.WellnessCheckins, nil, tt.opts), tt.field)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s = %v, want %v", tt.field, got, tt.want)
			}
		})
	}
}

func TestGetManyPaginates(t *testing.T) {
	s := newMemStore(t)
	for i := range 7 {
		mustInsert(t, s, globalconst.ChatMessages, map[string]any{"seq": i})
	}

	tests := []struct {
		offset, limit, want int
	}{
		{0, 0, 7},
		{0, 3, 3},
		{5, 3, 2},
		{7, 3, 0},
		{100, 0, 0},
		{-2, 2, 2},
	}
	for _, tt := range tests {
		opts := FindOptions{SortBy: "seq", Offset: tt.offset, Limit: tt.limit}
		if got := len(s.GetMany(globalconst.ChatMessages, nil, opts)); got != tt.want {
			t.Errorf("offset %d limit %d: len = %d, want %d", tt.offset, tt.limit, got, tt.want)
		}
	}

	var pages []any
	for offset := 0; offset < 7; offset += 3 {
		page := s.GetMany(globalconst.ChatMessages, nil, FindOptions{SortBy: "seq", Offset: offset, Limit: 3})
		pages = append(pages, fieldValues(page, "seq")...)
	}
	all := fieldValues(s.GetMany(globalconst.ChatMessages, nil, FindOptions{SortBy: "seq"}), "seq")
	if !reflect.DeepEqual(pages, all) {
		t.Errorf("concatenated pages = %v, want %v", pages, all)
	}
}

func TestCompareValuesRanksTypes(t *testing.T) {
	ordered := []any{nil, -1.5, 0.0, 10.0, "", "a", "b", false, true, map[string]any{"k": 1.0}}
	for i := 0; i < len(ordered)-1; i++ {
		if c := compareValues(ordered[i], ordered[i+1]); c >= 0 {
			t.Errorf("compareValues(%v, %v) = %d, want < 0", ordered[i], ordered[i+1], c)
		}
		if c := compareValues(ordered[i+1], ordered[i]); c <= 0 {
			t.Errorf("compareValues(%v, %v) = %d, want > 0", ordered[i+1], ordered[i], c)
		}
	}
	if c := compareValues(3.0, 3.0); c != 0 {
		t.Errorf("compareValues(3, 3) = %d, want 0", c)
	}
}

func TestNormalizeValue(t *testing.T) {
	type dose struct {
		Grams int    `json:"grams"`
		Herb  string `json:"herb"`
	}
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"int", 5, 5.0},
		{"uint8", uint8(7), 7.0},
		{"float32", float32(0.5), 0.5},
		{"nested", map[string]any{"a": []any{1, "x"}}, map[string]any{"a": []any{1.0, "x"}}},
		{"struct", dose{Grams: 3, Herb: "tulsi"}, map[string]any{"grams": 3.0, "herb": "tulsi"}},
		{"int slice", []int{1, 2}, []any{1.0, 2.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeValue(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeValue(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}
