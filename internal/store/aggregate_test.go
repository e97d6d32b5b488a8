package store

import (
	"errors"
	"reflect"
	"testing"

	"clinic-store/internal/globalconst"
)

func seedBookings(t *testing.T, s *Store) {
	t.Helper()
	for _, b := range []map[string]any{
		{"therapy": "A", "price": 100, "status": "confirmed"},
		{"therapy": "A", "price": 200, "status": "confirmed"},
		{"therapy": "B", "price": 50, "status": "confirmed"},
		{"therapy": "B", "status": "pending"},
		{"therapy": "C", "price": 70, "status": "cancelled"},
	} {
		mustInsert(t, s, globalconst.Bookings, b)
	}
}

func TestAggregateGroupBy(t *testing.T) {
	s := newMemStore(t)
	seedBookings(t, s)

	tests := []struct {
		name     string
		pipeline Pipeline
		want     []Record
	}{
		{
			name: "match then sum and count",
			pipeline: Pipeline{
				MatchStage(Predicate{"status": "confirmed"}),
				GroupBy("therapy", map[string]Accumulator{"total": Sum("price"), "n": Count()}),
			},
			want: []Record{
				{"_id": "A", "total": 300.0, "n": 2.0},
				{"_id": "B", "total": 50.0, "n": 1.0},
			},
		},
		{
			name:     "avg counts members without the field",
			pipeline: Pipeline{GroupBy("therapy", map[string]Accumulator{"avg": Avg("price")})},
			want: []Record{
				{"_id": "A", "avg": 150.0},
				{"_id": "B", "avg": 25.0},
				{"_id": "C", "avg": 70.0},
			},
		},
		{
			name: "min and max",
			pipeline: Pipeline{
				MatchStage(Predicate{"therapy": "A"}),
				GroupBy("therapy", map[string]Accumulator{"lo": Min("price"), "hi": Max("price")}),
			},
			want: []Record{{"_id": "A", "lo": 100.0, "hi": 200.0}},
		},
		{
			name: "min of a group without values is nil",
			pipeline: Pipeline{
				MatchStage(Predicate{"status": "pending"}),
				GroupBy("therapy", map[string]Accumulator{"lo": Min("price"), "total": Sum("price")}),
			},
			want: []Record{{"_id": "B", "lo": nil, "total": 0.0}},
		},
		{
			name:     "constant key makes one group",
			pipeline: Pipeline{GroupBy("", map[string]Accumulator{"n": Count(), "revenue": Sum("price")})},
			want:     []Record{{"_id": nil, "n": 5.0, "revenue": 420.0}},
		},
		{
			name:     "missing group field is its own group",
			pipeline: Pipeline{GroupBy("room", map[string]Accumulator{"n": Count()})},
			want:     []Record{{"_id": nil, "n": 5.0}},
		},
		{
			name:     "group without accumulators",
			pipeline: Pipeline{MatchStage(Predicate{"therapy": "C"}), GroupBy("status", nil)},
			want:     []Record{{"_id": "cancelled"}},
		},
		{
			name:     "no match gives no groups",
			pipeline: Pipeline{MatchStage(Predicate{"therapy": "Z"}), GroupBy("therapy", map[string]Accumulator{"n": Count()})},
			want:     []Record{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Aggregate(globalconst.Bookings, tt.pipeline)
			if err != nil {
				t.Fatalf("Aggregate: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Aggregate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregateEmptyPipelineReturnsAllRecords(t *testing.T) {
	s := newMemStore(t)
	seedBookings(t, s)

	got, err := s.Aggregate(globalconst.Bookings, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !reflect.DeepEqual(got, s.GetMany(globalconst.Bookings, nil, FindOptions{})) {
		t.Error("empty pipeline did not return the collection in insertion order")
	}
}

func TestAggregateDoesNotModifyStore(t *testing.T) {
	s := newMemStore(t)
	seedBookings(t, s)
	before := s.Snapshot()

	rows, err := s.Aggregate(globalconst.Bookings, Pipeline{GroupBy("therapy", map[string]Accumulator{"n": Count()})})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	rows[0]["n"] = 1000.0

	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Error("Aggregate changed stored data")
	}
}

func TestAggregateRejectsInvalidPipelines(t *testing.T) {
	s := newMemStore(t)
	seedBookings(t, s)

	tests := []struct {
		name     string
		pipeline Pipeline
	}{
		{"unknown accumulator", Pipeline{GroupBy("therapy", map[string]Accumulator{"m": {Op: "median", Field: "price"}})}},
		{"sum without field", Pipeline{GroupBy("therapy", map[string]Accumulator{"s": Sum("")})}},
		{"reserved output name", Pipeline{GroupBy("therapy", map[string]Accumulator{"_id": Count()})}},
		{"match and group together", Pipeline{{Match: Predicate{"a": 1}, Group: &GroupStage{By: "therapy"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Aggregate(globalconst.Bookings, tt.pipeline)
			if !errors.Is(err, ErrInvalidPipeline) {
				t.Errorf("err = %v, want ErrInvalidPipeline", err)
			}
		})
	}
}
