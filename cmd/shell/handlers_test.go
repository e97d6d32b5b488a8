package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clinic-store/internal/globalconst"
	"clinic-store/internal/metrics"
	"clinic-store/internal/persistence"
	"clinic-store/internal/store"
)

func newTestCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	s := store.New(nil, nil, store.Options{})
	t.Cleanup(func() { s.Close() })
	out := &bytes.Buffer{}
	backups := persistence.NewBackupManager(s, filepath.Join(t.TempDir(), "backups"), 0, time.Hour)
	return &cli{store: s, backups: backups, out: out}, out
}

func run(t *testing.T, c *cli, input string) {
	t.Helper()
	if err := c.execute(input); err != nil {
		t.Fatalf("execute(%q): %v", input, err)
	}
}

func TestShellCRUD(t *testing.T) {
	c, out := newTestCLI(t)

	run(t, c, `insert therapies {"name": "Nasya", "price": 40}`)
	run(t, c, `insert therapies {"name": "Basti", "price": 120}`)
	if n := c.store.Count(globalconst.Therapies, nil); n != 2 {
		t.Fatalf("Count = %d, want 2", n)
	}

	run(t, c, `use therapies`)
	run(t, c, `update {"name": "Nasya"} {"price": 45}`)
	rec, _ := c.store.GetOne(globalconst.Therapies, store.Predicate{"name": "Nasya"})
	if rec["price"] != float64(45) {
		t.Errorf("price = %v, want 45", rec["price"])
	}

	out.Reset()
	run(t, c, `find --sort price --desc --limit 1`)
	if !strings.Contains(out.String(), "Basti") || strings.Contains(out.String(), "Nasya") {
		t.Errorf("find output = %q, want only Basti", out.String())
	}

	run(t, c, `delete {"name": "Basti"}`)
	if n := c.store.Count(globalconst.Therapies, nil); n != 1 {
		t.Errorf("Count after delete = %d, want 1", n)
	}
}

func TestShellAggregate(t *testing.T) {
	c, out := newTestCLI(t)
	run(t, c, `insert bookings {"therapy": "A", "price": 100}`)
	run(t, c, `insert bookings {"therapy": "A", "price": 200}`)

	out.Reset()
	run(t, c, `aggregate bookings [{"$group": {"_id": "$therapy", "total": {"$sum": "$price"}}}]`)
	if !strings.Contains(out.String(), "300") {
		t.Errorf("aggregate output = %q, want the total 300", out.String())
	}
}

func TestShellErrors(t *testing.T) {
	c, _ := newTestCLI(t)

	for _, input := range []string{
		`frobnicate`,
		`find`,
		`use spells`,
		`insert spells {"a": 1}`,
		`insert therapies not-json`,
		`delete therapies {}`,
		`find therapies --limit x`,
		`update therapies {"a": 1}`,
		`aggregate therapies [{"$sort": {}}]`,
	} {
		if err := c.execute(input); err == nil {
			t.Errorf("execute(%q) succeeded, want an error", input)
		}
	}
}

func TestParseFindOptions(t *testing.T) {
	opts, err := parseFindOptions("--sort price --desc --offset 2 --limit 5")
	if err != nil {
		t.Fatalf("parseFindOptions: %v", err)
	}
	want := store.FindOptions{SortBy: "price", SortOrder: globalconst.SortDesc, Offset: 2, Limit: 5}
	if opts != want {
		t.Errorf("opts = %+v, want %+v", opts, want)
	}

	for _, bad := range []string{"--sort", "--limit -1", "--page 2"} {
		if _, err := parseFindOptions(bad); err == nil {
			t.Errorf("parseFindOptions(%q) succeeded, want an error", bad)
		}
	}
}

func TestShellStats(t *testing.T) {
	metrics.Register()
	c, out := newTestCLI(t)
	run(t, c, `insert users {"name": "Meera"}`)

	out.Reset()
	run(t, c, `stats`)
	if !strings.Contains(out.String(), "clinicstore_operations_total") {
		t.Errorf("stats output = %q, want the operations counter", out.String())
	}
}
