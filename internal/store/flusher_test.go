package store

import (
	"sync"
	"testing"
	"time"
)

func TestFlusherWritesInOrderAndCoalesces(t *testing.T) {
	var (
		mu      sync.Mutex
		written []int
		release = make(chan struct{})
	)
	f := newFlusher(16, func(snap Snapshot) {
		<-release
		mu.Lock()
		written = append(written, len(snap["seq"]))
		mu.Unlock()
	})

	const total = 10
	for i := 1; i <= total; i++ {
		f.enqueue(Snapshot{"seq": make([]Record, i)})
	}
	done := f.barrier()
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("barrier was not released")
	}
	f.stop()

	mu.Lock()
	defer mu.Unlock()
	if len(written) == 0 || len(written) > total {
		t.Fatalf("wrote %d snapshots, want between 1 and %d", len(written), total)
	}
	for i := 1; i < len(written); i++ {
		if written[i] <= written[i-1] {
			t.Errorf("writes out of order: %v", written)
		}
	}
	if last := written[len(written)-1]; last != total {
		t.Errorf("last write = %d, want %d", last, total)
	}
}

func TestFlusherStopDrainsQueue(t *testing.T) {
	var (
		mu   sync.Mutex
		last int
	)
	f := newFlusher(4, func(snap Snapshot) {
		mu.Lock()
		last = len(snap["seq"])
		mu.Unlock()
	})
	for i := 1; i <= 20; i++ {
		f.enqueue(Snapshot{"seq": make([]Record, i)})
	}
	f.stop()

	mu.Lock()
	defer mu.Unlock()
	if last != 20 {
		t.Errorf("last write after stop = %d, want 20", last)
	}
}

func TestClockIsStrictlyIncreasing(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	c := newClock(func() time.Time { return frozen })

	prev := c.stamp()
	if prev != "2026-03-01T09:30:00.000Z" {
		t.Errorf("first stamp = %q, want the frozen time", prev)
	}
	for range 5 {
		next := c.stamp()
		if next <= prev {
			t.Fatalf("stamp %q is not after %q", next, prev)
		}
		prev = next
	}

	c.observe("2027-01-01T00:00:00.000Z", "garbage", "")
	if got := c.stamp(); got != "2027-01-01T00:00:00.001Z" {
		t.Errorf("stamp after observe = %q, want 2027-01-01T00:00:00.001Z", got)
	}
}
