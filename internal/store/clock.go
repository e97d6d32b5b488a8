package store

import (
	"time"

	"clinic-store/internal/globalconst"
)

// clock issues record timestamps. Every stamp is strictly later than the
// previous one and than any timestamp observed in loaded data, even when the
// wall clock stalls or steps back. Callers hold the store write lock.
type clock struct {
	now  func() time.Time
	last time.Time
}

func newClock(now func() time.Time) *clock {
	if now == nil {
		now = time.Now
	}
	return &clock{now: now}
}

func (c *clock) stamp() string {
	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t.Format(globalconst.TimestampLayout)
}

// observe advances the clock past timestamps found in loaded records.
// Unparseable values are ignored.
func (c *clock) observe(stamps ...string) {
	for _, s := range stamps {
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			continue
		}
		if t.After(c.last) {
			c.last = t.UTC()
		}
	}
}
