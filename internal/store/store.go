package store

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"clinic-store/internal/globalconst"
	"clinic-store/internal/metrics"

	"github.com/google/uuid"
)

var (
	// ErrUnknownCollection is returned by writes against an undeclared collection.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("store is closed")
	// ErrInvalidValue is returned when a field holds a value the store file cannot encode.
	ErrInvalidValue = errors.New("invalid value")
)

// Persister writes a full snapshot of the store to durable storage.
type Persister interface {
	SaveSnapshot(snap Snapshot) error
}

// Options configures a Store.
type Options struct {
	// FlushMode is globalconst.FlushModeAsync (default) or globalconst.FlushModeSync.
	FlushMode string
	// QueueSize bounds the number of snapshots waiting for the background writer.
	QueueSize int
	// Now overrides the wall clock, mainly for tests.
	Now func() time.Time
}

// Store is the embedded document store: a fixed set of named collections
// guarded by a single reader/writer lock, written through to a Persister
// after every mutation.
type Store struct {
	mu        sync.RWMutex
	tables    map[string]*table
	names     []string
	persister Persister
	flusher   *flusher
	clock     *clock
	closed    bool

	flushErrMu sync.Mutex
	flushErr   error
}

// New creates a store holding the declared collections plus any collection
// found in initial. A nil persister keeps the store in memory only.
func New(persister Persister, initial Snapshot, opts Options) *Store {
	s := &Store{
		tables:    make(map[string]*table),
		persister: persister,
		clock:     newClock(opts.Now),
	}

	for _, name := range globalconst.DeclaredCollections {
		s.addTable(name)
	}
	extra := make([]string, 0)
	for name := range initial {
		if _, ok := s.tables[name]; !ok {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		s.addTable(name)
		slog.Warn("Collection not declared, keeping it from loaded data", "name", name)
	}

	for name, records := range initial {
		s.loadTable(s.tables[name], records)
	}

	if persister != nil && opts.FlushMode != globalconst.FlushModeSync {
		s.flusher = newFlusher(opts.QueueSize, s.writeSnapshot)
	}
	slog.Info("Store initialized", "collections", len(s.names), "flush_mode", s.flushMode())
	return s
}

// countOp bumps the operation counter. Names that are not collections of this
// store share one label so callers cannot grow the label set.
func (s *Store) countOp(collection, op string) {
	label := collection
	if _, ok := s.tables[collection]; !ok {
		label = metrics.UnknownCollection
	}
	metrics.OperationsTotal.WithLabelValues(label, op).Inc()
}

func (s *Store) addTable(name string) {
	s.tables[name] = newTable(name)
	s.names = append(s.names, name)
}

// loadTable appends records from a loaded snapshot, repairing records that
// lack an id or carry a duplicate one.
func (s *Store) loadTable(t *table, records []Record) {
	repaired := 0
	for _, raw := range records {
		if raw == nil {
			continue
		}
		rec := newRecord(raw)
		id := rec.ID()
		if id == "" || t.hasID(id) {
			rec[globalconst.ID] = s.newID(t)
			repaired++
		}
		s.clock.observe(rec.CreatedAt(), rec.UpdatedAt())
		if rec.CreatedAt() == "" {
			rec[globalconst.CreatedAt] = s.clock.stamp()
		}
		if rec.UpdatedAt() == "" {
			rec[globalconst.UpdatedAt] = rec.CreatedAt()
		}
		t.append(rec)
	}
	if repaired > 0 {
		slog.Warn("Assigned new ids to loaded records", "collection", t.name, "count", repaired)
	}
	metrics.Records.WithLabelValues(t.name).Set(float64(t.len()))
	slog.Info("Collection loaded", "name", t.name, "records", t.len())
}

func (s *Store) flushMode() string {
	if s.flusher != nil {
		return globalconst.FlushModeAsync
	}
	return globalconst.FlushModeSync
}

func (s *Store) newID(t *table) string {
	for {
		id := uuid.NewString()
		if !t.hasID(id) {
			return id
		}
	}
}

// GetOne returns the first record, in insertion order, matching pred.
func (s *Store) GetOne(collection string, pred Predicate) (Record, bool) {
	s.countOp(collection, "get_one")
	pred = pred.normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[collection]
	if !ok {
		return nil, false
	}
	pos := t.first(pred)
	if pos < 0 {
		return nil, false
	}
	return t.records[pos].Clone(), true
}

// GetMany returns every record matching pred, sorted and paginated per opts.
func (s *Store) GetMany(collection string, pred Predicate, opts FindOptions) []Record {
	s.countOp(collection, "get_many")
	pred = pred.normalize()

	s.mu.RLock()
	t, ok := s.tables[collection]
	if !ok {
		s.mu.RUnlock()
		return []Record{}
	}
	matched := t.filter(pred)
	s.mu.RUnlock()

	sortRecords(matched, opts.SortBy, opts.SortOrder)
	page := paginate(matched, opts.Offset, opts.Limit)
	out := make([]Record, len(page))
	for i, rec := range page {
		out[i] = rec.Clone()
	}
	return out
}

// Count returns the number of records matching pred.
func (s *Store) Count(collection string, pred Predicate) int {
	s.countOp(collection, "count")
	pred = pred.normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[collection]
	if !ok {
		return 0
	}
	if len(pred) == 0 {
		return t.len()
	}
	return len(t.filter(pred))
}

// Insert stores a new record built from fields and returns it with its
// assigned id and timestamps. Store-managed fields in fields are ignored.
func (s *Store) Insert(collection string, fields map[string]any) (Record, error) {
	s.countOp(collection, "insert")
	rec := newRecord(fields)
	if err := rec.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.writableTable(collection)
	if err != nil {
		return nil, err
	}

	stamp := s.clock.stamp()
	rec[globalconst.ID] = s.newID(t)
	rec[globalconst.CreatedAt] = stamp
	rec[globalconst.UpdatedAt] = stamp
	t.append(rec)

	slog.Debug("Record inserted", "collection", collection, "id", rec.ID())
	s.afterWriteLocked(t, "insert")
	return rec.Clone(), nil
}

// Update merges patch into the first record matching pred. The id and the
// timestamps cannot be patched; updatedAt is refreshed.
func (s *Store) Update(collection string, pred Predicate, patch map[string]any) (Record, bool, error) {
	s.countOp(collection, "update")
	pred = pred.normalize()
	changes := newRecord(patch)
	if err := changes.validate(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.writableTable(collection)
	if err != nil {
		return nil, false, err
	}
	pos := t.first(pred)
	if pos < 0 {
		return nil, false, nil
	}

	current := t.records[pos]
	merged := make(Record, len(current)+len(patch))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range changes {
		if isManagedField(k) {
			continue
		}
		merged[k] = v
	}
	merged[globalconst.UpdatedAt] = s.clock.stamp()
	t.replace(pos, merged)

	slog.Debug("Record updated", "collection", collection, "id", merged.ID())
	s.afterWriteLocked(t, "update")
	return merged.Clone(), true, nil
}

// Delete removes the first record matching pred and reports whether one was removed.
func (s *Store) Delete(collection string, pred Predicate) (bool, error) {
	s.countOp(collection, "delete")
	pred = pred.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.writableTable(collection)
	if err != nil {
		return false, err
	}
	pos := t.first(pred)
	if pos < 0 {
		return false, nil
	}
	id := t.records[pos].ID()
	t.removeAt(pos)

	slog.Debug("Record deleted", "collection", collection, "id", id)
	s.afterWriteLocked(t, "delete")
	return true, nil
}

// Aggregate runs pipeline over a consistent snapshot of the collection. It
// never modifies stored data.
func (s *Store) Aggregate(collection string, pipeline Pipeline) ([]Record, error) {
	s.countOp(collection, "aggregate")
	if err := pipeline.validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	t, ok := s.tables[collection]
	if !ok {
		s.mu.RUnlock()
		return []Record{}, nil
	}
	working := t.snapshot()
	s.mu.RUnlock()

	results := pipeline.run(working)
	out := make([]Record, len(results))
	for i, rec := range results {
		out[i] = rec.Clone()
	}
	return out, nil
}

// Collections returns the collection names, declared ones first.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.names)
}

// Snapshot returns a consistent copy of every collection.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Flush blocks until every mutation applied before the call has been written.
func (s *Store) Flush() {
	s.mu.RLock()
	if s.closed || s.flusher == nil {
		s.mu.RUnlock()
		return
	}
	done := s.flusher.barrier()
	s.mu.RUnlock()
	<-done
}

// LastFlushError returns the error of the most recent flush, or nil if it succeeded.
func (s *Store) LastFlushError() error {
	s.flushErrMu.Lock()
	defer s.flushErrMu.Unlock()
	return s.flushErr
}

// Close rejects further writes and waits for pending flushes to finish.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.flusher != nil {
		s.flusher.stop()
	}
	slog.Info("Store closed")
	return s.LastFlushError()
}

func (s *Store) writableTable(collection string) (*table, error) {
	if s.closed {
		return nil, ErrClosed
	}
	t, ok := s.tables[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return t, nil
}

func (s *Store) snapshotLocked() Snapshot {
	snap := make(Snapshot, len(s.tables))
	for name, t := range s.tables {
		snap[name] = t.snapshot()
	}
	return snap
}

// afterWriteLocked captures the post-mutation snapshot and hands it to the
// writer. It runs under the write lock so flushes follow mutation order.
func (s *Store) afterWriteLocked(t *table, op string) {
	metrics.Records.WithLabelValues(t.name).Set(float64(t.len()))
	if s.persister == nil {
		return
	}
	snap := s.snapshotLocked()
	if s.flusher != nil {
		s.flusher.enqueue(snap)
		return
	}
	s.writeSnapshot(snap)
	slog.Debug("Synchronous flush finished", "op", op, "collection", t.name)
}

// writeSnapshot persists snap. A failure is logged and remembered but never
// rolls back memory: the in-memory state stays authoritative.
func (s *Store) writeSnapshot(snap Snapshot) {
	start := time.Now()
	err := s.persister.SaveSnapshot(snap)
	metrics.FlushDuration.Observe(time.Since(start).Seconds())

	s.flushErrMu.Lock()
	s.flushErr = err
	s.flushErrMu.Unlock()

	if err != nil {
		metrics.FlushesTotal.WithLabelValues("error").Inc()
		slog.Error("Flush failed, in-memory state kept", "op", "flush", "error", err)
		return
	}
	metrics.FlushesTotal.WithLabelValues("ok").Inc()
}
