package store

import (
	"log/slog"
	"sync"
)

// flushTask carries either a snapshot to write or a barrier (snap nil) whose
// done channel is closed once everything queued before it reached the file.
type flushTask struct {
	snap Snapshot
	done chan struct{}
}

// flusher writes snapshots on a single background goroutine, in the order
// they were queued. When several snapshots are pending only the newest is
// written, so the file never moves backwards.
type flusher struct {
	queue chan flushTask
	write func(Snapshot)
	wg    sync.WaitGroup
}

func newFlusher(queueSize int, write func(Snapshot)) *flusher {
	if queueSize <= 0 {
		queueSize = 1
	}
	f := &flusher{
		queue: make(chan flushTask, queueSize),
		write: write,
	}
	f.start()
	return f
}

// start launches the background goroutine that drains the queue.
func (f *flusher) start() {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		slog.Debug("Flush worker started")
		for task := range f.queue {
			if !f.process(task) {
				break
			}
		}
		slog.Debug("Flush worker stopped")
	}()
}

// process writes task plus whatever else is already queued. It returns false
// once the queue has been closed and drained.
func (f *flusher) process(task flushTask) bool {
	latest := task.snap
	var waiters []chan struct{}
	if task.done != nil {
		waiters = append(waiters, task.done)
	}

	open := true
drain:
	for {
		select {
		case next, ok := <-f.queue:
			if !ok {
				open = false
				break drain
			}
			if next.snap != nil {
				latest = next.snap
			}
			if next.done != nil {
				waiters = append(waiters, next.done)
			}
		default:
			break drain
		}
	}

	if latest != nil {
		f.write(latest)
	}
	for _, done := range waiters {
		close(done)
	}
	return open
}

// enqueue blocks until the snapshot is queued. Callers hold the store write
// lock, which fixes the queue order to the mutation order.
func (f *flusher) enqueue(snap Snapshot) {
	f.queue <- flushTask{snap: snap}
}

// barrier queues a marker and returns a channel that is closed once every
// snapshot queued before it has been written.
func (f *flusher) barrier() <-chan struct{} {
	done := make(chan struct{})
	f.queue <- flushTask{done: done}
	return done
}

// stop closes the queue and waits for pending writes to finish.
func (f *flusher) stop() {
	close(f.queue)
	f.wg.Wait()
}
