package prefs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/lemcache/internal/logger"
	"github.com/MrSnakeDoc/lemcache/internal/settings"
)

// writeOp is one durable write. value must not be shared with live state.
type writeOp struct {
	name  settings.Name
	value any
	scope settings.Scope

	key string // settings.SettingKey(name, scope), set by submit
	seq uint64
}

// queued is the latest value submitted for a key that has not landed yet.
type queued struct {
	value any
	seq   uint64
}

// writer performs preference writes in the background, in the order they were
// submitted. Callers never wait for a write and never see its error: a failed
// or dropped write is only logged.
//
// Until a write lands its value stays visible through lookup, so a read
// issued after a write sees that write even while the durable store is
// still behind.
type writer struct {
	kv      settings.Store
	logger  logger.Logger
	timeout time.Duration

	mu        sync.Mutex // guards everything below and sends on queue
	closed    bool
	seq       uint64
	pending   map[string]queued
	submitted map[string]uint64 // key -> seq of its latest accepted write
	queue     chan writeOp
	done      chan struct{}
}

func newWriter(kv settings.Store, log logger.Logger, size int, timeout time.Duration) *writer {
	if size < 1 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	w := &writer{
		kv:        kv,
		logger:    log,
		timeout:   timeout,
		pending:   make(map[string]queued),
		submitted: make(map[string]uint64),
		queue:     make(chan writeOp, size),
		done:      make(chan struct{}),
	}
	go w.run()
	return w
}

// submit queues op without blocking.
func (w *writer) submit(op writeOp) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.logger.Debug("preference writer closed, dropping write",
			logger.String("setting", string(op.name)),
			logger.String("scope", op.scope.String()))
		return
	}

	w.seq++
	op.key = settings.SettingKey(op.name, op.scope)
	op.seq = w.seq

	select {
	case w.queue <- op:
		w.pending[op.key] = queued{value: op.value, seq: op.seq}
		w.submitted[op.key] = op.seq
	default:
		w.logger.Warn("preference write queue full, dropping write",
			logger.String("setting", string(op.name)),
			logger.String("scope", op.scope.String()),
			logger.Int("capacity", cap(w.queue)))
	}
}

func (w *writer) run() {
	defer close(w.done)
	for op := range w.queue {
		w.write(op)
	}
}

// lookup returns the value still queued for name/scope, if any, and the
// sequence number of the latest write accepted for it. A sequence that moved
// between two lookups means a write was submitted in between.
func (w *writer) lookup(name settings.Name, scope settings.Scope) (value any, isPending bool, seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := settings.SettingKey(name, scope)
	q, ok := w.pending[key]
	return q.value, ok, w.submitted[key]
}

func (w *writer) write(op writeOp) {
	defer w.landed(op)

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.kv.Set(ctx, op.name, op.value, op.scope); err != nil {
		w.logger.Warn("failed to persist preference",
			logger.String("setting", string(op.name)),
			logger.String("scope", op.scope.String()),
			logger.Error(err))
		return
	}
	w.logger.Debug("preference persisted",
		logger.String("setting", string(op.name)),
		logger.String("scope", op.scope.String()))
}

// landed drops the queued value of op unless a newer write replaced it.
// A failed write is dropped too: reads fall back to the durable value.
func (w *writer) landed(op writeOp) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if q, ok := w.pending[op.key]; ok && q.seq == op.seq {
		delete(w.pending, op.key)
	}
}

// close stops accepting writes and waits for the queued ones to land, or for
// ctx to end. Calling it twice is safe.
func (w *writer) close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("pending preference writes abandoned"), ctx.Err())
	}
}
