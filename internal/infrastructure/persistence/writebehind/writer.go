// Package writebehind persists snapshots asynchronously. Callers hand over
// the full blob for a key and return immediately; one background worker
// writes the latest blob per key with retries.
package writebehind

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gd-practice/gd-coach/internal/infrastructure/persistence/kv"
	"github.com/gd-practice/gd-coach/pkg/logger"
	"github.com/gd-practice/gd-coach/pkg/retry"
)

// ErrClosed is returned by Submit and Delete after Close.
var ErrClosed = errors.New("writebehind: writer closed")

type op struct {
	value  []byte
	delete bool
}

// Stats counts what the worker has done since start.
type Stats struct {
	Written   int64
	Deleted   int64
	Coalesced int64
	Failed    int64
}

// Writer queues per-key writes. A later Submit or Delete for a key that
// is still queued replaces the queued op, so only the newest state is
// written.
type Writer struct {
	store        kv.Store
	retrier      *retry.Retrier
	log          *logger.Logger
	writeTimeout time.Duration

	mu      sync.Mutex
	pending map[string]op
	order   []string
	busy    bool
	closed  bool
	waiters []chan struct{}
	stats   Stats

	wake   chan struct{}
	stop   chan struct{}
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Writer.
type Option func(*Writer)

// WithRetrier replaces the default storage retrier.
func WithRetrier(r *retry.Retrier) Option {
	return func(w *Writer) { w.retrier = r }
}

// WithLogger sets the logger used for write failures.
func WithLogger(l *logger.Logger) Option {
	return func(w *Writer) { w.log = l }
}

// WithWriteTimeout bounds a single write including its retries.
func WithWriteTimeout(d time.Duration) Option {
	return func(w *Writer) { w.writeTimeout = d }
}

// New starts the worker goroutine.
func New(store kv.Store, opts ...Option) *Writer {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Writer{
		store:        store,
		writeTimeout: 30 * time.Second,
		pending:      make(map[string]op),
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.Discard()
	}
	if w.retrier == nil {
		w.retrier = retry.StorageRetrier(retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			w.log.Debug("retrying blob write",
				logger.Int("attempt", attempt),
				logger.Err(err),
				logger.Duration("delay", delay),
			)
		}))
	}

	go w.run()
	return w
}

// Submit queues value to be written under key. It never blocks on I/O.
func (w *Writer) Submit(key string, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	return w.enqueue(key, op{value: buf})
}

// Delete queues removal of key, ordered after earlier Submits for it.
func (w *Writer) Delete(key string) error {
	return w.enqueue(key, op{delete: true})
}

func (w *Writer) enqueue(key string, o op) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if _, queued := w.pending[key]; queued {
		w.stats.Coalesced++
	} else {
		w.order = append(w.order, key)
	}
	w.pending[key] = o
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Flush blocks until every op queued before the call has been attempted.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	if len(w.order) == 0 && !w.busy {
		w.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes, then stops the worker. Further Submits fail.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.Flush(ctx)
	w.cancel()
	close(w.stop)
	<-w.done
	return err
}

// Stats returns a copy of the counters.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Pending reports how many keys are queued.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			return
		}
	}
}

func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			w.busy = false
			waiters := w.waiters
			w.waiters = nil
			w.mu.Unlock()
			for _, ch := range waiters {
				close(ch)
			}
			return
		}
		key := w.order[0]
		w.order = w.order[1:]
		o := w.pending[key]
		delete(w.pending, key)
		w.busy = true
		w.mu.Unlock()

		err := w.apply(key, o)

		w.mu.Lock()
		switch {
		case err != nil:
			w.stats.Failed++
		case o.delete:
			w.stats.Deleted++
		default:
			w.stats.Written++
		}
		w.mu.Unlock()
	}
}

func (w *Writer) apply(key string, o op) error {
	ctx, cancel := context.WithTimeout(w.ctx, w.writeTimeout)
	defer cancel()

	start := time.Now()
	err := w.retrier.Do(ctx, func(ctx context.Context) error {
		if o.delete {
			return w.store.Delete(ctx, key)
		}
		return w.store.Set(ctx, key, o.value)
	})
	if err != nil {
		w.log.Warn("durable write failed",
			logger.StorageKey(key),
			logger.Bool("delete", o.delete),
			logger.Err(err),
		)
		return err
	}
	w.log.Debug("durable write",
		logger.StorageKey(key),
		logger.Bool("delete", o.delete),
		logger.Latency(time.Since(start)),
	)
	return nil
}
