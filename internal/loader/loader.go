package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrLoadCancelled is returned by Pending.Get when the request scope is
// cancelled while a batch is queued or in flight. It is distinguishable from
// a batch failure: errors.Is(err, ErrLoadCancelled) holds only for
// cancellation.
var ErrLoadCancelled = errors.New("load cancelled")

// BatchFunc performs one grouped lookup for a deduplicated key set.
// Keys missing from the returned map resolve as absent, not as errors.
// A returned error fails every key in the dispatch.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Pending is the future for one queued key. The zero value is not usable;
// Pendings are created by Loader.Load.
type Pending[V any] struct {
	dispatch func(context.Context)
	done     chan struct{}

	// set before done is closed, immutable afterwards
	val V
	ok  bool
	err error
}

// Get resolves the pending value, triggering the owning window's dispatch if
// it has not fired yet. It blocks until the batch completes or ctx is
// cancelled. ok=false with a nil error means the key had no value.
func (p *Pending[V]) Get(ctx context.Context) (V, bool, error) {
	p.dispatch(ctx)
	select {
	case <-p.done:
		return p.val, p.ok, p.err
	case <-ctx.Done():
		var zero V
		return zero, false, fmt.Errorf("%w: %v", ErrLoadCancelled, ctx.Err())
	}
}

// window is one dispatch window: the keys collected between two dispatches.
// Each window fires its batch at most once (guarded by once).
type window[K comparable, V any] struct {
	once    sync.Once
	keys    []K
	pending map[K]*Pending[V]
}

// Loader collects keys during one resolution pass and resolves them all with
// a single grouped call per window. Loaders are request-scoped: they memoize
// only within a window and share nothing across requests.
type Loader[K comparable, V any] struct {
	name    string
	batch   BatchFunc[K, V]
	onBatch func(name string, size int)

	mu  sync.Mutex
	win *window[K, V]
}

// New creates a loader around batch. onBatch is an optional metrics hook
// invoked once per dispatched window with the deduplicated key count.
func New[K comparable, V any](name string, batch BatchFunc[K, V], onBatch func(name string, size int)) *Loader[K, V] {
	return &Loader[K, V]{name: name, batch: batch, onBatch: onBatch}
}

// Load queues key into the current window and returns its future.
// Loading the same key twice within one window returns the same Pending:
// the external lookup fires at most once per key per window.
func (l *Loader[K, V]) Load(key K) *Pending[V] {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.win == nil {
		l.win = &window[K, V]{pending: make(map[K]*Pending[V])}
	}
	if p, ok := l.win.pending[key]; ok {
		return p
	}

	w := l.win
	p := &Pending[V]{done: make(chan struct{})}
	p.dispatch = func(ctx context.Context) { l.dispatchWindow(ctx, w) }
	w.pending[key] = p
	w.keys = append(w.keys, key)
	return p
}

// Dispatch flushes the current window, if any. Explicit dispatch is optional:
// the first Get on any pending value of the window triggers the same flush.
// After a dispatch, subsequent Loads start a fresh window; there is no
// cross-window cache, so the same key may be refetched later in the request.
func (l *Loader[K, V]) Dispatch(ctx context.Context) {
	l.mu.Lock()
	w := l.win
	l.mu.Unlock()
	if w != nil {
		l.dispatchWindow(ctx, w)
	}
}

func (l *Loader[K, V]) dispatchWindow(ctx context.Context, w *window[K, V]) {
	w.once.Do(func() {
		l.mu.Lock()
		if l.win == w {
			l.win = nil
		}
		l.mu.Unlock()

		if l.onBatch != nil {
			l.onBatch(l.name, len(w.keys))
		}

		type batchResult struct {
			values map[K]V
			err    error
		}
		resCh := make(chan batchResult, 1)
		go func() {
			values, err := l.batch(ctx, w.keys)
			resCh <- batchResult{values, err}
		}()

		// Resolve on whichever comes first: the batch result or scope
		// cancellation. On cancellation the in-flight call is abandoned
		// (its context is already done) and every pending future completes
		// promptly with a cancellation error instead of waiting it out.
		select {
		case res := <-resCh:
			if res.err != nil {
				w.fail(res.err)
				return
			}
			for key, p := range w.pending {
				p.val, p.ok = res.values[key]
				close(p.done)
			}
		case <-ctx.Done():
			w.fail(fmt.Errorf("%w: %v", ErrLoadCancelled, ctx.Err()))
		}
	})
}

// fail completes every pending future in the window with err.
func (w *window[K, V]) fail(err error) {
	for _, p := range w.pending {
		p.err = err
		close(p.done)
	}
}
