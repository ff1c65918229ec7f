// Package dashboard keeps each role's order collection in step with the
// backend.
//
// A board fetches the whole collection on mount and after every mutation or
// push event; it never patches individual orders (the one exception is a
// supplier's newOrder, which is prepended until the next fetch). Views are
// filters over the last applied collection.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shashiranjanraj/aquaportal/pkg/logger"
	"github.com/shashiranjanraj/aquaportal/pkg/metrics"
)

var (
	// ErrStale means the fetch finished after a newer one was applied; its
	// result was dropped.
	ErrStale = errors.New("dashboard: stale fetch discarded")
	// ErrClosed means the feed was closed while the fetch was in flight.
	ErrClosed = errors.New("dashboard: feed closed")
)

// Fetcher loads a full collection.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Feed is a collection replaced wholesale by each applied fetch.
//
// Every Refresh takes the next generation number. A result is applied only if
// no later generation has been applied already, so overlapping refreshes can
// finish in any order without an older response overwriting a newer one.
// Close cancels in-flight fetches and discards anything that still lands.
type Feed[T any] struct {
	name  string
	fetch Fetcher[T]
	log   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	items   []T
	issued  uint64
	applied uint64
	loaded  bool
	closed  bool
}

func NewFeed[T any](name string, fetch Fetcher[T]) *Feed[T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed[T]{
		name:   name,
		fetch:  fetch,
		log:    logger.Component("feed").With("feed", name),
		ctx:    ctx,
		cancel: cancel,
		items:  []T{},
	}
}

// Refresh fetches and, unless superseded, applies the result. On error the
// collection is left unchanged.
func (f *Feed[T]) Refresh(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.issued++
	gen := f.issued
	f.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(f.ctx, cancel)
	defer stop()

	items, err := f.fetch(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.closed:
		metrics.FeedRefreshes.WithLabelValues(f.name, "stale").Inc()
		return ErrClosed
	case err != nil:
		metrics.FeedRefreshes.WithLabelValues(f.name, "failed").Inc()
		f.log.Warn("feed: refresh failed", "generation", gen, "error", err)
		return err
	case gen < f.applied:
		metrics.FeedRefreshes.WithLabelValues(f.name, "stale").Inc()
		f.log.Debug("feed: discarding stale result", "generation", gen, "applied", f.applied)
		return ErrStale
	}

	if items == nil {
		items = []T{}
	}
	f.items = items
	f.applied = gen
	f.loaded = true
	metrics.FeedRefreshes.WithLabelValues(f.name, "applied").Inc()
	return nil
}

// Items returns a copy of the current collection.
func (f *Feed[T]) Items() []T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]T, len(f.items))
	copy(out, f.items)
	return out
}

// Update applies a local change to the collection. The next applied fetch
// replaces it.
func (f *Feed[T]) Update(fn func([]T) []T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.items = fn(f.items)
}

// Loaded reports whether any fetch has been applied.
func (f *Feed[T]) Loaded() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loaded
}

// Generation returns the last applied generation.
func (f *Feed[T]) Generation() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.applied
}

// Close cancels in-flight fetches. Later results are discarded.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cancel()
}
