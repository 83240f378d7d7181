package remote

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/compozy/listview/pkg/logger"
)

// PageFetcher is the source a Loader pulls pages from.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, limit, skip int) (Page[T], error)
}

// Loader accumulates remote pages for "load more" lists. Next calls are
// serialized so pages are appended strictly in page order, one request in
// flight at a time.
type Loader[T any] struct {
	fetcher PageFetcher[T]
	limit   int

	idOf func(T) string

	seq sync.Mutex

	mu      sync.RWMutex
	items   []T
	seen    map[string]struct{}
	total   int
	pages   int
	started bool

	closed atomic.Bool
}

type LoaderOption[T any] func(*Loader[T])

// WithIdentity makes the loader drop records whose id was already loaded,
// which happens when the source shifts between page requests.
func WithIdentity[T any](id func(T) string) LoaderOption[T] {
	return func(l *Loader[T]) {
		l.idOf = id
	}
}

func NewLoader[T any](fetcher PageFetcher[T], limit int, opts ...LoaderOption[T]) (*Loader[T], error) {
	if fetcher == nil {
		return nil, fmt.Errorf("remote: fetcher is required")
	}
	if limit < 1 {
		return nil, fmt.Errorf("remote: page limit must be positive, got %d", limit)
	}
	l := &Loader[T]{fetcher: fetcher, limit: limit}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Next fetches the page after the last one loaded and appends it.
// Once everything is loaded it returns an empty page without a request.
// After Close it returns ErrClosed and discards any in-flight result.
func (l *Loader[T]) Next(ctx context.Context) (Page[T], error) {
	if l.closed.Load() {
		return Page[T]{}, ErrClosed
	}
	l.seq.Lock()
	defer l.seq.Unlock()
	if l.closed.Load() {
		return Page[T]{}, ErrClosed
	}
	l.mu.RLock()
	skip := l.pages * l.limit
	exhausted := l.started && skip >= l.total
	total := l.total
	l.mu.RUnlock()
	if exhausted {
		return Page[T]{Items: []T{}, Total: total, Limit: l.limit, Skip: skip}, nil
	}
	page, err := l.fetcher.FetchPage(ctx, l.limit, skip)
	if l.closed.Load() {
		logger.FromContext(ctx).Debug("Dropping page fetched after close", "skip", skip)
		return Page[T]{}, ErrClosed
	}
	if err != nil {
		return Page[T]{}, err
	}
	l.mu.Lock()
	fetched := len(page.Items)
	page.Items = l.fresh(page.Items)
	if dropped := fetched - len(page.Items); dropped > 0 {
		logger.FromContext(ctx).Debug("Dropped records already loaded", "skip", skip, "dropped", dropped)
	}
	l.items = append(l.items, page.Items...)
	l.total = page.Total
	l.pages++
	l.started = true
	// a short page means the source ran out, whatever total claimed
	if fetched < l.limit {
		l.total = len(l.items)
	}
	l.mu.Unlock()
	return page, nil
}

// fresh filters out records already loaded. Callers hold mu.
func (l *Loader[T]) fresh(items []T) []T {
	if l.idOf == nil {
		return items
	}
	if l.seen == nil {
		l.seen = make(map[string]struct{}, len(items))
	}
	kept := make([]T, 0, len(items))
	for _, it := range items {
		id := l.idOf(it)
		if _, dup := l.seen[id]; dup {
			continue
		}
		l.seen[id] = struct{}{}
		kept = append(kept, it)
	}
	return kept
}

// Items returns every record loaded so far, in page order.
func (l *Loader[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.items == nil {
		return []T{}
	}
	return slices.Clone(l.items)
}

// HasMore is true before the first page and while the next page offset is
// below total.
func (l *Loader[T]) HasMore() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return !l.started || l.pages*l.limit < l.total
}

func (l *Loader[T]) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

func (l *Loader[T]) Pages() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pages
}

func (l *Loader[T]) Limit() int {
	return l.limit
}

// Reset forgets loaded pages. It waits for an in-flight Next to finish.
func (l *Loader[T]) Reset() {
	l.seq.Lock()
	defer l.seq.Unlock()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.seen = nil
	l.total = 0
	l.pages = 0
	l.started = false
}

// Close marks the loader dead. Results of fetches still in flight are dropped.
func (l *Loader[T]) Close() {
	l.closed.Store(true)
}

func (l *Loader[T]) Closed() bool {
	return l.closed.Load()
}
