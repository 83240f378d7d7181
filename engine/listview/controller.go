package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
	"github.com/compozy/listview/engine/remote"
	"github.com/compozy/listview/engine/slot"
	"github.com/compozy/listview/pkg/logger"
)

const (
	DefaultPageSize = 10
	defaultMemoSize = 64
	memorySlot      = "records"
)

// Controller owns one list: its records, its descriptor and the paging
// model. Local lists page by slicing; remote lists grow through a Loader and
// render every accumulated match on a single page.
type Controller[T any] struct {
	schema   *query.Schema[T]
	memo     *query.Memo[T]
	memoSize int
	defaults query.Descriptor

	store    *collection.Store[T]
	slotName string
	seed     []T
	loader   *remote.Loader[T]

	mu       sync.RWMutex
	records  collection.Collection[T]
	desc     query.Descriptor
	mounted  bool
	fetchErr error
	saveErr  error
	revision uint64
	dataRev  uint64

	subMu   sync.Mutex
	subs    map[int]func(Snapshot[T])
	nextSub int

	unmounted atomic.Bool
}

type Option[T any] func(*Controller[T])

// WithStore persists the list in slotName, falling back to seed on mount.
func WithStore[T any](store *collection.Store[T], slotName string, seed []T) Option[T] {
	return func(c *Controller[T]) {
		c.store = store
		c.slotName = slotName
		c.seed = seed
	}
}

// WithRecords starts a local list from records kept only in memory.
func WithRecords[T any](records []T) Option[T] {
	return func(c *Controller[T]) {
		c.seed = records
	}
}

// WithLoader switches the list to the remote load-more paging model.
func WithLoader[T any](loader *remote.Loader[T]) Option[T] {
	return func(c *Controller[T]) {
		c.loader = loader
	}
}

func WithPageSize[T any](n int) Option[T] {
	return func(c *Controller[T]) {
		c.defaults.PageSize = n
	}
}

// WithDefaults sets the descriptor the list starts from and returns to on
// ClearFilters.
func WithDefaults[T any](d query.Descriptor) Option[T] {
	return func(c *Controller[T]) {
		size := c.defaults.PageSize
		c.defaults = d
		if c.defaults.PageSize == 0 {
			c.defaults.PageSize = size
		}
	}
}

func WithMemoSize[T any](n int) Option[T] {
	return func(c *Controller[T]) {
		c.memoSize = n
	}
}

func New[T any](schema *query.Schema[T], opts ...Option[T]) (*Controller[T], error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: schema is required", query.ErrInvalidArgument)
	}
	c := &Controller[T]{
		schema:   schema,
		memoSize: defaultMemoSize,
		defaults: query.Descriptor{Page: 1, PageSize: DefaultPageSize},
		subs:     make(map[int]func(Snapshot[T])),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store != nil && c.loader != nil {
		return nil, fmt.Errorf("%w: a list uses either a store or a remote loader", query.ErrInvalidArgument)
	}
	if c.defaults.Page < 1 {
		c.defaults.Page = 1
	}
	if err := schema.Validate(c.defaults); err != nil {
		return nil, err
	}
	if c.store == nil && c.loader == nil {
		store, err := collection.New(slot.NewMemoryStore(), schema.ID)
		if err != nil {
			return nil, err
		}
		c.store = store
		c.slotName = memorySlot
	}
	memo, err := query.NewMemo(schema, c.memoSize)
	if err != nil {
		return nil, err
	}
	c.memo = memo
	c.desc = c.defaults
	c.records = collection.NewCollection(schema.ID, nil)
	return c, nil
}

// Remote reports whether the list uses the load-more paging model.
func (c *Controller[T]) Remote() bool {
	return c.loader != nil
}

// Mount loads the initial records: the persisted slot (seed on fallback) for
// local lists, the first page for remote ones. A failed fetch leaves the
// list empty in the error state and is also returned.
func (c *Controller[T]) Mount(ctx context.Context) (Snapshot[T], error) {
	if c.unmounted.Load() {
		return Snapshot[T]{}, ErrUnmounted
	}
	if c.loader == nil {
		records := c.store.Load(ctx, c.slotName, c.seed)
		c.mu.Lock()
		c.records = records
		c.mounted = true
		c.revision++
		c.dataRev++
		c.mu.Unlock()
		return c.publish(), nil
	}
	c.mu.Lock()
	c.mounted = false
	c.fetchErr = nil
	c.records = collection.NewCollection(c.schema.ID, nil)
	c.revision++
	c.dataRev++
	c.mu.Unlock()
	c.publish()
	c.loader.Reset()
	_, err := c.loader.Next(ctx)
	return c.afterFetch(ctx, err)
}

// LoadMore appends the next remote page. Calls are served in order, one
// request at a time.
func (c *Controller[T]) LoadMore(ctx context.Context) (Snapshot[T], error) {
	if c.unmounted.Load() {
		return Snapshot[T]{}, ErrUnmounted
	}
	if c.loader == nil {
		return c.Snapshot(), fmt.Errorf("%w: load more needs a remote list", query.ErrInvalidArgument)
	}
	_, err := c.loader.Next(ctx)
	return c.afterFetch(ctx, err)
}

func (c *Controller[T]) afterFetch(ctx context.Context, err error) (Snapshot[T], error) {
	log := logger.FromContext(ctx)
	if errors.Is(err, remote.ErrClosed) {
		return Snapshot[T]{}, ErrUnmounted
	}
	c.mu.Lock()
	if c.unmounted.Load() {
		c.mu.Unlock()
		log.Debug("Discarding fetch result after unmount")
		return Snapshot[T]{}, ErrUnmounted
	}
	c.mounted = true
	if err != nil {
		log.Warn("Remote fetch failed", "error", err)
		c.fetchErr = err
	} else {
		c.fetchErr = nil
		c.records = collection.NewCollection(c.schema.ID, c.loader.Items())
		c.dataRev++
	}
	c.revision++
	c.mu.Unlock()
	return c.publish(), err
}

func (c *Controller[T]) SetFilter(ctx context.Context, field, value string) (Snapshot[T], error) {
	return c.changeDescriptor(ctx, func(d query.Descriptor) query.Descriptor {
		return d.WithFilter(field, value).WithPage(1)
	})
}

func (c *Controller[T]) SetRange(ctx context.Context, field string, r query.Range) (Snapshot[T], error) {
	return c.changeDescriptor(ctx, func(d query.Descriptor) query.Descriptor {
		return d.WithRange(field, r).WithPage(1)
	})
}

func (c *Controller[T]) SetSearch(ctx context.Context, term string) (Snapshot[T], error) {
	return c.changeDescriptor(ctx, func(d query.Descriptor) query.Descriptor {
		return d.WithSearch(term).WithPage(1)
	})
}

func (c *Controller[T]) SetSort(ctx context.Context, key string, dir query.Direction) (Snapshot[T], error) {
	return c.changeDescriptor(ctx, func(d query.Descriptor) query.Descriptor {
		return d.WithSort(key, dir).WithPage(1)
	})
}

// SetPage moves a local list to page n. Remote lists have a single page.
func (c *Controller[T]) SetPage(ctx context.Context, n int) (Snapshot[T], error) {
	if c.loader != nil {
		if c.unmounted.Load() {
			return Snapshot[T]{}, ErrUnmounted
		}
		return c.Snapshot(), fmt.Errorf("%w: remote lists load more instead of paging", query.ErrInvalidArgument)
	}
	return c.changeDescriptor(ctx, func(d query.Descriptor) query.Descriptor {
		return d.WithPage(n)
	})
}

// ClearFilters returns to the default descriptor.
func (c *Controller[T]) ClearFilters(ctx context.Context) (Snapshot[T], error) {
	return c.changeDescriptor(ctx, func(d query.Descriptor) query.Descriptor {
		out, err := d.Cleared().Normalize(c.defaults)
		if err != nil {
			return c.defaults
		}
		return out
	})
}

// SetDescriptor replaces the whole descriptor, filling gaps from defaults.
func (c *Controller[T]) SetDescriptor(ctx context.Context, d query.Descriptor) (Snapshot[T], error) {
	next, err := d.Normalize(c.defaults)
	if err != nil {
		return c.Snapshot(), err
	}
	return c.changeDescriptor(ctx, func(query.Descriptor) query.Descriptor {
		return next
	})
}

func (c *Controller[T]) changeDescriptor(ctx context.Context, fn func(query.Descriptor) query.Descriptor) (Snapshot[T], error) {
	if c.unmounted.Load() {
		return Snapshot[T]{}, ErrUnmounted
	}
	c.mu.Lock()
	next := fn(c.desc)
	if err := c.schema.Validate(next); err != nil {
		c.mu.Unlock()
		logger.FromContext(ctx).Debug("Rejected list descriptor", "error", err)
		return c.Snapshot(), err
	}
	c.desc = next
	c.revision++
	c.mu.Unlock()
	return c.publish(), nil
}

func (c *Controller[T]) CreateRecord(ctx context.Context, rec T) (Snapshot[T], error) {
	return c.mutate(ctx, "create", func(cur collection.Collection[T]) (collection.Mutation[T], error) {
		return c.store.Create(ctx, c.slotName, cur, rec)
	})
}

func (c *Controller[T]) UpdateRecord(ctx context.Context, id string, patch collection.Patch) (Snapshot[T], error) {
	return c.mutate(ctx, "update", func(cur collection.Collection[T]) (collection.Mutation[T], error) {
		return c.store.Update(ctx, c.slotName, cur, id, patch)
	})
}

func (c *Controller[T]) DeleteRecord(ctx context.Context, id string) (Snapshot[T], error) {
	return c.mutate(ctx, "delete", func(cur collection.Collection[T]) (collection.Mutation[T], error) {
		return c.store.Delete(ctx, c.slotName, cur, id)
	})
}

// mutate commits a record change and clamps the page into the new range.
// A failed slot write keeps the change and surfaces as Snapshot.SaveErr.
func (c *Controller[T]) mutate(
	ctx context.Context,
	op string,
	fn func(collection.Collection[T]) (collection.Mutation[T], error),
) (Snapshot[T], error) {
	if c.unmounted.Load() {
		return Snapshot[T]{}, ErrUnmounted
	}
	if c.loader != nil {
		return c.Snapshot(), fmt.Errorf("%w: remote lists are read-only", query.ErrInvalidArgument)
	}
	log := logger.FromContext(ctx)
	c.mu.Lock()
	m, err := fn(c.records)
	if err != nil {
		c.mu.Unlock()
		log.Debug("List mutation rejected", "op", op, "error", err)
		return c.Snapshot(), err
	}
	c.records = m.Collection
	c.saveErr = m.SaveErr
	c.revision++
	c.dataRev++
	if matched, err := query.Match(c.schema, c.records.View(), c.desc); err == nil {
		pages := query.TotalPages(len(matched), c.desc.PageSize)
		c.desc = c.desc.WithPage(query.ClampPage(c.desc.EffectivePage(), pages))
	}
	c.mu.Unlock()
	if m.SaveErr != nil {
		log.Warn("List change kept in memory only", "op", op, "error", m.SaveErr)
	}
	return c.publish(), nil
}

// Snapshot renders the current state.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotFor(c.desc)
}

// Render shows the list through d without changing the controller's own
// descriptor. Gaps in d are filled from the defaults.
func (c *Controller[T]) Render(d query.Descriptor) (Snapshot[T], error) {
	if c.unmounted.Load() {
		return Snapshot[T]{}, ErrUnmounted
	}
	next, err := d.Normalize(c.defaults)
	if err != nil {
		return Snapshot[T]{}, err
	}
	if err := c.schema.Validate(next); err != nil {
		return Snapshot[T]{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotFor(next), nil
}

func (c *Controller[T]) snapshotFor(desc query.Descriptor) Snapshot[T] {
	snap := Snapshot[T]{
		Descriptor: desc,
		FetchErr:   c.fetchErr,
		SaveErr:    c.saveErr,
		Revision:   c.revision,
	}
	snap.View = c.viewFor(desc)
	switch {
	case !c.mounted:
		snap.Status = StatusLoading
	case c.fetchErr != nil && c.records.Len() == 0:
		snap.Status = StatusError
	case snap.View.TotalMatching == 0:
		snap.Status = StatusEmpty
	default:
		snap.Status = StatusReady
	}
	return snap
}

func (c *Controller[T]) viewFor(desc query.Descriptor) query.ViewResult[T] {
	empty := query.Paginate([]T{}, 1, desc.PageSize)
	if c.loader == nil {
		view, err := c.memo.Apply(c.dataRev, c.records.View(), desc)
		if err != nil {
			return empty
		}
		return view
	}
	matched, err := query.Match(c.schema, c.records.View(), desc)
	if err != nil {
		return empty
	}
	return query.ViewResult[T]{
		Records:       matched,
		TotalMatching: len(matched),
		TotalPages:    min(1, len(matched)),
		Page:          1,
		PageSize:      desc.PageSize,
		HasNextPage:   c.loader.HasMore(),
	}
}

// Records returns the full unfiltered collection.
func (c *Controller[T]) Records() collection.Collection[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records
}

func (c *Controller[T]) Descriptor() query.Descriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.desc
}

// Options lists the distinct values of field across every record, for
// filter dropdowns.
func (c *Controller[T]) Options(field string) ([]string, error) {
	recs := c.Records()
	return query.DistinctValues(c.schema, recs.View(), field)
}

// Bounds is the numeric span of field across every record.
func (c *Controller[T]) Bounds(field string) (lo, hi float64, ok bool, err error) {
	recs := c.Records()
	return query.NumericBounds(c.schema, recs.View(), field)
}

// Subscribe registers fn for every published snapshot. Snapshots may reach
// fn concurrently; Revision orders them.
func (c *Controller[T]) Subscribe(fn func(Snapshot[T])) (cancel func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Controller[T]) publish() Snapshot[T] {
	snap := c.Snapshot()
	if c.unmounted.Load() {
		return snap
	}
	c.subMu.Lock()
	subs := make([]func(Snapshot[T]), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

// Unmount ends the list's life. In-flight fetches are dropped and every
// later call returns ErrUnmounted.
func (c *Controller[T]) Unmount() {
	if c.unmounted.Swap(true) {
		return
	}
	if c.loader != nil {
		c.loader.Close()
	}
	c.subMu.Lock()
	clear(c.subs)
	c.subMu.Unlock()
	c.memo.Purge()
}

func (c *Controller[T]) Unmounted() bool {
	return c.unmounted.Load()
}
