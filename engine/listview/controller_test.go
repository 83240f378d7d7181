package listview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
	"github.com/compozy/listview/engine/remote"
	"github.com/compozy/listview/engine/slot"
	"github.com/compozy/listview/pkg/logger"
)

type item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"     validate:"required"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

func itemSchema() *query.Schema[item] {
	return query.MustSchema(func(i item) string { return i.ID },
		query.StringField("name", query.RoleSearch|query.RoleSort, func(i item) string { return i.Name }),
		query.StringField("category", query.RoleFilter, func(i item) string { return i.Category }),
		query.NumberField("price", query.RoleSort|query.RoleRange, func(i item) float64 { return i.Price }),
	)
}

func newTestContext(t *testing.T) context.Context {
	t.Helper()
	return logger.ContextWithLogger(t.Context(), logger.NewForTests())
}

func makeItems(n int) []item {
	out := make([]item, n)
	for i := range n {
		cat := "food"
		if i%2 == 1 {
			cat = "drink"
		}
		out[i] = item{ID: fmt.Sprintf("i%02d", i), Name: fmt.Sprintf("Item %02d", i), Category: cat, Price: float64(i)}
	}
	return out
}

func ids(recs []item) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

type brokenSlots struct {
	*slot.MemoryStore
}

func (b brokenSlots) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func TestController_Local(t *testing.T) {
	t.Run("Should start loading and become ready on mount", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(5)), WithPageSize[item](2))
		require.NoError(t, err)
		assert.Equal(t, StatusLoading, c.Snapshot().Status)
		snap, err := c.Mount(ctx)
		require.NoError(t, err)
		assert.Equal(t, StatusReady, snap.Status)
		assert.Equal(t, []string{"i00", "i01"}, ids(snap.View.Records))
		assert.Equal(t, 3, snap.View.TotalPages)
		assert.True(t, snap.View.HasNextPage)
	})

	t.Run("Should reset to the first page when the filter changes", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(10)), WithPageSize[item](2))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		_, err = c.SetPage(ctx, 3)
		require.NoError(t, err)
		snap, err := c.SetFilter(ctx, "category", "drink")
		require.NoError(t, err)
		assert.Equal(t, 1, snap.View.Page)
		assert.Equal(t, []string{"i01", "i03"}, ids(snap.View.Records))
		assert.Equal(t, 5, snap.View.TotalMatching)
	})

	t.Run("Should report the empty state with its message", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(4)))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		snap, err := c.SetSearch(ctx, "nothing like this")
		require.NoError(t, err)
		assert.Equal(t, StatusEmpty, snap.Status)
		assert.Equal(t, MessageEmpty, snap.Message())
		assert.Empty(t, snap.View.Records)
	})

	t.Run("Should keep the previous descriptor on invalid input", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(4)))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		_, err = c.SetSort(ctx, "price", query.Desc)
		require.NoError(t, err)
		_, err = c.SetSort(ctx, "category", query.Asc)
		require.ErrorIs(t, err, query.ErrInvalidArgument)
		_, err = c.SetFilter(ctx, "color", "red")
		require.ErrorIs(t, err, query.ErrInvalidArgument)
		d := c.Descriptor()
		assert.Equal(t, "price", d.SortKey)
		assert.Equal(t, query.Desc, d.SortDirection)
	})

	t.Run("Should return to the defaults on clear", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(),
			WithRecords(makeItems(6)),
			WithDefaults[item](query.Descriptor{SortKey: "price", SortDirection: query.Desc, PageSize: 3}),
		)
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		_, err = c.SetFilter(ctx, "category", "food")
		require.NoError(t, err)
		_, err = c.SetRange(ctx, "price", query.AtMost(2))
		require.NoError(t, err)
		snap, err := c.ClearFilters(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Descriptor.Filters)
		assert.Empty(t, snap.Descriptor.Ranges)
		assert.Equal(t, "price", snap.Descriptor.SortKey)
		assert.Equal(t, []string{"i05", "i04", "i03"}, ids(snap.View.Records))
	})

	t.Run("Should serve an out of range page as empty", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(3)), WithPageSize[item](2))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		snap, err := c.SetPage(ctx, 9)
		require.NoError(t, err)
		assert.Empty(t, snap.View.Records)
		assert.Equal(t, 3, snap.View.TotalMatching)
	})

	t.Run("Should expose filter options and numeric bounds", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(5)))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		opts, err := c.Options("category")
		require.NoError(t, err)
		assert.Equal(t, []string{"food", "drink"}, opts)
		lo, hi, ok, err := c.Bounds("price")
		require.NoError(t, err)
		require.True(t, ok)
		assert.InDelta(t, 0.0, lo, 0)
		assert.InDelta(t, 4.0, hi, 0)
	})
}

func TestController_Mutations(t *testing.T) {
	t.Run("Should persist creates and restore them on the next mount", func(t *testing.T) {
		ctx := newTestContext(t)
		slots := slot.NewMemoryStore()
		store, err := collection.New(slots, func(i item) string { return i.ID },
			collection.WithInsertPosition[item](collection.Prepend))
		require.NoError(t, err)
		c, err := New(itemSchema(), WithStore(store, "items", makeItems(2)))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		snap, err := c.CreateRecord(ctx, item{ID: "new", Name: "Fresh", Category: "food", Price: 9})
		require.NoError(t, err)
		require.NoError(t, snap.SaveErr)
		assert.Equal(t, []string{"new", "i00", "i01"}, ids(snap.View.Records))

		again, err := New(itemSchema(), WithStore(store, "items", nil))
		require.NoError(t, err)
		restored, err := again.Mount(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"new", "i00", "i01"}, ids(restored.View.Records))
	})

	t.Run("Should reject duplicates and leave the list untouched", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(2)))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		before := c.Snapshot()
		snap, err := c.CreateRecord(ctx, item{ID: "i00", Name: "Dup"})
		require.ErrorIs(t, err, collection.ErrDuplicateID)
		assert.Equal(t, ids(before.View.Records), ids(snap.View.Records))
	})

	t.Run("Should merge patches and report unknown ids", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(2)))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		snap, err := c.UpdateRecord(ctx, "i01", collection.Patch{"price": 42.0})
		require.NoError(t, err)
		rec, ok := c.Records().Find("i01")
		require.True(t, ok)
		assert.InDelta(t, 42.0, rec.Price, 0)
		assert.Equal(t, "Item 01", rec.Name)
		assert.Equal(t, 2, snap.View.TotalMatching)
		_, err = c.UpdateRecord(ctx, "missing", collection.Patch{"price": 1.0})
		require.ErrorIs(t, err, collection.ErrNotFound)
	})

	t.Run("Should clamp the page after deleting the last record on it", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(5)), WithPageSize[item](2))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		_, err = c.SetPage(ctx, 3)
		require.NoError(t, err)
		snap, err := c.DeleteRecord(ctx, "i04")
		require.NoError(t, err)
		assert.Equal(t, 2, snap.View.Page)
		assert.Equal(t, []string{"i02", "i03"}, ids(snap.View.Records))
	})

	t.Run("Should keep the change when the slot write fails", func(t *testing.T) {
		ctx := newTestContext(t)
		store, err := collection.New(brokenSlots{slot.NewMemoryStore()}, func(i item) string { return i.ID })
		require.NoError(t, err)
		c, err := New(itemSchema(), WithStore(store, "items", makeItems(1)))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		snap, err := c.CreateRecord(ctx, item{ID: "x", Name: "Kept"})
		require.NoError(t, err)
		require.ErrorIs(t, snap.SaveErr, collection.ErrPersistence)
		assert.Equal(t, 2, snap.View.TotalMatching)
	})
}

func TestController_Subscribe(t *testing.T) {
	t.Run("Should deliver snapshots until cancelled", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(3)))
		require.NoError(t, err)
		var got []uint64
		cancel := c.Subscribe(func(s Snapshot[item]) { got = append(got, s.Revision) })
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		_, err = c.SetSearch(ctx, "item")
		require.NoError(t, err)
		cancel()
		_, err = c.SetSearch(ctx, "")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Less(t, got[0], got[1])
	})
}

type pagedSource struct {
	total int
	calls atomic.Int32
	fail  atomic.Bool
	gate  chan struct{}
}

func (p *pagedSource) FetchPage(ctx context.Context, limit, skip int) (remote.Page[item], error) {
	p.calls.Add(1)
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return remote.Page[item]{}, ctx.Err()
		}
	}
	if p.fail.Load() {
		return remote.Page[item]{}, &remote.FetchError{URL: "stub", Limit: limit, Skip: skip, StatusCode: 503, Err: errors.New("down")}
	}
	all := makeItems(p.total)
	end := min(skip+limit, p.total)
	return remote.Page[item]{Items: all[skip:end], Total: p.total, Limit: limit, Skip: skip}, nil
}

func newRemote(t *testing.T, src *pagedSource, limit int) *Controller[item] {
	t.Helper()
	loader, err := remote.NewLoader[item](src, limit)
	require.NoError(t, err)
	c, err := New(itemSchema(), WithLoader(loader), WithPageSize[item](limit))
	require.NoError(t, err)
	return c
}

func TestController_Remote(t *testing.T) {
	t.Run("Should show every loaded match on a single page", func(t *testing.T) {
		ctx := newTestContext(t)
		c := newRemote(t, &pagedSource{total: 10}, 4)
		snap, err := c.Mount(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.View.Records, 4)
		assert.True(t, snap.View.HasNextPage)
		snap, err = c.LoadMore(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.View.Records, 8)
		assert.Equal(t, 1, snap.View.Page)
		snap, err = c.LoadMore(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.View.Records, 10)
		assert.False(t, snap.View.HasNextPage)
	})

	t.Run("Should reject paging and record mutations", func(t *testing.T) {
		ctx := newTestContext(t)
		c := newRemote(t, &pagedSource{total: 10}, 4)
		_, err := c.Mount(ctx)
		require.NoError(t, err)
		_, err = c.SetPage(ctx, 2)
		require.ErrorIs(t, err, query.ErrInvalidArgument)
		_, err = c.CreateRecord(ctx, item{ID: "x", Name: "X"})
		require.ErrorIs(t, err, query.ErrInvalidArgument)
	})

	t.Run("Should enter the error state when the first fetch fails", func(t *testing.T) {
		ctx := newTestContext(t)
		src := &pagedSource{total: 10}
		src.fail.Store(true)
		c := newRemote(t, src, 4)
		snap, err := c.Mount(ctx)
		require.ErrorIs(t, err, remote.ErrFetch)
		assert.Equal(t, StatusError, snap.Status)
		assert.Equal(t, MessageError, snap.Message())
		assert.Empty(t, snap.View.Records)

		src.fail.Store(false)
		snap, err = c.Mount(ctx)
		require.NoError(t, err)
		assert.Equal(t, StatusReady, snap.Status)
	})

	t.Run("Should filter the accumulated records", func(t *testing.T) {
		ctx := newTestContext(t)
		c := newRemote(t, &pagedSource{total: 10}, 4)
		_, err := c.Mount(ctx)
		require.NoError(t, err)
		_, err = c.LoadMore(ctx)
		require.NoError(t, err)
		snap, err := c.SetFilter(ctx, "category", "drink")
		require.NoError(t, err)
		assert.Equal(t, []string{"i01", "i03", "i05", "i07"}, ids(snap.View.Records))
	})

	t.Run("Should apply concurrent load more calls in page order", func(t *testing.T) {
		ctx := newTestContext(t)
		c := newRemote(t, &pagedSource{total: 20}, 2)
		_, err := c.Mount(ctx)
		require.NoError(t, err)
		var wg sync.WaitGroup
		for range 9 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c.LoadMore(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		recs := c.Records().Items()
		require.Len(t, recs, 20)
		for i, r := range recs {
			assert.Equal(t, fmt.Sprintf("i%02d", i), r.ID)
		}
	})

	t.Run("Should drop a fetch that completes after unmount", func(t *testing.T) {
		ctx := newTestContext(t)
		src := &pagedSource{total: 10}
		c := newRemote(t, src, 4)
		_, err := c.Mount(ctx)
		require.NoError(t, err)
		src.gate = make(chan struct{})
		var published atomic.Int32
		c.Subscribe(func(Snapshot[item]) { published.Add(1) })
		done := make(chan error, 1)
		go func() {
			_, err := c.LoadMore(ctx)
			done <- err
		}()
		require.Eventually(t, func() bool { return src.calls.Load() == 2 }, time.Second, time.Millisecond)
		c.Unmount()
		close(src.gate)
		require.ErrorIs(t, <-done, ErrUnmounted)
		assert.Equal(t, int32(0), published.Load())
		assert.Len(t, c.Records().Items(), 4)
		_, err = c.SetSearch(ctx, "x")
		require.ErrorIs(t, err, ErrUnmounted)
	})
}

func TestNew(t *testing.T) {
	t.Run("Should refuse a store and a loader together", func(t *testing.T) {
		store, err := collection.New(slot.NewMemoryStore(), func(i item) string { return i.ID })
		require.NoError(t, err)
		loader, err := remote.NewLoader[item](&pagedSource{total: 1}, 1)
		require.NoError(t, err)
		_, err = New(itemSchema(), WithStore(store, "items", nil), WithLoader(loader))
		require.ErrorIs(t, err, query.ErrInvalidArgument)
	})

	t.Run("Should refuse a non-positive page size", func(t *testing.T) {
		_, err := New(itemSchema(), WithPageSize[item](0))
		require.ErrorIs(t, err, query.ErrInvalidArgument)
	})
}

func TestController_Render(t *testing.T) {
	t.Run("Should render a descriptor without changing the list state", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(6)), WithPageSize[item](2))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		snap, err := c.Render(query.Descriptor{Filters: map[string]string{"category": "food"}, Page: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"i04"}, ids(snap.View.Records))
		assert.Equal(t, 2, snap.Descriptor.PageSize)
		assert.Empty(t, c.Descriptor().Filters)
	})

	t.Run("Should reject unknown fields", func(t *testing.T) {
		ctx := newTestContext(t)
		c, err := New(itemSchema(), WithRecords(makeItems(2)))
		require.NoError(t, err)
		_, err = c.Mount(ctx)
		require.NoError(t, err)
		_, err = c.Render(query.Descriptor{SortKey: "weight"})
		require.ErrorIs(t, err, query.ErrInvalidArgument)
	})
}
