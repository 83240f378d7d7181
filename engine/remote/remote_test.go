package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/listview/pkg/config"
	"github.com/compozy/listview/pkg/logger"
)

type product struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

func newTestContext(t *testing.T) context.Context {
	t.Helper()
	return logger.ContextWithLogger(t.Context(), logger.NewForTests())
}

// catalogServer serves `total` products in the dummyjson shape.
func catalogServer(t *testing.T, total int, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		items := []product{}
		for i := skip; i < skip+limit && i < total; i++ {
			items = append(items, product{ID: i + 1, Title: fmt.Sprintf("Product %d", i+1), Price: float64(i + 1)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"products": items, "total": total, "skip": skip, "limit": limit})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOptions(baseURL string) Options {
	return Options{
		BaseURL:    baseURL,
		Path:       "/products",
		ItemsPath:  "products",
		TotalPath:  "total",
		Timeout:    2 * time.Second,
		MaxRetries: 3,
		Backoff:    time.Millisecond,
	}
}

func TestFetcher_FetchPage(t *testing.T) {
	t.Run("Should decode items and total through gjson paths", func(t *testing.T) {
		ctx := newTestContext(t)
		srv := catalogServer(t, 30, nil)
		f, err := NewFetcher[product](testOptions(srv.URL))
		require.NoError(t, err)
		page, err := f.FetchPage(ctx, 12, 12)
		require.NoError(t, err)
		require.Len(t, page.Items, 12)
		assert.Equal(t, 13, page.Items[0].ID)
		assert.Equal(t, 30, page.Total)
		assert.Equal(t, 12, page.Skip)
	})

	t.Run("Should treat the whole body as the array when no items path is set", func(t *testing.T) {
		ctx := newTestContext(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"id":1,"title":"A"},{"id":2,"title":"B"}]`))
		}))
		defer srv.Close()
		opts := testOptions(srv.URL)
		opts.ItemsPath, opts.TotalPath = "", ""
		f, err := NewFetcher[product](opts)
		require.NoError(t, err)
		page, err := f.FetchPage(ctx, 10, 0)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("Should retry server errors and then succeed", func(t *testing.T) {
		ctx := newTestContext(t)
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"products":[{"id":1}],"total":1}`))
		}))
		defer srv.Close()
		f, err := NewFetcher[product](testOptions(srv.URL))
		require.NoError(t, err)
		page, err := f.FetchPage(ctx, 12, 0)
		require.NoError(t, err)
		assert.Len(t, page.Items, 1)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("Should not retry client errors", func(t *testing.T) {
		ctx := newTestContext(t)
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()
		f, err := NewFetcher[product](testOptions(srv.URL))
		require.NoError(t, err)
		_, err = f.FetchPage(ctx, 12, 0)
		require.ErrorIs(t, err, ErrFetch)
		var ferr *FetchError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, http.StatusNotFound, ferr.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Should give up after the retry budget", func(t *testing.T) {
		ctx := newTestContext(t)
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()
		f, err := NewFetcher[product](testOptions(srv.URL))
		require.NoError(t, err)
		_, err = f.FetchPage(ctx, 12, 0)
		var ferr *FetchError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, http.StatusTooManyRequests, ferr.StatusCode)
		assert.Equal(t, int32(4), calls.Load())
	})

	t.Run("Should fail on malformed bodies", func(t *testing.T) {
		ctx := newTestContext(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"products": "nope"}`))
		}))
		defer srv.Close()
		f, err := NewFetcher[product](testOptions(srv.URL))
		require.NoError(t, err)
		_, err = f.FetchPage(ctx, 12, 0)
		require.ErrorIs(t, err, ErrFetch)
	})

	t.Run("Should serve repeated pages from the cache", func(t *testing.T) {
		ctx := newTestContext(t)
		var hits atomic.Int32
		srv := catalogServer(t, 30, &hits)
		opts := testOptions(srv.URL)
		opts.Cache = true
		f, err := NewFetcher[product](opts)
		require.NoError(t, err)
		defer f.Close()
		first, err := f.FetchPage(ctx, 12, 0)
		require.NoError(t, err)
		second, err := f.FetchPage(ctx, 12, 0)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("Should reject invalid paging arguments", func(t *testing.T) {
		f, err := NewFetcher[product](testOptions("http://127.0.0.1:1"))
		require.NoError(t, err)
		_, err = f.FetchPage(newTestContext(t), 0, 0)
		require.ErrorIs(t, err, ErrFetch)
	})

	t.Run("Should build options from configuration", func(t *testing.T) {
		opts := OptionsFromConfig(&config.Default().Remote)
		assert.Equal(t, "https://dummyjson.com", opts.BaseURL)
		assert.Equal(t, "products", opts.ItemsPath)
		assert.True(t, opts.Cache)
	})
}

// gatedFetcher answers pages with a per-page delay so later requests would
// finish first if they were allowed to run concurrently.
type gatedFetcher struct {
	total    int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	fail     atomic.Bool
	block    chan struct{}
}

func (g *gatedFetcher) FetchPage(ctx context.Context, limit, skip int) (Page[int], error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	if n > g.maxSeen.Load() {
		g.maxSeen.Store(n)
	}
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return Page[int]{}, ctx.Err()
		}
	}
	time.Sleep(time.Duration(5-skip/limit%5) * time.Millisecond)
	if g.fail.Load() {
		return Page[int]{}, &FetchError{URL: "stub", Limit: limit, Skip: skip, StatusCode: 500, Err: errors.New("boom")}
	}
	items := []int{}
	for i := skip; i < skip+limit && i < g.total; i++ {
		items = append(items, i)
	}
	return Page[int]{Items: items, Total: g.total, Limit: limit, Skip: skip}, nil
}

// shiftedFetcher serves pages from a source that gained one record at the
// head after the first page, so later pages repeat the previous last item.
type shiftedFetcher struct {
	total int
}

func (f *shiftedFetcher) FetchPage(_ context.Context, limit, skip int) (Page[int], error) {
	start := skip
	if skip > 0 {
		start = skip - 1
	}
	items := []int{}
	for i := start; i < start+limit && i < f.total; i++ {
		items = append(items, i)
	}
	return Page[int]{Items: items, Total: f.total, Limit: limit, Skip: skip}, nil
}

func TestLoader(t *testing.T) {
	t.Run("Should append concurrent requests strictly in page order", func(t *testing.T) {
		ctx := newTestContext(t)
		g := &gatedFetcher{total: 40}
		l, err := NewLoader[int](g, 4)
		require.NoError(t, err)
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := l.Next(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		items := l.Items()
		require.Len(t, items, 40)
		for i, v := range items {
			assert.Equal(t, i, v)
		}
		assert.Equal(t, int32(1), g.maxSeen.Load())
		assert.False(t, l.HasMore())
	})

	t.Run("Should report more until the total is reached", func(t *testing.T) {
		ctx := newTestContext(t)
		l, err := NewLoader[int](&gatedFetcher{total: 10}, 4)
		require.NoError(t, err)
		assert.True(t, l.HasMore())
		for range 3 {
			_, err := l.Next(ctx)
			require.NoError(t, err)
		}
		assert.False(t, l.HasMore())
		assert.Equal(t, 3, l.Pages())
		page, err := l.Next(ctx)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 3, l.Pages())
	})

	t.Run("Should keep state unchanged when a fetch fails", func(t *testing.T) {
		ctx := newTestContext(t)
		g := &gatedFetcher{total: 10}
		l, err := NewLoader[int](g, 4)
		require.NoError(t, err)
		_, err = l.Next(ctx)
		require.NoError(t, err)
		g.fail.Store(true)
		_, err = l.Next(ctx)
		require.ErrorIs(t, err, ErrFetch)
		assert.Len(t, l.Items(), 4)
		g.fail.Store(false)
		page, err := l.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, page.Skip)
	})

	t.Run("Should drop results that arrive after close", func(t *testing.T) {
		ctx := newTestContext(t)
		g := &gatedFetcher{total: 10, block: make(chan struct{})}
		l, err := NewLoader[int](g, 4)
		require.NoError(t, err)
		done := make(chan error, 1)
		go func() {
			_, err := l.Next(ctx)
			done <- err
		}()
		require.Eventually(t, func() bool { return g.inFlight.Load() == 1 }, time.Second, time.Millisecond)
		l.Close()
		close(g.block)
		require.ErrorIs(t, <-done, ErrClosed)
		assert.Empty(t, l.Items())
		_, err = l.Next(ctx)
		require.ErrorIs(t, err, ErrClosed)
	})

	t.Run("Should start over after reset", func(t *testing.T) {
		ctx := newTestContext(t)
		l, err := NewLoader[int](&gatedFetcher{total: 10}, 4)
		require.NoError(t, err)
		_, err = l.Next(ctx)
		require.NoError(t, err)
		l.Reset()
		assert.Empty(t, l.Items())
		assert.True(t, l.HasMore())
		page, err := l.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, page.Skip)
	})

	t.Run("Should drop records already loaded when pages shift", func(t *testing.T) {
		ctx := newTestContext(t)
		l, err := NewLoader[int](&shiftedFetcher{total: 10}, 4, WithIdentity(strconv.Itoa))
		require.NoError(t, err)
		_, err = l.Next(ctx)
		require.NoError(t, err)
		page, err := l.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 5, 6}, page.Items)
		_, err = l.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, l.Items())
		assert.False(t, l.HasMore())
	})

	t.Run("Should keep repeated records without an identity", func(t *testing.T) {
		ctx := newTestContext(t)
		l, err := NewLoader[int](&shiftedFetcher{total: 10}, 4)
		require.NoError(t, err)
		for range 2 {
			_, err = l.Next(ctx)
			require.NoError(t, err)
		}
		assert.Equal(t, []int{0, 1, 2, 3, 3, 4, 5, 6}, l.Items())
	})

	t.Run("Should validate construction", func(t *testing.T) {
		_, err := NewLoader[int](nil, 4)
		require.Error(t, err)
		_, err = NewLoader[int](&gatedFetcher{}, 0)
		require.Error(t, err)
	})
}
