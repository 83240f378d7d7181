package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	"github.com/compozy/listview/pkg/config"
	"github.com/compozy/listview/pkg/logger"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultBackoff    = 200 * time.Millisecond
	defaultMaxBackoff = 5 * time.Second
	defaultCacheTTL   = 5 * time.Minute
	maxCacheBytes     = 32 << 20
)

// Page is one slice of the remote catalog.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Limit int `json:"limit"`
	Skip  int `json:"skip"`
}

// Options configures a Fetcher.
type Options struct {
	BaseURL    string
	Path       string
	ItemsPath  string
	TotalPath  string
	Timeout    time.Duration
	MaxRetries uint64
	Backoff    time.Duration
	Cache      bool
	CacheTTL   time.Duration
}

// OptionsFromConfig maps the remote configuration section onto Options.
func OptionsFromConfig(cfg *config.RemoteConfig) Options {
	return Options{
		BaseURL:    cfg.BaseURL,
		Path:       cfg.ProductsPath,
		ItemsPath:  cfg.ItemsPath,
		TotalPath:  cfg.TotalPath,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Cache:      cfg.Cache,
	}
}

// Fetcher requests pages of T from a JSON endpoint taking limit and skip
// query parameters.
type Fetcher[T any] struct {
	client *resty.Client
	opts   Options
	cache  *ristretto.Cache[string, []byte]
}

func NewFetcher[T any](opts Options) (*Fetcher[T], error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	f := &Fetcher[T]{
		client: resty.New().
			SetBaseURL(opts.BaseURL).
			SetTimeout(opts.Timeout).
			SetHeader("Accept", "application/json"),
		opts: opts,
	}
	if opts.Cache {
		cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
			NumCounters: 10_000,
			MaxCost:     maxCacheBytes,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// Close releases the response cache.
func (f *Fetcher[T]) Close() {
	if f.cache != nil {
		f.cache.Close()
	}
}

// FetchPage requests `limit` records starting at `skip`. Transport errors,
// 5xx, 408 and 429 responses are retried with exponential backoff.
func (f *Fetcher[T]) FetchPage(ctx context.Context, limit, skip int) (Page[T], error) {
	log := logger.FromContext(ctx)
	if limit < 1 || skip < 0 {
		return Page[T]{}, &FetchError{URL: f.opts.Path, Limit: limit, Skip: skip, Err: errors.New("limit must be positive and skip non-negative")}
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("skip", strconv.Itoa(skip))
	cacheKey := f.opts.BaseURL + f.opts.Path + "?" + params.Encode()
	if f.cache != nil {
		if body, ok := f.cache.Get(cacheKey); ok {
			log.Debug("Remote page served from cache", "url", cacheKey)
			return f.decode(body, limit, skip)
		}
	}
	backoff := retry.WithMaxRetries(f.opts.MaxRetries, retry.WithCappedDuration(defaultMaxBackoff, retry.NewExponential(f.opts.Backoff)))
	var body []byte
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		resp, err := f.client.R().
			SetContext(ctx).
			SetQueryParamsFromValues(params).
			Get(f.opts.Path)
		if err != nil {
			ferr := &FetchError{URL: cacheKey, Limit: limit, Skip: skip, Err: err}
			if ctx.Err() != nil {
				return ferr
			}
			log.Warn("Remote fetch failed; retrying", "url", cacheKey, "attempt", attempt, "error", err)
			return retry.RetryableError(ferr)
		}
		if resp.IsError() {
			ferr := &FetchError{
				URL:        cacheKey,
				Limit:      limit,
				Skip:       skip,
				StatusCode: resp.StatusCode(),
				Err:        errors.New(strings.TrimSpace(resp.Status())),
			}
			if ferr.Retryable() {
				log.Warn("Remote fetch returned retryable status", "url", cacheKey, "status", resp.StatusCode(), "attempt", attempt)
				return retry.RetryableError(ferr)
			}
			return ferr
		}
		body = resp.Body()
		return nil
	})
	if err != nil {
		var ferr *FetchError
		if errors.As(err, &ferr) {
			return Page[T]{}, ferr
		}
		return Page[T]{}, &FetchError{URL: cacheKey, Limit: limit, Skip: skip, Err: err}
	}
	page, err := f.decode(body, limit, skip)
	if err != nil {
		return Page[T]{}, err
	}
	if f.cache != nil {
		f.cache.SetWithTTL(cacheKey, body, int64(len(body)), f.opts.CacheTTL)
		f.cache.Wait()
	}
	log.Debug("Remote page fetched", "url", cacheKey, "items", len(page.Items), "total", page.Total)
	return page, nil
}

func (f *Fetcher[T]) decode(body []byte, limit, skip int) (Page[T], error) {
	fail := func(err error) (Page[T], error) {
		return Page[T]{}, &FetchError{URL: f.opts.Path, Limit: limit, Skip: skip, Err: err}
	}
	if !gjson.ValidBytes(body) {
		return fail(errors.New("response is not valid JSON"))
	}
	items := gjson.ParseBytes(body)
	if f.opts.ItemsPath != "" {
		items = gjson.GetBytes(body, f.opts.ItemsPath)
	}
	if !items.IsArray() {
		return fail(fmt.Errorf("no record array at %q", f.opts.ItemsPath))
	}
	var records []T
	if err := json.Unmarshal([]byte(items.Raw), &records); err != nil {
		return fail(fmt.Errorf("decode records: %w", err))
	}
	if records == nil {
		records = []T{}
	}
	total := skip + len(records)
	if f.opts.TotalPath != "" {
		if t := gjson.GetBytes(body, f.opts.TotalPath); t.Exists() && t.Type == gjson.Number {
			total = int(t.Int())
		}
	}
	return Page[T]{Items: records, Total: total, Limit: limit, Skip: skip}, nil
}
