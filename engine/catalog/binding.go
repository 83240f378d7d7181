package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/listview"
	"github.com/compozy/listview/engine/query"
	"github.com/compozy/listview/engine/remote"
	"github.com/compozy/listview/pkg/logger"
)

// localDef declares a persisted list. prepare fills server-assigned fields
// of a record about to be created. Clocked schemas derive fields from the
// current time, so their views are not memoized.
type localDef[T any] struct {
	kind     string
	slot     string
	position collection.InsertPosition
	defaults query.Descriptor
	clocked  bool
	schema   func(deps Deps) *query.Schema[T]
	seed     func(now time.Time) []T
	prepare  func(rec *T, existing collection.Collection[T], now time.Time)
}

type binding[T any] struct {
	kind    string
	schema  *query.Schema[T]
	ctrl    *listview.Controller[T]
	prepare func(rec *T, existing collection.Collection[T], now time.Time)
	clock   func() time.Time
	fetcher *remote.Fetcher[T]
}

func openLocal[T any](ctx context.Context, deps Deps, def localDef[T], validate *validator.Validate) (List, error) {
	if deps.Slots == nil {
		return nil, fmt.Errorf("%s: slot store is required", def.kind)
	}
	schema := def.schema(deps).WithLocale(deps.Locale)
	opts := []collection.Option[T]{collection.WithInsertPosition[T](def.position)}
	if validate != nil {
		opts = append(opts, collection.WithValidator[T](validate))
	}
	store, err := collection.New(deps.Slots, schema.ID, opts...)
	if err != nil {
		return nil, err
	}
	memoSize := deps.MemoSize
	if def.clocked {
		memoSize = 0
	}
	ctrl, err := listview.New(schema,
		listview.WithStore(store, def.slot, def.seed(deps.now())),
		listview.WithPageSize[T](pageSize(deps)),
		listview.WithDefaults[T](def.defaults),
		listview.WithMemoSize[T](memoSize),
	)
	if err != nil {
		return nil, err
	}
	if _, err := ctrl.Mount(ctx); err != nil {
		return nil, err
	}
	return &binding[T]{
		kind:    def.kind,
		schema:  schema,
		ctrl:    ctrl,
		prepare: def.prepare,
		clock:   deps.now,
	}, nil
}

// remoteDef declares a list fed by the remote catalog.
type remoteDef[T any] struct {
	kind     string
	defaults query.Descriptor
	schema   func(deps Deps) *query.Schema[T]
}

func openRemote[T any](ctx context.Context, deps Deps, def remoteDef[T]) (List, error) {
	schema := def.schema(deps).WithLocale(deps.Locale)
	fetcher, err := remote.NewFetcher[T](deps.Remote)
	if err != nil {
		return nil, err
	}
	limit := deps.Limit
	if limit < 1 {
		limit = pageSize(deps)
	}
	loader, err := remote.NewLoader[T](fetcher, limit, remote.WithIdentity(schema.ID))
	if err != nil {
		fetcher.Close()
		return nil, err
	}
	ctrl, err := listview.New(schema,
		listview.WithLoader(loader),
		listview.WithPageSize[T](limit),
		listview.WithDefaults[T](def.defaults),
		listview.WithMemoSize[T](deps.MemoSize),
	)
	if err != nil {
		fetcher.Close()
		return nil, err
	}
	b := &binding[T]{kind: def.kind, schema: schema, ctrl: ctrl, clock: deps.now, fetcher: fetcher}
	_, err = ctrl.Mount(ctx)
	return b, err
}

func pageSize(deps Deps) int {
	if deps.PageSize < 1 {
		return listview.DefaultPageSize
	}
	return deps.PageSize
}

func (b *binding[T]) Kind() string {
	return b.kind
}

func (b *binding[T]) Remote() bool {
	return b.ctrl.Remote()
}

func (b *binding[T]) Fields() []FieldInfo {
	return fieldInfo(b.schema)
}

func (b *binding[T]) Snapshot() View {
	return viewOf(b.ctrl.Snapshot())
}

func (b *binding[T]) Render(d query.Descriptor) (View, error) {
	snap, err := b.ctrl.Render(d)
	if err != nil {
		return View{}, err
	}
	return viewOf(snap), nil
}

func (b *binding[T]) Create(ctx context.Context, raw []byte) (View, error) {
	var rec T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return View{}, fmt.Errorf("%w: %v", collection.ErrInvalidRecord, err)
	}
	if b.prepare != nil {
		b.prepare(&rec, b.ctrl.Records(), b.clock())
	}
	logger.FromContext(ctx).Debug("Creating record", "kind", b.kind, "id", b.schema.ID(rec))
	snap, err := b.ctrl.CreateRecord(ctx, rec)
	return viewOf(snap), err
}

func (b *binding[T]) Update(ctx context.Context, id string, patch collection.Patch) (View, error) {
	snap, err := b.ctrl.UpdateRecord(ctx, id, patch)
	return viewOf(snap), err
}

func (b *binding[T]) Delete(ctx context.Context, id string) (View, error) {
	snap, err := b.ctrl.DeleteRecord(ctx, id)
	return viewOf(snap), err
}

func (b *binding[T]) LoadMore(ctx context.Context) (View, error) {
	snap, err := b.ctrl.LoadMore(ctx)
	return viewOf(snap), err
}

func (b *binding[T]) Options(field string) ([]string, error) {
	return b.ctrl.Options(field)
}

func (b *binding[T]) Bounds(field string) (lo, hi float64, ok bool, err error) {
	return b.ctrl.Bounds(field)
}

func (b *binding[T]) Close() {
	b.ctrl.Unmount()
	if b.fetcher != nil {
		b.fetcher.Close()
	}
}
