package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/listview/engine/core"
	"github.com/compozy/listview/engine/slot"
	"github.com/compozy/listview/pkg/logger"
)

type InsertPosition int

const (
	Append InsertPosition = iota
	Prepend
)

type DuplicatePolicy int

const (
	Reject DuplicatePolicy = iota
	Overwrite
)

// Migration upgrades one persisted record from version v to v+1.
type Migration func(rec map[string]any) (map[string]any, error)

// envelope is the persisted shape of a collection. A bare JSON array is
// accepted on read as version 0.
type envelope struct {
	Version int             `json:"version"`
	Records json.RawMessage `json:"records"`
}

// Store persists collections of T into named slots.
type Store[T any] struct {
	slots      slot.Store
	id         func(T) string
	position   InsertPosition
	duplicates DuplicatePolicy
	version    int
	migrations map[int]Migration
	validate   *validator.Validate
	validates  bool
	meter      metric.Meter
	metrics    *storeMetrics
}

type Option[T any] func(*Store[T])

func WithInsertPosition[T any](p InsertPosition) Option[T] {
	return func(s *Store[T]) {
		s.position = p
	}
}

func WithDuplicatePolicy[T any](p DuplicatePolicy) Option[T] {
	return func(s *Store[T]) {
		s.duplicates = p
	}
}

// WithSchemaVersion sets the version written on save. Payloads with a
// higher version are treated as unreadable.
func WithSchemaVersion[T any](v int) Option[T] {
	return func(s *Store[T]) {
		s.version = v
	}
}

// WithMigration registers the upgrade from version `from` to from+1.
func WithMigration[T any](from int, fn Migration) Option[T] {
	return func(s *Store[T]) {
		s.migrations[from] = fn
	}
}

// WithValidator replaces the struct validator, e.g. to add custom tags.
func WithValidator[T any](v *validator.Validate) Option[T] {
	return func(s *Store[T]) {
		s.validate = v
	}
}

func WithMeter[T any](m metric.Meter) Option[T] {
	return func(s *Store[T]) {
		s.meter = m
	}
}

func New[T any](slots slot.Store, id func(T) string, opts ...Option[T]) (*Store[T], error) {
	if slots == nil {
		return nil, fmt.Errorf("slot store is required")
	}
	if id == nil {
		return nil, fmt.Errorf("id accessor is required")
	}
	s := &Store[T]{
		slots:      slots,
		id:         id,
		migrations: make(map[int]Migration),
		meter:      defaultMeter(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.validate == nil {
		s.validate = validator.New()
	}
	var zero T
	t := reflect.TypeOf(zero)
	s.validates = t != nil && (t.Kind() == reflect.Struct || (t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct))
	m, err := newStoreMetrics(s.meter)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	return s, nil
}

func (s *Store[T]) ID(rec T) string {
	return s.id(rec)
}

// Empty returns a collection with no records bound to this store's ids.
func (s *Store[T]) Empty() Collection[T] {
	return NewCollection(s.id, nil)
}

// Wrap builds a collection from records, dropping duplicate ids.
func (s *Store[T]) Wrap(records []T) Collection[T] {
	items, _ := dedupe(s.id, records)
	return Collection[T]{items: items, id: s.id}
}

// Load reads the slot, falling back to seed when it is missing, unreadable
// or written by a newer schema version. A missing slot is initialized with
// the seed so its ids are kept. It never fails.
func (s *Store[T]) Load(ctx context.Context, slotName string, seed []T) Collection[T] {
	log := logger.FromContext(ctx).With("slot", slotName)
	fallback := func() Collection[T] {
		cp, err := core.CloneSlice(seed)
		if err != nil {
			cp = seed
		}
		return s.Wrap(cp)
	}
	raw, err := s.slots.Get(ctx, slotName)
	if err != nil {
		if !errors.Is(err, slot.ErrNotFound) {
			log.Warn("Failed to read slot; using seed", "error", err)
			return fallback()
		}
		log.Debug("Slot is empty; saving seed")
		c := fallback()
		if c.Len() > 0 {
			// Save logs and counts its own failure; the seed still serves this load.
			_ = s.Save(ctx, slotName, c)
		}
		return c
	}
	records, err := s.decode(ctx, raw)
	if err != nil {
		log.Warn("Persisted collection is unreadable; using seed", "error", err)
		return fallback()
	}
	items, dropped := dedupe(s.id, records)
	if dropped > 0 {
		log.Warn("Dropped persisted records with duplicate or empty ids", "count", dropped)
	}
	return Collection[T]{items: items, id: s.id}
}

func (s *Store[T]) decode(ctx context.Context, raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	var env envelope
	switch trimmed[0] {
	case '[':
		env = envelope{Version: 0, Records: trimmed}
	case '{':
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		if len(env.Records) == 0 || bytes.Equal(env.Records, []byte("null")) {
			env.Records = []byte("[]")
		}
	default:
		return nil, fmt.Errorf("payload is neither an array nor an envelope")
	}
	if env.Version > s.version {
		return nil, fmt.Errorf("payload version %d is newer than supported version %d", env.Version, s.version)
	}
	body := env.Records
	if env.Version < s.version {
		migrated, err := s.migrate(ctx, env.Version, body)
		if err != nil {
			return nil, err
		}
		body = migrated
	}
	var records []T
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

func (s *Store[T]) migrate(ctx context.Context, from int, body []byte) ([]byte, error) {
	var recs []map[string]any
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("decode records for migration: %w", err)
	}
	for v := from; v < s.version; v++ {
		fn, ok := s.migrations[v]
		if !ok {
			continue
		}
		for i := range recs {
			next, err := fn(recs[i])
			if err != nil {
				return nil, fmt.Errorf("migrate record %d from version %d: %w", i, v, err)
			}
			recs[i] = next
		}
	}
	logger.FromContext(ctx).Info("Migrated persisted collection", "from", from, "to", s.version, "records", len(recs))
	out, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode migrated records: %w", err)
	}
	return out, nil
}

// Save writes the whole collection to the slot. Failures are returned as
// *PersistenceError.
func (s *Store[T]) Save(ctx context.Context, slotName string, c Collection[T]) error {
	start := time.Now()
	err := s.save(ctx, slotName, c)
	s.metrics.recordSave(ctx, slotName, time.Since(start), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to persist collection", "slot", slotName, "error", err)
		return &PersistenceError{Slot: slotName, Op: "save", Err: err}
	}
	return nil
}

func (s *Store[T]) save(ctx context.Context, slotName string, c Collection[T]) error {
	records, err := json.Marshal(c.Items())
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	payload, err := json.Marshal(envelope{Version: s.version, Records: records})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return s.slots.Set(ctx, slotName, payload)
}
