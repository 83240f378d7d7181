package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// Patch holds replacement values keyed by JSON field name.
type Patch map[string]any

// Mutation is the outcome of a committed change. SaveErr carries a
// non-fatal *PersistenceError when the slot write failed.
type Mutation[T any] struct {
	Collection Collection[T]
	SaveErr    error
}

// Create inserts rec at the configured position and persists the result.
func (s *Store[T]) Create(ctx context.Context, slotName string, c Collection[T], rec T) (Mutation[T], error) {
	next, err := s.create(c, rec)
	s.metrics.recordMutation(ctx, slotName, "create", err)
	if err != nil {
		return Mutation[T]{Collection: c}, err
	}
	return s.commit(ctx, slotName, next), nil
}

func (s *Store[T]) create(c Collection[T], rec T) (Collection[T], error) {
	id := s.id(rec)
	if id == "" {
		return c, fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if err := s.check(rec); err != nil {
		return c, err
	}
	if idx := c.IndexOf(id); idx >= 0 {
		if s.duplicates != Overwrite {
			return c, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		items := slices.Clone(c.items)
		items[idx] = rec
		return c.with(items), nil
	}
	items := make([]T, 0, len(c.items)+1)
	if s.position == Prepend {
		items = append(items, rec)
		items = append(items, c.items...)
	} else {
		items = append(items, c.items...)
		items = append(items, rec)
	}
	return c.with(items), nil
}

// Update merges patch into the record with id. Fields absent from patch
// keep their values.
func (s *Store[T]) Update(ctx context.Context, slotName string, c Collection[T], id string, patch Patch) (Mutation[T], error) {
	next, err := s.update(c, id, patch)
	s.metrics.recordMutation(ctx, slotName, "update", err)
	if err != nil {
		return Mutation[T]{Collection: c}, err
	}
	return s.commit(ctx, slotName, next), nil
}

func (s *Store[T]) update(c Collection[T], id string, patch Patch) (Collection[T], error) {
	idx := c.IndexOf(id)
	if idx < 0 {
		return c, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	merged, err := ApplyPatch(c.items[idx], patch)
	if err != nil {
		return c, err
	}
	if s.id(merged) != id {
		return c, fmt.Errorf("%w: %s", ErrImmutableID, id)
	}
	if err := s.check(merged); err != nil {
		return c, err
	}
	items := slices.Clone(c.items)
	items[idx] = merged
	return c.with(items), nil
}

// Replace swaps the record with the same id for rec.
func (s *Store[T]) Replace(ctx context.Context, slotName string, c Collection[T], rec T) (Mutation[T], error) {
	id := s.id(rec)
	idx := c.IndexOf(id)
	var err error
	if idx < 0 {
		err = fmt.Errorf("%w: %s", ErrNotFound, id)
	} else {
		err = s.check(rec)
	}
	s.metrics.recordMutation(ctx, slotName, "replace", err)
	if err != nil {
		return Mutation[T]{Collection: c}, err
	}
	items := slices.Clone(c.items)
	items[idx] = rec
	return s.commit(ctx, slotName, c.with(items)), nil
}

func (s *Store[T]) Delete(ctx context.Context, slotName string, c Collection[T], id string) (Mutation[T], error) {
	idx := c.IndexOf(id)
	var err error
	if idx < 0 {
		err = fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.metrics.recordMutation(ctx, slotName, "delete", err)
	if err != nil {
		return Mutation[T]{Collection: c}, err
	}
	items := slices.Delete(slices.Clone(c.items), idx, idx+1)
	return s.commit(ctx, slotName, c.with(items)), nil
}

func (s *Store[T]) commit(ctx context.Context, slotName string, next Collection[T]) Mutation[T] {
	return Mutation[T]{Collection: next, SaveErr: s.Save(ctx, slotName, next)}
}

func (s *Store[T]) check(rec T) error {
	if !s.validates {
		return nil
	}
	if err := s.validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidRecord, verrs.Error())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

// ApplyPatch overlays patch on the JSON form of rec and decodes the result
// into a fresh T.
func ApplyPatch[T any](rec T, patch Patch) (T, error) {
	if len(patch) == 0 {
		return rec, nil
	}
	var out T
	raw, err := json.Marshal(rec)
	if err != nil {
		return out, fmt.Errorf("%w: encode record: %v", ErrInvalidRecord, err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out, fmt.Errorf("%w: record is not an object", ErrInvalidRecord)
	}
	maps.Copy(fields, patch)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &out,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
			wholeNumberHook,
		),
	})
	if err != nil {
		return out, fmt.Errorf("failed to build patch decoder: %w", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return out, nil
}

// wholeNumberHook refuses fractional values for integer fields, matching how
// a JSON decode of the same record behaves.
func wholeNumberHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return data, nil
	}
	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}
	if f != math.Trunc(f) {
		return nil, fmt.Errorf("%v is not a whole number", f)
	}
	return data, nil
}
