package collection

import "slices"

// Collection is an immutable ordered snapshot of records.
// Every mutation produces a new Collection.
type Collection[T any] struct {
	items []T
	id    func(T) string
}

// NewCollection copies items into a new snapshot.
func NewCollection[T any](id func(T) string, items []T) Collection[T] {
	return Collection[T]{items: slices.Clone(items), id: id}
}

func (c Collection[T]) Len() int {
	return len(c.items)
}

// Items returns a copy of the records in order.
func (c Collection[T]) Items() []T {
	if c.items == nil {
		return []T{}
	}
	return slices.Clone(c.items)
}

// View exposes the backing slice for read-only iteration. Callers must not
// modify it.
func (c Collection[T]) View() []T {
	return c.items
}

func (c Collection[T]) At(i int) T {
	return c.items[i]
}

func (c Collection[T]) IndexOf(id string) int {
	if c.id == nil {
		return -1
	}
	for i, rec := range c.items {
		if c.id(rec) == id {
			return i
		}
	}
	return -1
}

func (c Collection[T]) Find(id string) (T, bool) {
	if i := c.IndexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c Collection[T]) Contains(id string) bool {
	return c.IndexOf(id) >= 0
}

// IDs lists record ids in order.
func (c Collection[T]) IDs() []string {
	out := make([]string, len(c.items))
	for i, rec := range c.items {
		out[i] = c.id(rec)
	}
	return out
}

func (c Collection[T]) with(items []T) Collection[T] {
	return Collection[T]{items: items, id: c.id}
}

// dedupe keeps the first record for every id and drops records without one.
func dedupe[T any](id func(T) string, items []T) ([]T, int) {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	dropped := 0
	for _, rec := range items {
		k := id(rec)
		if k == "" {
			dropped++
			continue
		}
		if _, dup := seen[k]; dup {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out, dropped
}
