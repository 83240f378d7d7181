package query

import (
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memo caches Apply results per collection revision and descriptor.
// A size of zero disables caching.
type Memo[T any] struct {
	schema *Schema[T]
	cache  *lru.Cache[string, ViewResult[T]]
}

func NewMemo[T any](schema *Schema[T], size int) (*Memo[T], error) {
	m := &Memo[T]{schema: schema}
	if size <= 0 {
		return m, nil
	}
	cache, err := lru.New[string, ViewResult[T]](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create view cache: %w", err)
	}
	m.cache = cache
	return m, nil
}

// Apply returns the cached view for (revision, d) or computes and stores it.
// Callers must bump revision whenever records change.
func (m *Memo[T]) Apply(revision uint64, records []T, d Descriptor) (ViewResult[T], error) {
	if m.cache == nil {
		return Apply(m.schema, records, d)
	}
	key := fmt.Sprintf("%d:%s", revision, d.Fingerprint())
	if res, ok := m.cache.Get(key); ok {
		res.Records = slices.Clone(res.Records)
		return res, nil
	}
	res, err := Apply(m.schema, records, d)
	if err != nil {
		return ViewResult[T]{}, err
	}
	m.cache.Add(key, res)
	res.Records = slices.Clone(res.Records)
	return res, nil
}

func (m *Memo[T]) Len() int {
	if m.cache == nil {
		return 0
	}
	return m.cache.Len()
}

func (m *Memo[T]) Purge() {
	if m.cache != nil {
		m.cache.Purge()
	}
}
