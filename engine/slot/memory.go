package slot

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/compozy/listview/engine/core"
	"github.com/compozy/listview/pkg/logger"
)

// MemoryStore keeps slots in process memory. Used by tests and the
// memory storage driver.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string][]byte
	watchers map[string][]*watcher
	closed   bool
}

type watcher struct {
	ch     chan Event
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte), watchers: make(map[string][]*watcher)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkCall(ctx, key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	v, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.items[key] = bytes.Clone(value)
	s.broadcastLocked(ctx, Event{Type: EventPut, Key: key, ETag: core.ETagFromBytes(value), At: time.Now().UTC()})
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	prev, ok := s.items[key]
	if !ok {
		return nil
	}
	delete(s.items, key)
	s.broadcastLocked(ctx, Event{Type: EventDelete, Key: key, ETag: core.ETagFromBytes(prev), At: time.Now().UTC()})
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Watch primes the subscriber with the current value, if any, then streams changes.
func (s *MemoryStore) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if err := checkCall(ctx, key); err != nil {
		return nil, err
	}
	ch := make(chan Event, defaultWatchBuffer)
	w := &watcher{ch: ch}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.watchers[key] = append(s.watchers[key], w)
	if v, ok := s.items[key]; ok {
		ch <- Event{Type: EventPut, Key: key, ETag: core.ETagFromBytes(v), At: time.Now().UTC()}
	}
	s.mu.Unlock()
	go func() { <-ctx.Done(); s.removeWatcher(key, w) }()
	return ch, nil
}

// Close drops all slots and closes watcher channels.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, list := range s.watchers {
		for _, w := range list {
			if !w.closed {
				close(w.ch)
				w.closed = true
			}
		}
	}
	s.watchers = make(map[string][]*watcher)
	s.items = make(map[string][]byte)
	return nil
}

func (s *MemoryStore) broadcastLocked(ctx context.Context, evt Event) {
	for _, w := range s.watchers[evt.Key] {
		select {
		case w.ch <- evt:
		default:
			logger.FromContext(ctx).Warn("watch channel full; dropping event", "key", evt.Key, "type", string(evt.Type))
		}
	}
}

func (s *MemoryStore) removeWatcher(key string, target *watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.watchers[key]
	if idx := slices.Index(list, target); idx >= 0 {
		list = slices.Delete(slices.Clone(list), idx, idx+1)
		if len(list) == 0 {
			delete(s.watchers, key)
		} else {
			s.watchers[key] = list
		}
	}
	if !target.closed {
		close(target.ch)
		target.closed = true
	}
}
