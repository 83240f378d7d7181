package slot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/compozy/listview/engine/core"
	"github.com/compozy/listview/pkg/logger"
)

// RedisClient is the subset of go-redis used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
	Close() error
}

// RedisStore keeps slots as plain Redis strings and publishes changes on
// a per-slot channel.
type RedisStore struct {
	r      RedisClient
	prefix string
	scan   int64
	closed atomic.Bool
}

type RedisOption func(*RedisStore)

// WithPrefix sets the key namespace (default "listview").
func WithPrefix(p string) RedisOption {
	return func(s *RedisStore) {
		if p != "" {
			s.prefix = p
		}
	}
}

func NewRedisStore(client RedisClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{r: client, prefix: "listview", scan: 256}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OpenRedis dials addr and verifies the connection.
func OpenRedis(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	logger.FromContext(ctx).Info("Redis slot store ready", "addr", addr, "db", db)
	return NewRedisStore(client, opts...), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkCall(ctx, key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	bs, err := s.r.Get(ctx, s.keyFor(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis: get %s: %w", key, err)
	}
	return bs, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.r.Set(ctx, s.keyFor(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	s.publish(ctx, &Event{Type: EventPut, Key: key, ETag: core.ETagFromBytes(value), At: time.Now().UTC()})
	return nil
}

// deleteScript removes the key and returns its previous value so the
// delete event can carry the removed ETag.
const deleteScript = "local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v"

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	res, err := s.r.Eval(ctx, deleteScript, []string{s.keyFor(key)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("redis: delete %s: %w", key, err)
	}
	var prev []byte
	switch v := res.(type) {
	case nil:
		return nil
	case string:
		prev = []byte(v)
	case []byte:
		prev = v
	}
	s.publish(ctx, &Event{Type: EventDelete, Key: key, ETag: core.ETagFromBytes(prev), At: time.Now().UTC()})
	return nil
}

func (s *RedisStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	base := s.slotPrefix()
	var cursor uint64
	keys := make([]string, 0, 16)
	for {
		batch, next, err := s.r.Scan(ctx, cursor, base+"*", s.scan).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: scan: %w", err)
		}
		for _, full := range batch {
			keys = append(keys, strings.TrimPrefix(full, base))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

// Watch subscribes to changes of one slot and primes the channel with the
// current value when present.
func (s *RedisStore) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if err := checkCall(ctx, key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	log := logger.FromContext(ctx)
	ps := s.r.Subscribe(ctx, s.eventsChannel(key))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: subscribe failed: %w", err)
	}
	ch := make(chan Event, defaultWatchBuffer)
	if cur, err := s.Get(ctx, key); err == nil {
		ch <- Event{Type: EventPut, Key: key, ETag: core.ETagFromBytes(cur), At: time.Now().UTC()}
	}
	go func() {
		defer close(ch)
		defer func() { _ = ps.Close() }()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					log.Warn("event decode failed", "key", key, "error", err)
					continue
				}
				select {
				case ch <- evt:
				default:
					log.Warn("watch channel full; dropping event", "key", key)
				}
			}
		}
	}()
	return ch, nil
}

func (s *RedisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.r.Close()
}

func (s *RedisStore) publish(ctx context.Context, evt *Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := s.r.Publish(ctx, s.eventsChannel(evt.Key), payload).Err(); err != nil {
		logger.FromContext(ctx).Warn("publish slot event failed", "key", evt.Key, "type", string(evt.Type), "error", err)
	}
}

func (s *RedisStore) slotPrefix() string {
	return s.prefix + ":slot:"
}

func (s *RedisStore) keyFor(key string) string {
	return s.slotPrefix() + key
}

func (s *RedisStore) eventsChannel(key string) string {
	return s.prefix + ":events:" + key
}
