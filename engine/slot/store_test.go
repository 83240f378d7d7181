package slot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	sdk "github.com/echovault/sugardb/sugardb"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/listview/pkg/config"
	"github.com/compozy/listview/pkg/logger"
)

func newTestContext(t *testing.T) context.Context {
	t.Helper()
	return logger.ContextWithLogger(t.Context(), logger.NewForTests())
}

type backend struct {
	name      string
	open      func(t *testing.T) Store
	keysUnsup bool
}

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, WithPrefix("test")), mr
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(_ *testing.T) Store { return NewMemoryStore() }},
		{name: "file", open: func(t *testing.T) Store {
			st, err := NewFileStore("/data/slots", WithFS(afero.NewMemMapFs()))
			require.NoError(t, err)
			return st
		}},
		{name: "file-os-locked", open: func(t *testing.T) Store {
			st, err := NewFileStore(t.TempDir(), WithFileLock())
			require.NoError(t, err)
			return st
		}},
		{name: "sqlite", open: func(t *testing.T) Store {
			st, err := OpenSQLite(newTestContext(t), filepath.Join(t.TempDir(), "slots.db"))
			require.NoError(t, err)
			return st
		}},
		{name: "redis", open: func(t *testing.T) Store {
			st, _ := newRedisTestStore(t)
			return st
		}},
		{name: "sugardb", keysUnsup: true, open: func(t *testing.T) Store {
			db, err := sdk.NewSugarDB()
			require.NoError(t, err)
			st, err := NewSugarStore(db, "test")
			require.NoError(t, err)
			return st
		}},
	}
}

func TestStoreContract(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Run("Should return ErrNotFound for a missing slot", func(t *testing.T) {
				ctx := newTestContext(t)
				st := b.open(t)
				defer st.Close()
				_, err := st.Get(ctx, "missing")
				require.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("Should round trip bytes and overwrite", func(t *testing.T) {
				ctx := newTestContext(t)
				st := b.open(t)
				defer st.Close()
				require.NoError(t, st.Set(ctx, "swapListings", []byte(`[{"id":"1"}]`)))
				got, err := st.Get(ctx, "swapListings")
				require.NoError(t, err)
				assert.JSONEq(t, `[{"id":"1"}]`, string(got))
				require.NoError(t, st.Set(ctx, "swapListings", []byte(`[]`)))
				got, err = st.Get(ctx, "swapListings")
				require.NoError(t, err)
				assert.Equal(t, `[]`, string(got))
			})

			t.Run("Should delete idempotently", func(t *testing.T) {
				ctx := newTestContext(t)
				st := b.open(t)
				defer st.Close()
				require.NoError(t, st.Set(ctx, "theme", []byte(`"dark"`)))
				require.NoError(t, st.Delete(ctx, "theme"))
				require.NoError(t, st.Delete(ctx, "theme"))
				_, err := st.Get(ctx, "theme")
				require.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("Should list keys in order", func(t *testing.T) {
				ctx := newTestContext(t)
				st := b.open(t)
				defer st.Close()
				require.NoError(t, st.Set(ctx, "restrooms", []byte(`[]`)))
				require.NoError(t, st.Set(ctx, "leaderboard", []byte(`[]`)))
				keys, err := st.Keys(ctx)
				if b.keysUnsup {
					require.ErrorIs(t, err, ErrKeysUnsupported)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, []string{"leaderboard", "restrooms"}, keys)
			})

			t.Run("Should reject invalid keys", func(t *testing.T) {
				ctx := newTestContext(t)
				st := b.open(t)
				defer st.Close()
				require.ErrorIs(t, st.Set(ctx, "../escape", []byte("x")), ErrInvalidKey)
				_, err := st.Get(ctx, "")
				require.ErrorIs(t, err, ErrInvalidKey)
			})

			t.Run("Should fail after close", func(t *testing.T) {
				ctx := newTestContext(t)
				st := b.open(t)
				require.NoError(t, st.Close())
				require.NoError(t, st.Close())
				require.ErrorIs(t, st.Set(ctx, "theme", []byte("x")), ErrClosed)
			})
		})
	}
}

func TestValidateKey(t *testing.T) {
	t.Run("Should accept slot-like names", func(t *testing.T) {
		for _, k := range []string{"theme", "streetFoodVendors", "pets:favorites", "v1.products-cache_2"} {
			assert.NoError(t, ValidateKey(k), k)
		}
	})
	t.Run("Should reject unsafe names", func(t *testing.T) {
		for _, k := range []string{"", ".", "..", "a/b", "a b", "ключ", strings.Repeat("a", MaxKeyLength+1)} {
			assert.ErrorIs(t, ValidateKey(k), ErrInvalidKey, k)
		}
	})
}

func TestFileStore(t *testing.T) {
	t.Run("Should write one json file per slot and leave no temp files", func(t *testing.T) {
		ctx := newTestContext(t)
		fs := afero.NewMemMapFs()
		st, err := NewFileStore("/data", WithFS(fs))
		require.NoError(t, err)
		require.NoError(t, st.Set(ctx, "restrooms", []byte(`[]`)))
		entries, err := afero.ReadDir(fs, "/data")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "restrooms.json", entries[0].Name())
	})

	t.Run("Should ignore foreign files when listing", func(t *testing.T) {
		ctx := newTestContext(t)
		fs := afero.NewMemMapFs()
		st, err := NewFileStore("/data", WithFS(fs))
		require.NoError(t, err)
		require.NoError(t, afero.WriteFile(fs, "/data/notes.txt", []byte("x"), 0o644))
		require.NoError(t, st.Set(ctx, "theme", []byte(`"light"`)))
		keys, err := st.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"theme"}, keys)
	})

	t.Run("Should require a directory", func(t *testing.T) {
		_, err := NewFileStore("  ")
		require.Error(t, err)
	})
}

func TestWatch(t *testing.T) {
	recv := func(t *testing.T, ch <-chan Event) Event {
		t.Helper()
		select {
		case evt, ok := <-ch:
			require.True(t, ok)
			return evt
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}

	t.Run("Should stream memory store changes with primed value", func(t *testing.T) {
		ctx, cancel := context.WithCancel(newTestContext(t))
		defer cancel()
		st := NewMemoryStore()
		defer st.Close()
		require.NoError(t, st.Set(ctx, "theme", []byte(`"light"`)))
		ch, err := st.Watch(ctx, "theme")
		require.NoError(t, err)
		primed := recv(t, ch)
		assert.Equal(t, EventPut, primed.Type)
		require.NoError(t, st.Set(ctx, "theme", []byte(`"dark"`)))
		put := recv(t, ch)
		assert.NotEqual(t, primed.ETag, put.ETag)
		require.NoError(t, st.Delete(ctx, "theme"))
		del := recv(t, ch)
		assert.Equal(t, EventDelete, del.Type)
		assert.Equal(t, put.ETag, del.ETag)
	})

	t.Run("Should close memory watchers on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(newTestContext(t))
		st := NewMemoryStore()
		defer st.Close()
		ch, err := st.Watch(ctx, "theme")
		require.NoError(t, err)
		cancel()
		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("watch channel not closed")
		}
	})

	t.Run("Should stream redis changes over pub/sub", func(t *testing.T) {
		ctx, cancel := context.WithCancel(newTestContext(t))
		defer cancel()
		st, mr := newRedisTestStore(t)
		defer st.Close()
		ch, err := st.Watch(ctx, "leaderboard")
		require.NoError(t, err)
		require.NoError(t, st.Set(ctx, "leaderboard", []byte(`[]`)))
		evt := recv(t, ch)
		assert.Equal(t, EventPut, evt.Type)
		assert.Equal(t, "leaderboard", evt.Key)
		assert.True(t, mr.Exists("test:slot:leaderboard"))
		require.NoError(t, st.Delete(ctx, "leaderboard"))
		assert.Equal(t, EventDelete, recv(t, ch).Type)
	})

	t.Run("Should follow slot files on disk", func(t *testing.T) {
		ctx, cancel := context.WithCancel(newTestContext(t))
		defer cancel()
		dir := t.TempDir()
		st, err := NewFileStore(dir)
		require.NoError(t, err)
		defer st.Close()
		ch, err := st.Watch(ctx, "theme")
		require.NoError(t, err)
		other, err := NewFileStore(dir)
		require.NoError(t, err)
		defer other.Close()
		require.NoError(t, other.Set(ctx, "theme", []byte(`"dark"`)))
		require.NoError(t, other.Set(ctx, "favorites", []byte(`[]`)))
		put := recv(t, ch)
		assert.Equal(t, EventPut, put.Type)
		assert.Equal(t, "theme", put.Key)
		require.NoError(t, other.Delete(ctx, "theme"))
		del := recv(t, ch)
		assert.Equal(t, EventDelete, del.Type)
		assert.Equal(t, put.ETag, del.ETag)
	})

	t.Run("Should close file watchers when the store closes", func(t *testing.T) {
		ctx := newTestContext(t)
		st, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		ch, err := st.Watch(ctx, "theme")
		require.NoError(t, err)
		require.NoError(t, st.Close())
		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(2 * time.Second):
			t.Fatal("watch channel not closed")
		}
	})

	t.Run("Should refuse to watch in-memory filesystems", func(t *testing.T) {
		st, err := NewFileStore("/slots", WithFS(afero.NewMemMapFs()))
		require.NoError(t, err)
		_, err = st.Watch(newTestContext(t), "theme")
		assert.ErrorIs(t, err, ErrWatchUnsupported)
	})
}

func TestOpen(t *testing.T) {
	t.Run("Should open the configured driver", func(t *testing.T) {
		ctx := newTestContext(t)
		cfg := config.Default().Storage
		cfg.Driver = DriverFile
		cfg.Dir = t.TempDir()
		st, err := Open(ctx, &cfg)
		require.NoError(t, err)
		defer st.Close()
		assert.IsType(t, &FileStore{}, st)

		cfg.Driver = DriverMemory
		mem, err := Open(ctx, &cfg)
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, mem)
	})

	t.Run("Should open redis by address", func(t *testing.T) {
		ctx := newTestContext(t)
		mr := miniredis.RunT(t)
		cfg := config.Default().Storage
		cfg.Driver = DriverRedis
		cfg.RedisAddr = mr.Addr()
		st, err := Open(ctx, &cfg)
		require.NoError(t, err)
		defer st.Close()
		require.NoError(t, st.Set(ctx, "theme", []byte(`"dark"`)))
		assert.True(t, mr.Exists("listview:slot:theme"))
	})

	t.Run("Should reject unknown drivers", func(t *testing.T) {
		cfg := config.Default().Storage
		cfg.Driver = "mongo"
		_, err := Open(newTestContext(t), &cfg)
		require.Error(t, err)
	})
}
