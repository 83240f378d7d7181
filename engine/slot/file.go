package slot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"github.com/compozy/listview/engine/core"
	"github.com/compozy/listview/pkg/logger"
)

const (
	fileExt      = ".json"
	lockFileName = ".slots.lock"
)

// FileStore writes one <key>.json file per slot under a directory.
// Writes go through a temp file and a rename so readers never see partial data.
type FileStore struct {
	fs     afero.Fs
	dir    string
	mu     sync.RWMutex
	lock   *flock.Flock
	closed atomic.Bool
	done   chan struct{}
}

type FileOption func(*FileStore)

// WithFS swaps the filesystem, e.g. afero.NewMemMapFs() in tests.
func WithFS(fsys afero.Fs) FileOption {
	return func(s *FileStore) {
		s.fs = fsys
	}
}

// WithFileLock guards writes with an OS file lock shared across processes.
// Only meaningful on the OS filesystem.
func WithFileLock() FileOption {
	return func(s *FileStore) {
		s.lock = flock.New(filepath.Join(s.dir, lockFileName))
	}
}

func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("file store: directory is required")
	}
	s := &FileStore{fs: afero.NewOsFs(), dir: filepath.Clean(dir), done: make(chan struct{})}
	for _, o := range opts {
		o(s)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create directory: %w", err)
	}
	return s, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkCall(ctx, key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("file store: read %s: %w", key, err)
	}
	return data, nil
}

func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock(ctx)
	tmp, err := afero.TempFile(s.fs, s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("file store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("file store: write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("file store: sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("file store: close %s: %w", key, err)
	}
	if err := s.fs.Rename(tmpName, s.path(key)); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("file store: replace %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquire()
	if err != nil {
		return err
	}
	defer unlock(ctx)
	if err := s.fs.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file store: delete %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("file store: list directory: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		key := strings.TrimSuffix(name, fileExt)
		if ValidateKey(key) == nil {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *FileStore) Close() error {
	if !s.closed.Swap(true) {
		close(s.done)
	}
	return nil
}

// Watch follows one slot file, including writes made by other processes.
// Only the OS filesystem can be watched.
func (s *FileStore) Watch(ctx context.Context, key string) (<-chan Event, error) {
	if err := checkCall(ctx, key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if _, ok := s.fs.(*afero.OsFs); !ok {
		return nil, ErrWatchUnsupported
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("file store: create watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("file store: watch directory: %w", err)
	}
	ch := make(chan Event, defaultWatchBuffer)
	var last string
	if cur, err := afero.ReadFile(s.fs, s.path(key)); err == nil {
		last = core.ETagFromBytes(cur)
		ch <- Event{Type: EventPut, Key: key, ETag: last, At: time.Now().UTC()}
	}
	go s.forward(ctx, w, key, last, ch)
	return ch, nil
}

// forward translates directory notifications for key into slot events.
// Repeated notifications for unchanged content are collapsed by ETag.
func (s *FileStore) forward(ctx context.Context, w *fsnotify.Watcher, key, last string, ch chan<- Event) {
	defer close(ch)
	defer w.Close()
	log := logger.FromContext(ctx)
	target := s.path(key)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn("slot watch error", "key", key, "error", err)
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			evt := Event{Key: key, At: time.Now().UTC()}
			switch {
			case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
				data, err := afero.ReadFile(s.fs, target)
				if err != nil {
					continue
				}
				etag := core.ETagFromBytes(data)
				if etag == last {
					continue
				}
				evt.Type, evt.ETag, last = EventPut, etag, etag
			case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
				if last == "" {
					continue
				}
				evt.Type, evt.ETag, last = EventDelete, last, ""
			default:
				continue
			}
			select {
			case ch <- evt:
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}
}

func (s *FileStore) acquire() (func(context.Context), error) {
	if s.lock == nil {
		return func(context.Context) {}, nil
	}
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("file store: acquire lock: %w", err)
	}
	return func(ctx context.Context) {
		if err := s.lock.Unlock(); err != nil {
			logger.FromContext(ctx).Warn("failed to release slot lock", "path", s.lock.Path(), "error", err)
		}
	}, nil
}
