package slot

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	sdk "github.com/echovault/sugardb/sugardb"

	"github.com/compozy/listview/pkg/logger"
)

// SugarStore keeps slots in an embedded SugarDB instance. SugarDB offers
// no key iteration, so Keys reports ErrKeysUnsupported.
type SugarStore struct {
	db     *sdk.SugarDB
	prefix string
	owned  bool
	closed atomic.Bool
}

func NewSugarStore(db *sdk.SugarDB, prefix string) (*SugarStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sugardb instance cannot be nil")
	}
	if prefix == "" {
		prefix = "listview"
	}
	return &SugarStore{db: db, prefix: prefix}, nil
}

// OpenSugar starts an embedded SugarDB persisting under dataDir.
func OpenSugar(ctx context.Context, dataDir, prefix string) (*SugarStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sugardb data dir: %w", err)
	}
	conf := sdk.DefaultConfig()
	conf.DataDir = dataDir
	db, err := sdk.NewSugarDB(sdk.WithConfig(conf), sdk.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("sugardb init failed: %w", err)
	}
	s, err := NewSugarStore(db, prefix)
	if err != nil {
		return nil, err
	}
	s.owned = true
	logger.FromContext(ctx).With("slot_driver", "sugardb", "data_dir", dataDir).Info("SugarDB slot store ready")
	return s, nil
}

func (s *SugarStore) keyFor(key string) string {
	return s.prefix + ":slot:" + key
}

func (s *SugarStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkCall(ctx, key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	vals, err := s.db.MGet(s.keyFor(key))
	if err != nil {
		return nil, fmt.Errorf("sugardb: get %s: %w", key, err)
	}
	if len(vals) == 0 || isSugarNil(vals[0]) {
		return nil, ErrNotFound
	}
	return []byte(vals[0]), nil
}

// isSugarNil matches the placeholders SugarDB returns for missing keys.
func isSugarNil(v string) bool {
	return v == "" || v == "nil" || v == "(nil)" || v == "<nil>"
}

func (s *SugarStore) Set(ctx context.Context, key string, value []byte) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if _, _, err := s.db.Set(s.keyFor(key), string(value), sdk.SETOptions{}); err != nil {
		return fmt.Errorf("sugardb: set %s: %w", key, err)
	}
	return nil
}

func (s *SugarStore) Delete(ctx context.Context, key string) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if _, err := s.db.Del(s.keyFor(key)); err != nil {
		return fmt.Errorf("sugardb: delete %s: %w", key, err)
	}
	return nil
}

func (s *SugarStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	return nil, ErrKeysUnsupported
}

func (s *SugarStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.owned {
		s.db.ShutDown()
	}
	return nil
}
