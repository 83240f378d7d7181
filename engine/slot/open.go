package slot

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/compozy/listview/pkg/config"
	"github.com/compozy/listview/pkg/logger"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverSugarDB  = "sugardb"
)

// Open builds the slot backend selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.StorageConfig) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	log := logger.FromContext(ctx).With("slot_driver", cfg.Driver)
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case DriverMemory:
		st = NewMemoryStore()
	case DriverFile, "":
		var opts []FileOption
		if cfg.FileLock {
			opts = append(opts, WithFileLock())
		}
		st, err = NewFileStore(cfg.Dir, opts...)
	case DriverSQLite:
		st, err = OpenSQLite(ctx, cfg.SQLitePath)
	case DriverPostgres:
		st, err = OpenPostgres(ctx, cfg.PostgresDSN.Value())
	case DriverRedis:
		st, err = OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPass.Value(), cfg.RedisDB, WithPrefix(cfg.KeyPrefix))
	case DriverSugarDB:
		st, err = OpenSugar(ctx, filepath.Join(cfg.Dir, "sugardb"), cfg.KeyPrefix)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	log.Debug("Slot store opened")
	return st, nil
}
