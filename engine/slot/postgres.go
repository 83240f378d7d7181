package slot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	// Register pgx stdlib driver for database/sql usage in migrations.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/compozy/listview/engine/core"
	"github.com/compozy/listview/pkg/logger"
)

const postgresPingTimeout = 3 * time.Second

// DB is the minimal database interface PostgresStore depends on (pgxpool or pgxmock).
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps slots in a Postgres table.
type PostgresStore struct {
	db     DB
	close  func()
	closed atomic.Bool
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres runs the embedded migrations and connects a pool to dsn.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: dsn is required")
	}
	if err := applyPostgresMigrations(ctx, dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	logger.FromContext(ctx).Info("Postgres slot store ready")
	s := NewPostgresStore(pool)
	s.close = pool.Close
	return s, nil
}

func applyPostgresMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("postgres: open db for migrations: %w", err)
	}
	defer db.Close()
	if err := applyMigrations(ctx, db, "postgres", "migrations/postgres"); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkCall(ctx, key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	query, args, err := buildSlotSelect(squirrel.Dollar, key)
	if err != nil {
		return nil, fmt.Errorf("postgres: build select: %w", err)
	}
	var value []byte
	if err := s.db.QueryRow(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if value == nil {
		value = []byte{}
	}
	query, args, err := buildSlotUpsert(squirrel.Dollar, key, value, core.ETagFromBytes(value), nowUTC())
	if err != nil {
		return fmt.Errorf("postgres: build upsert: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: set %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := checkCall(ctx, key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	query, args, err := buildSlotDelete(squirrel.Dollar, key)
	if err != nil {
		return fmt.Errorf("postgres: build delete: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: delete %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}
	query, args, err := buildSlotKeys(squirrel.Dollar)
	if err != nil {
		return nil, fmt.Errorf("postgres: build keys: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan keys: %w", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (s *PostgresStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.close != nil {
		s.close()
	}
	return nil
}
