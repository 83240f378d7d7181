package slot

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

const slotsTable = "slots"

func applyMigrations(ctx context.Context, db *sql.DB, dialect, dir string) error {
	gooseMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func buildSlotUpsert(ph squirrel.PlaceholderFormat, key string, value []byte, etag string, at any) (string, []any, error) {
	return squirrel.
		Insert(slotsTable).
		Columns("key", "value", "etag", "updated_at").
		Values(key, value, etag, at).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, etag = EXCLUDED.etag, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(ph).
		ToSql()
}

func buildSlotSelect(ph squirrel.PlaceholderFormat, key string) (string, []any, error) {
	return squirrel.Select("value").From(slotsTable).Where(squirrel.Eq{"key": key}).PlaceholderFormat(ph).ToSql()
}

func buildSlotDelete(ph squirrel.PlaceholderFormat, key string) (string, []any, error) {
	return squirrel.Delete(slotsTable).Where(squirrel.Eq{"key": key}).PlaceholderFormat(ph).ToSql()
}

func buildSlotKeys(ph squirrel.PlaceholderFormat) (string, []any, error) {
	return squirrel.Select("key").From(slotsTable).OrderBy("key").PlaceholderFormat(ph).ToSql()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
