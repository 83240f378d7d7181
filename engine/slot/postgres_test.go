package slot

import (
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/listview/engine/core"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresStore(mockPool), mockPool
}

func TestPostgresStore(t *testing.T) {
	t.Run("Should read a slot value", func(t *testing.T) {
		ctx := newTestContext(t)
		st, mock := newMockPostgres(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM slots WHERE key = $1")).
			WithArgs("restrooms").
			WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`[]`)))
		got, err := st.Get(ctx, "restrooms")
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(got))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should map no rows to ErrNotFound", func(t *testing.T) {
		ctx := newTestContext(t)
		st, mock := newMockPostgres(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM slots WHERE key = $1")).
			WithArgs("theme").
			WillReturnError(pgx.ErrNoRows)
		_, err := st.Get(ctx, "theme")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Should upsert with the value etag", func(t *testing.T) {
		ctx := newTestContext(t)
		st, mock := newMockPostgres(t)
		value := []byte(`[{"id":"1"}]`)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slots (key,value,etag,updated_at) VALUES ($1,$2,$3,$4) ON CONFLICT (key) DO UPDATE")).
			WithArgs("swapListings", value, core.ETagFromBytes(value), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		require.NoError(t, st.Set(ctx, "swapListings", value))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should wrap write failures", func(t *testing.T) {
		ctx := newTestContext(t)
		st, mock := newMockPostgres(t)
		mock.ExpectExec("INSERT INTO slots").WillReturnError(errors.New("disk full"))
		err := st.Set(ctx, "theme", []byte(`"dark"`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("Should delete by key", func(t *testing.T) {
		ctx := newTestContext(t)
		st, mock := newMockPostgres(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM slots WHERE key = $1")).
			WithArgs("theme").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		require.NoError(t, st.Delete(ctx, "theme"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should list keys", func(t *testing.T) {
		ctx := newTestContext(t)
		st, mock := newMockPostgres(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT key FROM slots ORDER BY key")).
			WillReturnRows(pgxmock.NewRows([]string{"key"}).AddRow("leaderboard").AddRow("theme"))
		keys, err := st.Keys(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"leaderboard", "theme"}, keys)
	})
}
