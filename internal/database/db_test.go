package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
)

func memoryDSN() string {
	return "file:" + uuid.NewString() + "?mode=memory&cache=shared"
}

func TestMigrateSQLiteCreatesSchema(t *testing.T) {
	t.Parallel()

	db, dialect, err := Open(config.StoreConfig{Driver: config.StoreSQLite, SQLiteDSN: memoryDSN()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, DialectSQLite, dialect)

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, dialect))
	// Running again is a no-op.
	require.NoError(t, Migrate(ctx, db, dialect))

	for _, table := range []string{"reservations", "reservation_tables", "audit_log"} {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestOpenRejectsMemoryDriver(t *testing.T) {
	t.Parallel()

	_, _, err := Open(config.StoreConfig{Driver: config.StoreMemory})
	require.Error(t, err)
}

func TestMigrateUnknownDialect(t *testing.T) {
	t.Parallel()

	db, err := OpenSQLite(memoryDSN())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.Error(t, Migrate(context.Background(), db, Dialect("oracle")))
}
