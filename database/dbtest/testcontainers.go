// Package dbtest starts a migrated PostgreSQL container for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tclog "github.com/testcontainers/testcontainers-go/log"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/webspark/catalog-sync/database"
)

type nopLogger struct{}

func (*nopLogger) Printf(_ string, _ ...any) {}

var _ tclog.Logger = (*nopLogger)(nil)

const (
	dbName = "testdb"
	dbUser = "testuser"
	dbPass = "testpass"
)

// StartContainer runs an empty Postgres container and returns its connection string
func StartContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	postgresContainer, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPass),
		postgres.BasicWaitStrategies(),
		tc.WithLogger(&nopLogger{}),
	)
	require.NoError(t, err)

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	return connStr, func() {
		tc.CleanupContainer(t, postgresContainer)
	}
}

// SetupTestDB runs a Postgres container, applies all migrations and returns a pool
func SetupTestDB(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	connStr, stop := StartContainer(t, ctx)

	m, err := database.GetMigrate(connStr)
	require.NoError(t, err)
	require.NoError(t, database.MigrateUp(m))
	srcErr, dbErr := m.Close()
	require.NoError(t, srcErr)
	require.NoError(t, dbErr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	return pool, func() {
		pool.Close()
		stop()
	}
}
