// Package pgtest provides a migrated Postgres pool for integration tests.
package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/salon-ledger/internal/db"
	"github.com/ayo6706/salon-ledger/internal/testutil/dblock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Pool connects to DATABASE_URL when set, otherwise starts a disposable
// Postgres container. Migrations are applied and the ledger tables emptied.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		release := dblock.Acquire()
		t.Cleanup(release)
	} else {
		if testing.Short() {
			t.Skip("Skipping integration test: DATABASE_URL not set and -short given")
		}
		testcontainers.SkipIfProviderIsNotHealthy(t)

		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("salon_ledger_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "start postgres container")
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	require.NoError(t, db.Migrate(dsn, nil))

	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE receitas_automaticas, lancamentos_contabeis, clients, audit_log, idempotency_keys`)
	require.NoError(t, err)
	return pool
}
