package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and creates the PID tables.
// The returned cleanup function must be called after the test completes.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	createTables(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// createTables sets up the PID output schema. The DDL is inlined so the
// test package does not import the migrations package (which imports
// this one); it must stay in sync with
// internal/storage/migrations/postgres.
func createTables(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tof_event_time (
			run_number  INTEGER          NOT NULL,
			track_index BIGINT           NOT NULL,
			value       DOUBLE PRECISION NOT NULL,
			err         DOUBLE PRECISION NOT NULL,
			flags       SMALLINT         NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ      NOT NULL DEFAULT now(),
			PRIMARY KEY (run_number, track_index)
		)
	`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tof_nsigma (
			run_number  INTEGER          NOT NULL,
			track_index BIGINT           NOT NULL,
			species     SMALLINT         NOT NULL,
			resolution  DOUBLE PRECISION NOT NULL,
			nsigma      DOUBLE PRECISION NOT NULL,
			created_at  TIMESTAMPTZ      NOT NULL DEFAULT now(),
			PRIMARY KEY (run_number, track_index, species)
		)
	`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tof_beta (
			run_number  INTEGER          NOT NULL,
			track_index BIGINT           NOT NULL,
			beta        DOUBLE PRECISION NOT NULL,
			beta_err    DOUBLE PRECISION NOT NULL,
			created_at  TIMESTAMPTZ      NOT NULL DEFAULT now(),
			PRIMARY KEY (run_number, track_index)
		)
	`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tof_mass (
			run_number  INTEGER          NOT NULL,
			track_index BIGINT           NOT NULL,
			mass        DOUBLE PRECISION NOT NULL,
			created_at  TIMESTAMPTZ      NOT NULL DEFAULT now(),
			PRIMARY KEY (run_number, track_index)
		)
	`)
	require.NoError(t, err)
}
