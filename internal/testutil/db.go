package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/udisondev/voxpath/internal/db/migrations"
)

// SetupTestDB starts a PostgreSQL container, applies the migrations and
// returns a pool. The container is terminated when the test finishes.
// Tests are skipped under -short since they need Docker.
func SetupTestDB(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	if testing.Short() {
		tb.Skip("database tests need docker")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		tb.Fatalf("starting postgres container: %v", err)
	}

	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			tb.Logf("terminating postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("getting connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		tb.Fatalf("connecting to test db: %v", err)
	}
	tb.Cleanup(func() { pool.Close() })

	if err := migrate(ctx, pool); err != nil {
		tb.Fatalf("running migrations: %v", err)
	}

	return pool
}

// migrate applies the embedded migrations through a database/sql view of
// the pool's connection config.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	connStr := stdlib.RegisterConnConfig(pool.Config().ConnConfig)
	defer stdlib.UnregisterConnConfig(connStr)

	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("opening sql.DB: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	return nil
}
