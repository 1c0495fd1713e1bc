// Package testsetup starts PostgreSQL containers for integration tests.
package testsetup

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var suppressedLogger = log.New(io.Discard, "", 0)

// postgresVersion reads PGFLUENT_POSTGRES_VERSION and defaults to 17.
func postgresVersion() string {
	if version := os.Getenv("PGFLUENT_POSTGRES_VERSION"); version != "" {
		return version
	}
	return "17"
}

// SkipUnlessIntegration skips t unless PGFLUENT_INTEGRATION is set.
func SkipUnlessIntegration(t testing.TB) {
	t.Helper()
	if os.Getenv("PGFLUENT_INTEGRATION") == "" {
		t.Skip("set PGFLUENT_INTEGRATION to run tests against a PostgreSQL container")
	}
}

// Postgres is a running PostgreSQL container.
type Postgres struct {
	Container testcontainers.Container
	DSN       string
	Pool      *pgxpool.Pool
}

// StartPostgres starts a container, runs setupSQL and connects a pool to it.
// The container is terminated when t finishes.
func StartPostgres(ctx context.Context, t testing.TB, setupSQL ...string) *Postgres {
	t.Helper()
	SkipUnlessIntegration(t)

	container, err := postgres.Run(ctx,
		"postgres:"+postgresVersion()+"-alpine",
		postgres.WithDatabase("pgfluent_test"),
		postgres.WithUsername("pgfluent"),
		postgres.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(suppressedLogger),
	)
	if err != nil {
		t.Fatalf("Failed to start container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, sql := range setupSQL {
		if _, err := pool.Exec(ctx, sql); err != nil {
			t.Fatalf("Failed to run setup SQL: %v", err)
		}
	}

	return &Postgres{Container: container, DSN: dsn, Pool: pool}
}
