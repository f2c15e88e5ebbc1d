// Package dbtest starts a throwaway PostgreSQL for store integration tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/noah-isme/kodeit-calculator/internal/platform/database"
	"github.com/noah-isme/kodeit-calculator/internal/platform/migrations"
)

// Image is the PostgreSQL image used by the integration tests.
const Image = "postgres:16-alpine"

// Postgres returns a migrated pool on a fresh container. The test is skipped
// in -short mode or when no container runtime is reachable.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, Image,
		postgres.WithDatabase("kodeit"),
		postgres.WithUsername("kodeit"),
		postgres.WithPassword("kodeit"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	if err := migrations.Up(dsn, zerolog.Nop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := database.New(ctx, dsn, database.Options{MaxConns: 4})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
