package integration

import (
	"context"
	"testing"
	"time"

	"portops/internal/config"
	"portops/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	Config    config.DatabaseConfig
}

// SetupTestDB starts a PostgreSQL container, connects through the production
// pool constructor and applies the schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	dbConfig := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  20,
		MinConnections:  2,
		MaxConnLifetime: 300,
	}

	logger := zerolog.Nop()
	pool, err := database.NewPool(ctx, dbConfig, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		Config:    dbConfig,
	}
}

// CleanupDB removes all orders and items.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "TRUNCATE order_items, orders"); err != nil {
		t.Fatalf("failed to clean tables: %v", err)
	}
}

// CountRows returns the number of orders and order items stored.
func CountRows(t *testing.T, pool *pgxpool.Pool) (orders, items int) {
	t.Helper()

	ctx := context.Background()
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders").Scan(&orders); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM order_items").Scan(&items); err != nil {
		t.Fatalf("failed to count order items: %v", err)
	}
	return orders, items
}
