package database

import (
	"strings"
	"testing"
	"time"

	"portops/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPoolSettings(t *testing.T) {
	tests := []struct {
		name                string
		cfg                 config.DatabaseConfig
		expectedLifetime    time.Duration
		expectedIdleTime    time.Duration
		expectedHealthCheck time.Duration
	}{
		{
			name: "Configured durations",
			cfg: config.DatabaseConfig{
				MaxConnections:    10,
				MinConnections:    2,
				MaxConnLifetime:   300,
				MaxConnIdleTime:   120,
				HealthCheckPeriod: 15,
			},
			expectedLifetime:    5 * time.Minute,
			expectedIdleTime:    2 * time.Minute,
			expectedHealthCheck: 15 * time.Second,
		},
		{
			name: "Unset durations keep pool defaults",
			cfg: config.DatabaseConfig{
				MaxConnections: 10,
				MinConnections: 2,
			},
			expectedLifetime:    time.Hour,
			expectedIdleTime:    30 * time.Minute,
			expectedHealthCheck: time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poolConfig, err := pgxpool.ParseConfig("postgres://postgres@localhost:5432/portops")
			require.NoError(t, err)

			applyPoolSettings(poolConfig, tt.cfg)

			assert.Equal(t, int32(tt.cfg.MaxConnections), poolConfig.MaxConns)
			assert.Equal(t, int32(tt.cfg.MinConnections), poolConfig.MinConns)
			assert.Equal(t, tt.expectedLifetime, poolConfig.MaxConnLifetime)
			assert.Equal(t, tt.expectedIdleTime, poolConfig.MaxConnIdleTime)
			assert.Equal(t, tt.expectedHealthCheck, poolConfig.HealthCheckPeriod)
		})
	}
}

func TestSchema_IdempotencyKeyScopedToSubmitter(t *testing.T) {
	ddl := Schema()

	assert.Contains(t, ddl, "CREATE UNIQUE INDEX IF NOT EXISTS orders_created_by_idempotency_key_idx")
	assert.Contains(t, ddl, "(COALESCE(created_by, ''), idempotency_key)")
	assert.Contains(t, ddl, "DROP CONSTRAINT IF EXISTS orders_idempotency_key_key")
	assert.False(t, strings.Contains(ddl, "UNIQUE (idempotency_key)"))
}
