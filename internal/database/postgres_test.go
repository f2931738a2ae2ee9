package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/vector-insights/internal/config"
	"github.com/radiusdt/vector-insights/internal/metrics"
)

func TestNewPoolConfig(t *testing.T) {
	tests := []struct {
		name     string
		maxConns int
		minConns int
		wantMax  int32
		wantMin  int32
	}{
		{"raised to one snapshot load", 2, 1, snapshotQueries, 1},
		{"configured size kept", 25, 5, 25, 5},
		{"min clamped to max", 8, 20, 8, 8},
		{"negative min", 10, -3, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults().Database
			cfg.MaxConns = tt.maxConns
			cfg.MinConns = tt.minConns

			pc, err := newPoolConfig(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMax, pc.MaxConns)
			assert.Equal(t, tt.wantMin, pc.MinConns)
			assert.Equal(t, 5*time.Minute, pc.MaxConnIdleTime)
		})
	}
}

func TestNewPoolConfigRuntimeParams(t *testing.T) {
	cfg := config.Defaults().Database
	cfg.StatementTimeout = 30 * time.Second

	pc, err := newPoolConfig(cfg)
	require.NoError(t, err)
	params := pc.ConnConfig.RuntimeParams
	assert.Equal(t, "vector-insights", params["application_name"])
	assert.Equal(t, "30000", params["statement_timeout"])

	cfg.StatementTimeout = 0
	pc, err = newPoolConfig(cfg)
	require.NoError(t, err)
	assert.NotContains(t, pc.ConnConfig.RuntimeParams, "statement_timeout")
}

func TestNewPoolConfigBadDSN(t *testing.T) {
	cfg := config.Defaults().Database
	cfg.SSLMode = "sometimes"

	_, err := newPoolConfig(cfg)
	assert.Error(t, err)
}

func TestReportStats(t *testing.T) {
	cfg := config.Defaults().Database
	cfg.MinConns = 0
	pc, err := newPoolConfig(cfg)
	require.NoError(t, err)

	// No connection is opened until the pool is used.
	pool, err := pgxpool.NewWithConfig(context.Background(), pc)
	require.NoError(t, err)
	db := &PostgresDB{Pool: pool, logger: zap.NewNop()}
	defer db.Close()

	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	m.DBConnections.WithLabelValues("total").Set(42)
	db.ReportStats(m)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.DBConnections.WithLabelValues("total")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DBConnections.WithLabelValues("in_use")))
}
