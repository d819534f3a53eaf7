package metrics_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/avhall/tierctl/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCollectorIsNoop(t *testing.T) {
	collector, err := metrics.NewService(metrics.DefaultConfig())
	require.NoError(t, err)

	assert.NoError(t, collector.Record(context.Background(), &metrics.Snapshot{}))
	assert.NoError(t, collector.Close())
}

func TestConfigValidate(t *testing.T) {
	cfg := metrics.DefaultConfig()
	assert.NoError(t, cfg.Validate(), "Disabled config needs no storage settings")

	cfg.Enabled = true
	cfg.DBPath = ""
	assert.Error(t, cfg.Validate())

	cfg = metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.BatchSize = 0
	assert.Error(t, cfg.Validate())
}

func TestRecordAndFlushOnClose(t *testing.T) {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "metrics.db")

	collector, err := metrics.NewService(cfg)
	require.NoError(t, err)

	snapshot := &metrics.Snapshot{
		Timestamp:    time.Now(),
		Rate:         metrics.RateMetrics{Current: 47, Mean: 45.2},
		Tier:         "medium",
		CooldownMs:   5000,
		Transitioned: true,
	}
	require.NoError(t, collector.Record(context.Background(), snapshot))
	require.NoError(t, collector.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	var tier string
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM tier_snapshots").Scan(&count))
	require.NoError(t, db.QueryRow("SELECT tier FROM tier_snapshots LIMIT 1").Scan(&tier))

	assert.Equal(t, 1, count)
	assert.Equal(t, "medium", tier)
}

func TestSubSecondSnapshotsAllPersist(t *testing.T) {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "metrics.db")

	collector, err := metrics.NewService(cfg)
	require.NoError(t, err)

	// Two snapshots landing within the same wall-clock second, as a
	// sub-second evaluate interval produces.
	base := time.Now().Truncate(time.Second)
	for i, tier := range []string{"high", "medium"} {
		snapshot := &metrics.Snapshot{
			Timestamp:    base.Add(time.Duration(i) * 250 * time.Millisecond),
			Rate:         metrics.RateMetrics{Current: 48, Mean: 47.5},
			Tier:         tier,
			CooldownMs:   0,
			Transitioned: i == 1,
		}
		require.NoError(t, collector.Record(context.Background(), snapshot))
	}
	require.NoError(t, collector.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM tier_snapshots").Scan(&count))
	assert.Equal(t, 2, count)

	var first, second int64
	require.NoError(t, db.QueryRow("SELECT MIN(timestamp_ms), MAX(timestamp_ms) FROM tier_snapshots").Scan(&first, &second))
	assert.Equal(t, int64(250), second-first, "Millisecond timestamps must keep sub-second spacing")
}

func TestRecordRejectsNilSnapshot(t *testing.T) {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "metrics.db")

	collector, err := metrics.NewService(cfg)
	require.NoError(t, err)
	defer collector.Close()

	assert.Error(t, collector.Record(context.Background(), nil))
}
