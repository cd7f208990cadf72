package costtrack

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_Estimate(t *testing.T) {
	p := Price{Input: 3, Output: 15}
	u := Usage{InputTokens: 1_000_000, OutputTokens: 500_000}
	assert.InDelta(t, 3+7.5, p.Estimate(u), 0.0001)
}

func TestTracker_PerTaskCeiling(t *testing.T) {
	tr := New(Config{PerTaskCeiling: 1.0})

	err := tr.Record(Record{TaskID: "t1", CostUSD: 0.5})
	require.NoError(t, err)
	assert.False(t, tr.TaskCostWarning("t1"))

	err = tr.Record(Record{TaskID: "t1", CostUSD: 0.4})
	require.NoError(t, err)
	assert.True(t, tr.TaskCostWarning("t1"))

	err = tr.Record(Record{TaskID: "t1", CostUSD: 0.2})
	assert.ErrorIs(t, err, ErrCeilingExceeded)
	assert.GreaterOrEqual(t, tr.TaskCost("t1"), 1.0)
}

func TestTracker_RetentionPrunesOldRecords(t *testing.T) {
	tr := New(Config{MaxAge: time.Hour, MaxRecords: 100})
	old := Record{TaskID: "t1", CostUSD: 0.1, Timestamp: time.Now().Add(-2 * time.Hour)}
	require.NoError(t, tr.Record(old))
	require.NoError(t, tr.Record(Record{TaskID: "t1", CostUSD: 0.1}))

	recent := tr.RecentRecords(10)
	assert.Len(t, recent, 1)
}

func TestTracker_ModelTotals(t *testing.T) {
	tr := New(DefaultConfig())
	require.NoError(t, tr.Record(Record{Provider: "anthropic", Model: "claude", Usage: Usage{InputTokens: 100, OutputTokens: 50}}))
	require.NoError(t, tr.Record(Record{Provider: "anthropic", Model: "claude", Usage: Usage{InputTokens: 10}}))

	totals := tr.ModelTotals("anthropic", "claude")
	assert.EqualValues(t, 110, totals.InputTokens)
	assert.EqualValues(t, 50, totals.OutputTokens)
}

func TestTracker_HourlyCeilingExceeded(t *testing.T) {
	tr := New(Config{HourlyCeiling: 1.0})
	require.NoError(t, tr.Record(Record{TaskID: "t1", CostUSD: 0.6}))
	err := tr.Record(Record{TaskID: "t2", CostUSD: 0.6})
	assert.ErrorIs(t, err, ErrCeilingExceeded)
}

func TestTracker_HistoryPersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost_history.json")

	tr := New(Config{HistoryPath: path})
	require.NoError(t, tr.Record(Record{TaskID: "t1", CostUSD: 0.75, Timestamp: time.Now()}))

	_, err := os.Stat(path)
	require.NoError(t, err)

	reopened := New(Config{HistoryPath: path, HourlyCeiling: 1.0})
	err = reopened.Record(Record{TaskID: "t2", CostUSD: 0.5, Timestamp: time.Now()})
	assert.ErrorIs(t, err, ErrCeilingExceeded)
}
