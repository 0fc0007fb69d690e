package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opinionbot/gotrader/internal/trading"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordRunAndList(t *testing.T) {
	j := openTestJournal(t)

	started := time.Now().Add(-time.Second)
	finished := time.Now()
	results := trading.DispatchResult{
		1: {Value: "ok"},
		2: {Err: "余额不足"},
		3: {Value: 42},
	}

	require.NoError(t, j.RecordRun("批量下单", []int{1, 2, 3}, results, started, finished))

	runs, err := j.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, "批量下单", run.Action)
	assert.Equal(t, 3, run.Requested)
	assert.Equal(t, 3, run.Completed)
	assert.Equal(t, 1, run.Failed)
	assert.WithinDuration(t, started, run.StartedAt, time.Millisecond)
	assert.WithinDuration(t, finished, run.FinishedAt, time.Millisecond)
}

func TestRunResults(t *testing.T) {
	j := openTestJournal(t)

	results := trading.DispatchResult{
		1: {Value: "ok"},
		2: {Err: "boom"},
	}
	require.NoError(t, j.RecordRun("查询持仓", []int{1, 2}, results, time.Now(), time.Now()))

	runs, err := j.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	rows, err := j.RunResults(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].AccIdx)
	assert.True(t, rows[0].OK)
	assert.Empty(t, rows[0].Detail)

	assert.Equal(t, 2, rows[1].AccIdx)
	assert.False(t, rows[1].OK)
	assert.Equal(t, "boom", rows[1].Detail)
}

func TestListRuns_Order(t *testing.T) {
	j := openTestJournal(t)

	base := time.Now()
	for i := 0; i < 3; i++ {
		started := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, j.RecordRun("批次", []int{1}, trading.DispatchResult{1: {}}, started, started.Add(time.Second)))
	}

	runs, err := j.ListRuns(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// 按开始时间倒序
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}

func TestCloseNil(t *testing.T) {
	var j *Journal
	assert.NoError(t, j.Close())
}
