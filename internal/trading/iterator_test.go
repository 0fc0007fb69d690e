package trading

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opinionbot/gotrader/internal/ports"
	"github.com/opinionbot/gotrader/pkg/config"
	"github.com/opinionbot/gotrader/pkg/sdk/api"
)

// recordingSink 测试用的进度收集器
type recordingSink struct {
	mu        sync.Mutex
	progress  []string
	accErrors []ports.AccountError
}

func (s *recordingSink) Progress(current, total int, prefix, suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, suffix)
}

func (s *recordingSink) ReportAccountErrors(errs []ports.AccountError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accErrors = append(s.accErrors, errs...)
}

func newTestIterator(n int) (*AccountIterator, *recordingSink) {
	accounts := make([]*AccountContext, 0, n)
	for i := 0; i < n; i++ {
		accounts = append(accounts, &AccountContext{
			Config: &config.AccountConfig{Remark: remarkFor(i + 1)},
			Client: api.NewMockTradingClient(),
		})
	}
	sink := &recordingSink{}
	return NewAccountIterator(accounts, sink), sink
}

func remarkFor(idx int) string {
	return "acc-" + strconv.Itoa(idx)
}

func TestIterate_ErrorIsolation(t *testing.T) {
	// 第 2 个账户失败，其余账户照常执行，结果表三条都在
	it, sink := newTestIterator(3)

	results := it.Iterate(context.Background(), []int{1, 2, 3}, func(accIdx int, _ ports.TradingClient, _ *config.AccountConfig) (any, error) {
		if accIdx == 2 {
			return nil, errors.New("boom")
		}
		return accIdx * 10, nil
	}, "")

	require.Len(t, results, 3)
	assert.True(t, results[1].OK())
	assert.Equal(t, 10, results[1].Value)
	assert.False(t, results[2].OK())
	assert.Equal(t, "boom", results[2].Err)
	assert.True(t, results[3].OK())

	require.Len(t, sink.accErrors, 1)
	assert.Equal(t, "acc-2", sink.accErrors[0].Remark)
	assert.Equal(t, "boom", sink.accErrors[0].Message)
}

func TestIterate_PanicRecovered(t *testing.T) {
	it, _ := newTestIterator(2)

	results := it.Iterate(context.Background(), []int{1, 2}, func(accIdx int, _ ports.TradingClient, _ *config.AccountConfig) (any, error) {
		if accIdx == 1 {
			panic("unexpected state")
		}
		return "ok", nil
	}, "")

	require.Len(t, results, 2)
	assert.False(t, results[1].OK())
	assert.Contains(t, results[1].Err, "unexpected state")
	assert.True(t, results[2].OK())
}

func TestIterate_OutOfRangeSkipped(t *testing.T) {
	// 越界索引静默跳过：不执行、不出现在结果表
	it, _ := newTestIterator(2)

	invoked := map[int]bool{}
	results := it.Iterate(context.Background(), []int{1, 99, 0, -1, 2}, func(accIdx int, _ ports.TradingClient, _ *config.AccountConfig) (any, error) {
		invoked[accIdx] = true
		return nil, nil
	}, "")

	assert.Len(t, results, 2)
	assert.Equal(t, map[int]bool{1: true, 2: true}, invoked)
	_, hasOOB := results[99]
	assert.False(t, hasOOB)
}

func TestIterate_ProgressReported(t *testing.T) {
	it, sink := newTestIterator(2)

	it.Iterate(context.Background(), []int{1, 2}, func(int, ports.TradingClient, *config.AccountConfig) (any, error) {
		return nil, nil
	}, "测试")

	// 每个账户执行前各一次 + 完成一次
	require.Len(t, sink.progress, 3)
	assert.Equal(t, "acc-1", sink.progress[0])
	assert.Equal(t, "acc-2", sink.progress[1])
	assert.Equal(t, "完成", sink.progress[2])
}

func TestIterateParallel_EachAccountOnce(t *testing.T) {
	// 并行模式：每个有效索引恰好执行一次，结果表齐全
	it, _ := newTestIterator(10)

	var mu sync.Mutex
	counts := map[int]int{}
	indices := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	results := it.IterateParallel(context.Background(), indices, func(accIdx int, _ ports.TradingClient, _ *config.AccountConfig) (any, error) {
		mu.Lock()
		counts[accIdx]++
		mu.Unlock()
		return accIdx, nil
	}, 2)

	require.Len(t, results, 10)
	for _, accIdx := range indices {
		assert.Equal(t, 1, counts[accIdx], "账户 %d 应恰好执行一次", accIdx)
		require.True(t, results[accIdx].OK())
		assert.Equal(t, accIdx, results[accIdx].Value)
	}
}

func TestIterateParallel_ErrorIsolation(t *testing.T) {
	it, sink := newTestIterator(4)

	results := it.IterateParallel(context.Background(), []int{1, 2, 3, 4}, func(accIdx int, _ ports.TradingClient, _ *config.AccountConfig) (any, error) {
		if accIdx%2 == 0 {
			return nil, errors.Errorf("fail-%d", accIdx)
		}
		return accIdx, nil
	}, 3)

	require.Len(t, results, 4)
	assert.True(t, results[1].OK())
	assert.False(t, results[2].OK())
	assert.True(t, results[3].OK())
	assert.False(t, results[4].OK())
	assert.Len(t, sink.accErrors, 2)
}

func TestIterateParallel_OutOfRangeSkipped(t *testing.T) {
	it, _ := newTestIterator(2)

	results := it.IterateParallel(context.Background(), []int{1, 2, 42}, func(accIdx int, _ ports.TradingClient, _ *config.AccountConfig) (any, error) {
		return nil, nil
	}, 5)

	assert.Len(t, results, 2)
}

func TestIterateAll(t *testing.T) {
	it, _ := newTestIterator(3)

	results := it.IterateAll(context.Background(), func(accIdx int, _ ports.TradingClient, _ *config.AccountConfig) (any, error) {
		return accIdx, nil
	}, "")

	assert.Len(t, results, 3)
}

func TestFilterByBalance(t *testing.T) {
	// 余额 [50, 150, 查询失败]，阈值 100：只有账户 2 通过，
	// 查询失败的账户按余额 0 进入不足列表
	it, _ := newTestIterator(3)

	balances := map[string]float64{"acc-1": 50, "acc-2": 150}
	balanceFn := func(cfg *config.AccountConfig) (float64, error) {
		b, ok := balances[cfg.Remark]
		if !ok {
			return 0, errors.New("rpc unavailable")
		}
		return b, nil
	}

	sufficient, insufficient := it.FilterByBalance(context.Background(), []int{1, 2, 3}, balanceFn, 100)

	assert.Equal(t, []int{2}, sufficient)
	require.Len(t, insufficient, 2)
	assert.Equal(t, "acc-1", insufficient[0].Remark)
	assert.Equal(t, 50.0, insufficient[0].Balance)
	assert.Equal(t, "acc-3", insufficient[1].Remark)
	assert.Zero(t, insufficient[1].Balance)
	assert.Equal(t, 100.0, insufficient[1].Required)
}

type spyRecorder struct {
	actions []string
	results []DispatchResult
}

func (f *spyRecorder) RecordRun(action string, requested []int, results DispatchResult, startedAt, finishedAt time.Time) error {
	f.actions = append(f.actions, action)
	f.results = append(f.results, results)
	return nil
}

func TestWithJournal_RecordsRun(t *testing.T) {
	it, _ := newTestIterator(2)

	rec := &spyRecorder{}
	it.WithJournal(rec)

	it.Iterate(context.Background(), []int{1, 2}, func(accIdx int, _ ports.TradingClient, _ *config.AccountConfig) (any, error) {
		if accIdx == 2 {
			return nil, errors.New("boom")
		}
		return nil, nil
	}, "批量下单")

	require.Len(t, rec.actions, 1)
	assert.Equal(t, "批量下单", rec.actions[0])
	require.Len(t, rec.results, 1)
	assert.False(t, rec.results[0][2].OK())
}
