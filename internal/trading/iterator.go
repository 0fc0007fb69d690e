package trading

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opinionbot/gotrader/internal/ports"
	"github.com/opinionbot/gotrader/pkg/config"
	"github.com/opinionbot/gotrader/pkg/logger"
)

// DefaultMaxWorkers 并行模式默认工作协程数
const DefaultMaxWorkers = 5

// AccountContext 一个账户的静态配置与其绑定的交易所客户端。
// 启动时构建一次，整个运行期间只读；迭代器只引用，不复制。
type AccountContext struct {
	Config *config.AccountConfig
	Client ports.TradingClient
}

// Callback 单账户操作回调。返回值进入结果表；返回 error（或 panic）
// 被就地回收，不会中断其他账户。
type Callback func(accIdx int, client ports.TradingClient, cfg *config.AccountConfig) (any, error)

// Result 单账户的执行结果：要么携带回调返回值，要么携带错误信息
type Result struct {
	Value any
	Err   string
}

// OK 返回该账户是否执行成功
func (r Result) OK() bool {
	return r.Err == ""
}

// DispatchResult 账户索引（1-based，与配置顺序一致）到执行结果的映射。
// 每次批量调用新建，调用方消费后即丢弃。
type DispatchResult map[int]Result

// InsufficientAccount 余额不足的账户明细
type InsufficientAccount struct {
	Remark   string
	Balance  float64
	Required float64
}

// AccountIterator 多账户批量调度器。
// 串行模式按调用方给定顺序逐个执行并上报进度；并行模式用有界协程池
// 执行，完成顺序不保证。两种模式下单账户失败都不影响其余账户。
type AccountIterator struct {
	accounts []*AccountContext
	sink     ports.ProgressSink
	journal  RunRecorder
}

// RunRecorder 批次落库边界（可选）。实现见 internal/journal。
type RunRecorder interface {
	RecordRun(action string, requested []int, results DispatchResult, startedAt, finishedAt time.Time) error
}

// NewAccountIterator 创建迭代器。accounts 由调用方持有，这里只引用。
func NewAccountIterator(accounts []*AccountContext, sink ports.ProgressSink) *AccountIterator {
	return &AccountIterator{accounts: accounts, sink: sink}
}

// WithJournal 挂上批次日志；每次 Iterate/IterateParallel 结束后落一条运行记录
func (it *AccountIterator) WithJournal(rec RunRecorder) *AccountIterator {
	it.journal = rec
	return it
}

// Len 配置的账户总数
func (it *AccountIterator) Len() int {
	return len(it.accounts)
}

// account 按 1-based 索引取账户；越界返回 nil（静默跳过，不报错）
func (it *AccountIterator) account(idx int) *AccountContext {
	if idx < 1 || idx > len(it.accounts) {
		return nil
	}
	return it.accounts[idx-1]
}

// invoke 执行单账户回调，panic 一并回收成错误结果
func invoke(cb Callback, accIdx int, acc *AccountContext) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: fmt.Sprint(r)}
		}
	}()

	value, err := cb(accIdx, acc.Client, acc.Config)
	if err != nil {
		return Result{Err: err.Error()}
	}
	return Result{Value: value}
}

// Iterate 串行遍历选中的账户执行操作。
// indices 为 1-based 账户索引，越界的索引静默跳过；每个账户执行前
// 上报一次进度，全部完成后再上报一次；账户级错误汇总后一次性上报，
// 不影响返回的结果表。
func (it *AccountIterator) Iterate(ctx context.Context, indices []int, cb Callback, prefix string) DispatchResult {
	if prefix == "" {
		prefix = "处理账户"
	}

	results := make(DispatchResult)
	total := len(indices)
	var accErrs []ports.AccountError
	startedAt := time.Now()

	for i, accIdx := range indices {
		acc := it.account(accIdx)
		if acc == nil {
			continue
		}

		if it.sink != nil {
			it.sink.Progress(i, total, prefix, acc.Config.Remark)
		}

		r := invoke(cb, accIdx, acc)
		results[accIdx] = r
		if !r.OK() {
			accErrs = append(accErrs, ports.AccountError{Remark: acc.Config.Remark, Message: r.Err})
		}
	}

	if it.sink != nil {
		it.sink.Progress(total, total, prefix, "完成")
		if len(accErrs) > 0 {
			it.sink.ReportAccountErrors(accErrs)
		}
	}

	it.record(prefix, indices, results, startedAt)
	return results
}

// IterateParallel 并行遍历账户（有界协程池）。
// 完成顺序不保证；每个有效索引恰好执行一次、记录一次。
// 结果表是唯一的共享可变对象，写入走互斥锁。
func (it *AccountIterator) IterateParallel(ctx context.Context, indices []int, cb Callback, maxWorkers int) DispatchResult {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	// 先过滤越界索引，total 以有效任务数为准
	valid := make([]int, 0, len(indices))
	for _, accIdx := range indices {
		if it.account(accIdx) != nil {
			valid = append(valid, accIdx)
		}
	}

	results := make(DispatchResult, len(valid))
	total := len(valid)
	completed := 0
	var mu sync.Mutex
	startedAt := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(maxWorkers)

	for _, accIdx := range valid {
		accIdx := accIdx
		acc := it.account(accIdx)
		g.Go(func() error {
			r := invoke(cb, accIdx, acc)

			mu.Lock()
			results[accIdx] = r
			completed++
			done := completed
			mu.Unlock()

			if it.sink != nil {
				it.sink.Progress(done, total, "并行处理", "")
			}
			return nil
		})
	}
	_ = g.Wait()

	var accErrs []ports.AccountError
	for _, accIdx := range valid {
		if r := results[accIdx]; !r.OK() {
			accErrs = append(accErrs, ports.AccountError{Remark: it.account(accIdx).Config.Remark, Message: r.Err})
		}
	}
	if it.sink != nil && len(accErrs) > 0 {
		it.sink.ReportAccountErrors(accErrs)
	}

	it.record("并行处理", indices, results, startedAt)
	return results
}

// IterateAll 遍历所有已配置账户
func (it *AccountIterator) IterateAll(ctx context.Context, cb Callback, prefix string) DispatchResult {
	indices := make([]int, len(it.accounts))
	for i := range it.accounts {
		indices[i] = i + 1
	}
	return it.Iterate(ctx, indices, cb, prefix)
}

// BalanceFunc 账户余额查询函数；查询失败返回 error
type BalanceFunc func(cfg *config.AccountConfig) (float64, error)

// GetBalances 批量查询账户余额。余额查询只依赖账户配置（链上地址），
// 不经过交易所客户端。
func (it *AccountIterator) GetBalances(ctx context.Context, indices []int, balanceFn BalanceFunc) DispatchResult {
	return it.Iterate(ctx, indices, func(accIdx int, _ ports.TradingClient, cfg *config.AccountConfig) (any, error) {
		return balanceFn(cfg)
	}, "查询余额")
}

// FilterByBalance 按余额筛选账户。
// 余额查询失败的账户按余额 0 处理，进入不足列表（保守策略，绝不静默丢弃）。
func (it *AccountIterator) FilterByBalance(ctx context.Context, indices []int, balanceFn BalanceFunc, minBalance float64) (sufficient []int, insufficient []InsufficientAccount) {
	balances := it.GetBalances(ctx, indices, balanceFn)

	for _, accIdx := range indices {
		acc := it.account(accIdx)
		if acc == nil {
			continue
		}

		r := balances[accIdx]
		if !r.OK() {
			insufficient = append(insufficient, InsufficientAccount{Remark: acc.Config.Remark, Balance: 0, Required: minBalance})
			continue
		}

		balance, _ := r.Value.(float64)
		if balance >= minBalance {
			sufficient = append(sufficient, accIdx)
		} else {
			insufficient = append(insufficient, InsufficientAccount{Remark: acc.Config.Remark, Balance: balance, Required: minBalance})
		}
	}
	return sufficient, insufficient
}

// record 批次落库；失败只记日志，不影响调用结果
func (it *AccountIterator) record(action string, requested []int, results DispatchResult, startedAt time.Time) {
	if it.journal == nil {
		return
	}
	if err := it.journal.RecordRun(action, requested, results, startedAt, time.Now()); err != nil {
		logger.Warnf("批次日志写入失败: %v", err)
	}
}
