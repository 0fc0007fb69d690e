package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/opinionbot/gotrader/internal/display"
	"github.com/opinionbot/gotrader/internal/journal"
	"github.com/opinionbot/gotrader/internal/ports"
	"github.com/opinionbot/gotrader/internal/trading"
	"github.com/opinionbot/gotrader/pkg/chain"
	"github.com/opinionbot/gotrader/pkg/config"
	"github.com/opinionbot/gotrader/pkg/logger"
	"github.com/opinionbot/gotrader/pkg/sdk/api"
	"github.com/opinionbot/gotrader/pkg/secretstore"
)

func main() {
	var (
		configPath = flag.String("config", "accounts.yaml", "配置文件路径")
		accounts   = flag.String("accounts", "", "账户索引列表，逗号分隔（如 1,3,5）；为空表示全部账户")
		action     = flag.String("action", "positions", "操作: balances | positions | summary | buy | sell | cancel | wait")
		parallel   = flag.Bool("parallel", false, "并行执行")
		workers    = flag.Int("workers", 0, "并行协程数（0 使用配置值）")

		tokenID    = flag.String("token", "", "token ID（buy/sell 必填）")
		price      = flag.Float64("price", 0, "限价（市价单忽略）")
		shares     = flag.Int64("shares", 0, "数量")
		kind       = flag.String("kind", "limit", "订单类型: limit | market")
		reduceOnly = flag.Bool("reduce-only", false, "仅减仓")
		wait       = flag.Bool("wait", false, "下单后等待持仓变化确认")
		orderID    = flag.String("order-id", "", "订单 ID（cancel 必填）")
		minBalance = flag.Float64("min-balance", 0, "余额筛选阈值（balances 可选）")
		direction  = flag.String("direction", "increase", "持仓变化方向: increase | decrease（wait 用）")
		waitSecs   = flag.Int("wait-timeout", 10, "等待持仓变化的超时秒数（wait 用）")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   true,
	}); err != nil {
		fatal(err)
	}

	if cfg.SecretStore.Path != "" {
		key, err := secretstore.ParseKey(cfg.SecretStore.Key)
		if err != nil {
			fatal(err)
		}
		store, err := secretstore.Open(secretstore.OpenOptions{Path: cfg.SecretStore.Path, EncryptionKey: key, ReadOnly: true})
		if err != nil {
			fatal(err)
		}
		defer store.Close()
		if err := cfg.ResolveSecrets(store); err != nil {
			fatal(err)
		}
	}

	accountCtxs := buildAccounts(cfg)
	it := trading.NewAccountIterator(accountCtxs, display.NewConsoleSink())

	if cfg.Journal.Path != "" {
		jn, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			fatal(err)
		}
		defer jn.Close()
		it = it.WithJournal(jn)
	}

	indices, err := parseIndices(*accounts, len(accountCtxs))
	if err != nil {
		fatal(err)
	}

	maxWorkers := *workers
	if maxWorkers <= 0 {
		maxWorkers = cfg.Dispatch.MaxWorkers
	}

	ctx := context.Background()
	var results trading.DispatchResult

	switch *action {
	case "balances":
		if cfg.Chain.RPCURL == "" || cfg.Chain.CollateralToken == "" {
			fatal(errors.New("balances 需要配置 chain.rpc_url 和 chain.collateral_token"))
		}
		reader, err := chain.NewBalanceReader(cfg.Chain.RPCURL, cfg.Chain.CollateralToken, cfg.Chain.CollateralDecimals)
		if err != nil {
			fatal(err)
		}
		defer reader.Close()

		balanceFn := func(acc *config.AccountConfig) (float64, error) {
			if acc.EOAAddress == "" {
				return 0, errors.Errorf("账户 [%s] 未配置 eoa_address", acc.Remark)
			}
			return reader.BalanceOf(ctx, acc.EOAAddress)
		}

		if *minBalance > 0 {
			sufficient, insufficient := it.FilterByBalance(ctx, indices, balanceFn, *minBalance)
			fmt.Printf("余额达标 %d 个账户: %v\n", len(sufficient), sufficient)
			for _, acc := range insufficient {
				fmt.Printf("  [%s] 余额 %.2f < %.2f\n", acc.Remark, acc.Balance, acc.Required)
			}
			return
		}
		results = it.GetBalances(ctx, indices, balanceFn)
		printBalances(accountCtxs, results)

	case "wait":
		if *tokenID == "" {
			fatal(errors.New("wait 需要 -token"))
		}
		dir := trading.Direction(*direction)
		if dir != trading.DirectionIncrease && dir != trading.DirectionDecrease {
			fatal(fmt.Errorf("非法方向: %s", *direction))
		}
		timeout := time.Duration(*waitSecs) * time.Second
		results = dispatch(ctx, it, indices, *parallel, maxWorkers, "等待持仓变化",
			func(accIdx int, client ports.TradingClient, _ *config.AccountConfig) (any, error) {
				initial := trading.GetTokenBalance(ctx, client, *tokenID)
				converged, balance := trading.WaitForPositionUpdate(ctx, client, *tokenID, initial, dir, timeout, time.Second)
				if !converged {
					return nil, errors.Errorf("超时未观测到持仓变化（当前 %d）", balance)
				}
				return balance, nil
			})
		printOrderResults(accountCtxs, results)

	case "positions":
		results = dispatch(ctx, it, indices, *parallel, maxWorkers, "查询持仓",
			func(accIdx int, client ports.TradingClient, _ *config.AccountConfig) (any, error) {
				return trading.GetPositions(ctx, client, 0, *tokenID), nil
			})
		printPositions(accountCtxs, results)

	case "summary":
		results = dispatch(ctx, it, indices, *parallel, maxWorkers, "查询汇总",
			func(accIdx int, client ports.TradingClient, _ *config.AccountConfig) (any, error) {
				return trading.GetPositionsSummary(ctx, client), nil
			})
		printSummaries(accountCtxs, results)

	case "buy", "sell":
		order, err := trading.BuildOrder(*tokenID, *price, *shares, *action, *kind, *reduceOnly)
		if err != nil {
			fatal(err)
		}
		results = dispatch(ctx, it, indices, *parallel, maxWorkers, "批量下单",
			placeOrderCallback(ctx, cfg, order, *wait))
		printOrderResults(accountCtxs, results)

	case "cancel":
		if *orderID == "" {
			fatal(errors.New("cancel 需要 -order-id"))
		}
		results = dispatch(ctx, it, indices, *parallel, maxWorkers, "批量撤单",
			func(accIdx int, client ports.TradingClient, _ *config.AccountConfig) (any, error) {
				resp, err := client.CancelOrder(ctx, *orderID)
				if err != nil {
					return nil, err
				}
				if !resp.OK() {
					return nil, errors.New(trading.TranslateError(resp.Errmsg))
				}
				return resp.Result, nil
			})
		printOrderResults(accountCtxs, results)

	default:
		fatal(fmt.Errorf("未知操作: %s", *action))
	}
}

// placeOrderCallback 单账户下单回调：带重试执行，可选等待持仓收敛
func placeOrderCallback(ctx context.Context, cfg *config.Config, order *api.PlaceOrderRequest, wait bool) trading.Callback {
	return func(accIdx int, client ports.TradingClient, acc *config.AccountConfig) (any, error) {
		var initial int64
		if wait {
			initial = trading.GetTokenBalance(ctx, client, order.TokenID)
		}

		outcome := trading.ExecuteWithRetry(ctx, client, order, cfg.Dispatch.MaxRetries, trading.TranslateError)
		if !outcome.Success {
			return nil, errors.New(outcome.Err)
		}

		if wait {
			direction := trading.DirectionIncrease
			if order.Side == api.SideSell {
				direction = trading.DirectionDecrease
			}
			converged, newBalance := trading.WaitForPositionUpdate(
				ctx, client, order.TokenID, initial, direction, 10*time.Second, time.Second)
			if !converged {
				// 超时是"结果未知"，不是下单失败：订单已受理，只是持仓尚未可见
				logger.Warnf("[%s] 持仓变化未确认（初始 %d），请稍后自行核对", acc.Remark, initial)
			} else {
				logger.Infof("[%s] 持仓已更新: %d -> %d", acc.Remark, initial, newBalance)
			}
		}

		return outcome.Result, nil
	}
}

func dispatch(ctx context.Context, it *trading.AccountIterator, indices []int, parallel bool, maxWorkers int, prefix string, cb trading.Callback) trading.DispatchResult {
	if parallel {
		return it.IterateParallel(ctx, indices, cb, maxWorkers)
	}
	return it.Iterate(ctx, indices, cb, prefix)
}

// parseIndices 解析 "1,3,5" 形式的账户选择；空串表示全部
func parseIndices(s string, total int) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i + 1
		}
		return indices, nil
	}

	var indices []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("账户索引非法: %q", part)
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

func printPositions(accounts []*trading.AccountContext, results trading.DispatchResult) {
	for i, acc := range accounts {
		r, ok := results[i+1]
		if !ok {
			continue
		}
		if !r.OK() {
			fmt.Printf("[%s] 查询失败: %s\n", acc.Config.Remark, r.Err)
			continue
		}
		positions, _ := r.Value.([]trading.Position)
		fmt.Printf("[%s] 持仓 %d 条\n", acc.Config.Remark, len(positions))
		for _, p := range positions {
			fmt.Printf("  %s %s x%d 市值=%s 成本=%s\n", p.Title, p.Outcome, p.Shares, p.CurrentValue, p.Cost)
		}
	}
}

func printSummaries(accounts []*trading.AccountContext, results trading.DispatchResult) {
	for i, acc := range accounts {
		r, ok := results[i+1]
		if !ok {
			continue
		}
		if !r.OK() {
			fmt.Printf("[%s] 查询失败: %s\n", acc.Config.Remark, r.Err)
			continue
		}
		s, _ := r.Value.(trading.Summary)
		fmt.Printf("[%s] 持仓 %d 条 市值=%s 成本=%s 盈亏=%s (%s%%)\n",
			acc.Config.Remark, s.Count, s.TotalValue, s.TotalCost, s.TotalPnL, s.PnLPercent.StringFixed(2))
	}
}

func printBalances(accounts []*trading.AccountContext, results trading.DispatchResult) {
	for i, acc := range accounts {
		r, ok := results[i+1]
		if !ok {
			continue
		}
		if !r.OK() {
			fmt.Printf("[%s] 查询失败: %s\n", acc.Config.Remark, r.Err)
			continue
		}
		balance, _ := r.Value.(float64)
		fmt.Printf("[%s] 余额 %.2f\n", acc.Config.Remark, balance)
	}
}

func printOrderResults(accounts []*trading.AccountContext, results trading.DispatchResult) {
	succeeded := 0
	for i, acc := range accounts {
		r, ok := results[i+1]
		if !ok {
			continue
		}
		if r.OK() {
			succeeded++
			fmt.Printf("[%s] 成功: %+v\n", acc.Config.Remark, r.Value)
		} else {
			fmt.Printf("[%s] 失败: %s\n", acc.Config.Remark, r.Err)
		}
	}
	fmt.Printf("完成: %d/%d 成功\n", succeeded, len(results))
}

// buildAccounts 按配置顺序为每个账户构建交易客户端
func buildAccounts(cfg *config.Config) []*trading.AccountContext {
	out := make([]*trading.AccountContext, 0, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		out = append(out, &trading.AccountContext{
			Config: acc,
			Client: api.NewClient(cfg.Venue.Host, acc.APIKey),
		})
	}
	return out
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
