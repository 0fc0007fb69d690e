package trading

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opinionbot/gotrader/internal/ports"
)

// Position 解析后的持仓快照。每次查询都是全新快照，不做本地持久化。
type Position struct {
	TokenID      string
	MarketID     int64
	Title        string
	Outcome      string
	Shares       int64
	AvgPrice     float64
	CurrentValue decimal.Decimal
	Cost         decimal.Decimal
}

// Summary 全账户持仓汇总
type Summary struct {
	TotalValue decimal.Decimal
	TotalCost  decimal.Decimal
	TotalPnL   decimal.Decimal
	PnLPercent decimal.Decimal
	Count      int
	Positions  []Position
}

// Direction 持仓变化方向
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// GetPositions 查询持仓列表。
// 丢弃 shares <= 0 的条目，然后按 marketID（0 表示不过滤）和
// tokenID（空表示不过滤）做精确过滤。
// 任何传输层错误或 errno != 0 都返回空列表，这个调用永远不抛错。
func GetPositions(ctx context.Context, client ports.PositionReader, marketID int64, tokenID string) []Position {
	resp, err := client.GetMyPositions(ctx)
	if err != nil || !resp.OK() {
		return []Position{}
	}

	result := make([]Position, 0, len(resp.Result.List))
	for _, p := range resp.Result.List {
		shares := int64(p.SharesOwned)
		if shares <= 0 {
			continue
		}
		if tokenID != "" && p.TokenID != tokenID {
			continue
		}
		if marketID != 0 && p.MarketID != marketID {
			continue
		}
		result = append(result, Position{
			TokenID:      p.TokenID,
			MarketID:     p.MarketID,
			Title:        p.MarketTitle,
			Outcome:      p.Outcome,
			Shares:       shares,
			AvgPrice:     p.AvgPrice,
			CurrentValue: decimal.NewFromFloat(p.CurrentValue),
			Cost:         decimal.NewFromFloat(p.Cost),
		})
	}
	return result
}

// GetTokenBalance 查询指定 token 的持仓数量，没有持仓时返回 0
func GetTokenBalance(ctx context.Context, client ports.PositionReader, tokenID string) int64 {
	positions := GetPositions(ctx, client, 0, tokenID)
	if len(positions) == 0 {
		return 0
	}
	return positions[0].Shares
}

// GetPositionByToken 查询指定 token 的持仓详情
func GetPositionByToken(ctx context.Context, client ports.PositionReader, tokenID string) *Position {
	positions := GetPositions(ctx, client, 0, tokenID)
	if len(positions) == 0 {
		return nil
	}
	return &positions[0]
}

// GetPositionsSummary 汇总全部持仓：总市值、总成本、未实现盈亏和盈亏比。
// 成本为 0 时盈亏比取 0，避免除零。
func GetPositionsSummary(ctx context.Context, client ports.PositionReader) Summary {
	positions := GetPositions(ctx, client, 0, "")

	totalValue := decimal.Zero
	totalCost := decimal.Zero
	for _, p := range positions {
		totalValue = totalValue.Add(p.CurrentValue)
		totalCost = totalCost.Add(p.Cost)
	}

	totalPnL := totalValue.Sub(totalCost)
	pnlPercent := decimal.Zero
	if totalCost.IsPositive() {
		pnlPercent = totalPnL.Div(totalCost).Mul(decimal.NewFromInt(100))
	}

	return Summary{
		TotalValue: totalValue,
		TotalCost:  totalCost,
		TotalPnL:   totalPnL,
		PnLPercent: pnlPercent,
		Count:      len(positions),
		Positions:  positions,
	}
}

// WaitForPositionUpdate 等待持仓出现期望方向的变化。
// 每 interval 查询一次余额，严格大于/小于初始值即视为收敛并立刻返回
// (true, 当前余额)。查询出错视为"尚未收敛"继续轮询（订单成交后交易所
// 的持仓账本是最终一致的）。超时返回 (false, initialBalance)——调用方
// 必须把超时当作"结果未知"，而不是下单失败。
// 阻塞式等待：调用线程在两次轮询之间 sleep，不是事件订阅。
func WaitForPositionUpdate(ctx context.Context, client ports.PositionReader, tokenID string, initialBalance int64, direction Direction, timeout, interval time.Duration) (bool, int64) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		// 直接查原始接口：查询失败只能当作"尚未收敛"继续轮询，
		// 不能当作余额为 0（否则 decrease 方向会被误判为已收敛）。
		resp, err := client.GetMyPositions(ctx)
		if err != nil || !resp.OK() {
			time.Sleep(interval)
			continue
		}

		var current int64
		for _, p := range resp.Result.List {
			if p.TokenID == tokenID && int64(p.SharesOwned) > 0 {
				current = int64(p.SharesOwned)
				break
			}
		}

		switch direction {
		case DirectionIncrease:
			if current > initialBalance {
				return true, current
			}
		case DirectionDecrease:
			if current < initialBalance {
				return true, current
			}
		}

		time.Sleep(interval)
	}

	return false, initialBalance
}
