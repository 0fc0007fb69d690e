package ports

import (
	"context"

	"github.com/opinionbot/gotrader/pkg/sdk/api"
)

// Small capability interfaces shared across layers (iterator/executor/position service).
//
// NOTE: This package is intentionally "neutral" to avoid circular dependencies
// between the trading core, the SDK client, and the display layer.

// OrderPlacer 提交订单能力
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order *api.PlaceOrderRequest) (*api.Response[api.OrderResult], error)
}

// OrderCanceler 撤销订单能力
type OrderCanceler interface {
	CancelOrder(ctx context.Context, orderID string) (*api.Response[api.CancelResult], error)
}

// PositionReader 查询持仓能力
type PositionReader interface {
	GetMyPositions(ctx context.Context) (*api.Response[api.PositionList], error)
}

// TradingClient 一个账户绑定的完整交易所能力
type TradingClient interface {
	OrderPlacer
	OrderCanceler
	PositionReader
}

// AccountError 批量操作结束后汇总上报的单账户错误
type AccountError struct {
	Remark  string
	Message string
}

// ProgressSink 进度上报边界。实现必须是 fire-and-forget 的，
// 不允许阻塞批量调度。
type ProgressSink interface {
	// Progress 上报进度 (current/total)，suffix 通常是当前账户备注
	Progress(current, total int, prefix, suffix string)
	// ReportAccountErrors 批次完成后汇总展示账户级错误
	ReportAccountErrors(errs []AccountError)
}
