package trading

import (
	"fmt"
	"strings"

	"github.com/opinionbot/gotrader/pkg/sdk/api"
)

// ValidationError 订单参数校验失败。
// 只在构建阶段产生，直接返回调用方，永远不进入重试。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid order: %s %s", e.Field, e.Reason)
}

// IsValidationError 判断 err 是否为参数校验错误
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// BuildOrder 通用订单构建。
// side: buy/sell，kind: limit/market（大小写不敏感）。
// 市价单忽略传入的价格，构建出的请求不携带价格字段。
// 纯函数，无 I/O，可以并发调用；构建出的请求不可再修改。
func BuildOrder(tokenID string, price float64, shares int64, side, kind string, reduceOnly bool) (*api.PlaceOrderRequest, error) {
	if tokenID == "" {
		return nil, &ValidationError{Field: "token_id", Reason: "不能为空"}
	}
	if shares <= 0 {
		return nil, &ValidationError{Field: "shares", Reason: fmt.Sprintf("必须为正数，实际 %d", shares)}
	}

	var orderSide api.Side
	switch strings.ToLower(side) {
	case "buy":
		orderSide = api.SideBuy
	case "sell":
		orderSide = api.SideSell
	default:
		return nil, &ValidationError{Field: "side", Reason: fmt.Sprintf("必须是 buy 或 sell，实际 %q", side)}
	}

	switch strings.ToLower(kind) {
	case "market":
		return &api.PlaceOrderRequest{
			TokenID:   tokenID,
			Side:      orderSide,
			OrderType: api.OrderTypeMarket,
			Shares:    shares,
		}, nil
	case "limit":
		if price <= 0 {
			return nil, &ValidationError{Field: "price", Reason: fmt.Sprintf("限价单价格必须为正数，实际 %v", price)}
		}
		return &api.PlaceOrderRequest{
			TokenID:    tokenID,
			Side:       orderSide,
			OrderType:  api.OrderTypeLimit,
			Price:      price,
			Shares:     shares,
			ReduceOnly: reduceOnly,
		}, nil
	default:
		return nil, &ValidationError{Field: "order_type", Reason: fmt.Sprintf("必须是 limit 或 market，实际 %q", kind)}
	}
}

// BuildLimitBuy 创建限价买单
func BuildLimitBuy(tokenID string, price float64, shares int64, reduceOnly bool) (*api.PlaceOrderRequest, error) {
	return BuildOrder(tokenID, price, shares, "buy", "limit", reduceOnly)
}

// BuildLimitSell 创建限价卖单
func BuildLimitSell(tokenID string, price float64, shares int64, reduceOnly bool) (*api.PlaceOrderRequest, error) {
	return BuildOrder(tokenID, price, shares, "sell", "limit", reduceOnly)
}

// BuildMarketBuy 创建市价买单
func BuildMarketBuy(tokenID string, shares int64) (*api.PlaceOrderRequest, error) {
	return BuildOrder(tokenID, 0, shares, "buy", "market", false)
}

// BuildMarketSell 创建市价卖单
func BuildMarketSell(tokenID string, shares int64) (*api.PlaceOrderRequest, error) {
	return BuildOrder(tokenID, 0, shares, "sell", "market", false)
}
