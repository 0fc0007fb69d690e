package trading

import (
	"context"
	"time"

	"github.com/opinionbot/gotrader/internal/ports"
	"github.com/opinionbot/gotrader/pkg/logger"
	"github.com/opinionbot/gotrader/pkg/sdk/api"
)

// DefaultMaxRetries 默认重试次数（总尝试次数 = maxRetries + 1）
const DefaultMaxRetries = 2

// retryBackoff 重试前的固定等待。
// 该交易所的瞬时错误（网络抖动/nonce 冲突）一般在一个间隔内自行恢复，
// 固定退避足够，不需要指数退避。
const retryBackoff = 500 * time.Millisecond

// TranslateFunc 错误信息翻译函数；nil 时原文透传
type TranslateFunc func(string) string

// OrderOutcome 单次订单执行的结果。
// 成功时携带交易所原始返回；失败时携带翻译后的错误信息。
// 创建后不再修改。
type OrderOutcome struct {
	Success bool
	Result  *api.OrderResult
	Err     string
}

// Execute 提交订单并分类结果。
// errno == 0 视为成功；errno != 0 或传输层错误都转成失败 outcome，
// 这个调用永远不把 error 抛给上层。
func Execute(ctx context.Context, client ports.OrderPlacer, order *api.PlaceOrderRequest, translate TranslateFunc) OrderOutcome {
	resp, err := client.PlaceOrder(ctx, order)
	if err != nil {
		msg := err.Error()
		if translate != nil {
			msg = translate(msg)
		}
		return OrderOutcome{Success: false, Err: msg}
	}

	if resp.OK() {
		result := resp.Result
		return OrderOutcome{Success: true, Result: &result}
	}

	msg := resp.Errmsg
	if msg == "" {
		msg = "未知错误"
	}
	if translate != nil {
		msg = translate(msg)
	}
	return OrderOutcome{Success: false, Err: msg}
}

// ExecuteWithRetry 带重试的订单执行。
// 最多尝试 maxRetries+1 次，每次失败后固定等待 500ms。
// 第一次成功立即返回；全部失败时返回最后一次的错误信息
// （越晚的失败越接近根因，早期错误不保留）。
// 每次尝试都是重新提交同一个不可变请求，没有需要回滚的中间状态。
func ExecuteWithRetry(ctx context.Context, client ports.OrderPlacer, order *api.PlaceOrderRequest, maxRetries int, translate TranslateFunc) OrderOutcome {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var last OrderOutcome
	for attempt := 0; attempt <= maxRetries; attempt++ {
		last = Execute(ctx, client, order, translate)
		if last.Success {
			return last
		}
		if attempt < maxRetries {
			logger.Debugf("下单失败，%v 后重试 (%d/%d): %s", retryBackoff, attempt+1, maxRetries, last.Err)
			time.Sleep(retryBackoff)
		}
	}
	return last
}
