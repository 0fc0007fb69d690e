package trading

import (
	"fmt"
	"regexp"
	"strings"
)

// minValueRe 匹配交易所的最低下单金额错误
var minValueRe = regexp.MustCompile(`Order value ([\d.]+) USDT is below the minimum required value of ([\d.]+) USDT`)

// TranslateError 把交易所常见错误信息翻译成简短中文。
// 不认识的信息原样返回（过长时截断）。
func TranslateError(errmsg string) string {
	if errmsg == "" {
		return "未知错误"
	}

	// 最低金额错误
	if m := minValueRe.FindStringSubmatch(errmsg); m != nil {
		return fmt.Sprintf("金额$%s低于最低要求$%s", m[1], m[2])
	}

	lower := strings.ToLower(errmsg)

	// 余额不足
	if strings.Contains(lower, "insufficient") || strings.Contains(lower, "balance") {
		return "余额不足"
	}

	// 地区限制
	if strings.Contains(lower, "region") || strings.Contains(lower, "country") || strings.Contains(lower, "restricted") {
		return "地区限制"
	}

	// 订单不存在
	if strings.Contains(lower, "order not found") {
		return "订单不存在"
	}

	// 市场已关闭
	if strings.Contains(lower, "market") && (strings.Contains(lower, "closed") || strings.Contains(lower, "resolved")) {
		return "市场已关闭"
	}

	// 价格超出范围
	if strings.Contains(lower, "price") && (strings.Contains(lower, "invalid") || strings.Contains(lower, "range")) {
		return "价格无效"
	}

	// 数量错误
	if strings.Contains(lower, "quantity") || strings.Contains(lower, "shares") {
		if strings.Contains(lower, "minimum") {
			return "数量低于最小要求"
		}
		if strings.Contains(lower, "maximum") {
			return "数量超过最大限制"
		}
	}

	// 网络错误
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "connection") {
		return "网络超时"
	}

	// 没有匹配时返回原始消息（截断过长的消息）
	runes := []rune(errmsg)
	if len(runes) > 50 {
		return string(runes[:47]) + "..."
	}
	return errmsg
}
