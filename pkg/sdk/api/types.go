package api

// Side 订单方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType 订单类型
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// Response 通用响应信封。
// 交易所所有 REST 接口都返回 {errno, errmsg, result}，这里在客户端边界
// 用显式结构解析，下游不做字段存在性探测。
type Response[T any] struct {
	Errno  int    `json:"errno"`
	Errmsg string `json:"errmsg"`
	Result T      `json:"result"`
}

// OK 返回响应是否成功（errno == 0）
func (r *Response[T]) OK() bool {
	return r != nil && r.Errno == 0
}

// PlaceOrderRequest 下单请求。
// 构建完成后不可变：重试时原样重新提交同一个请求。
type PlaceOrderRequest struct {
	TokenID    string    `json:"token_id"`
	Side       Side      `json:"side"`
	OrderType  OrderType `json:"order_type"`
	Price      float64   `json:"price,omitempty"` // 市价单不携带价格
	Shares     int64     `json:"shares"`
	ReduceOnly bool      `json:"reduce_only,omitempty"`
}

// OrderResult 下单成功的原始返回
type OrderResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// CancelResult 撤单返回
type CancelResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// RawPosition 交易所返回的原始持仓条目
type RawPosition struct {
	TokenID      string  `json:"token_id"`
	MarketID     int64   `json:"market_id"`
	MarketTitle  string  `json:"market_title"`
	Outcome      string  `json:"outcome"`
	SharesOwned  float64 `json:"shares_owned"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentValue float64 `json:"current_value"`
	Cost         float64 `json:"cost"`
}

// PositionList 持仓列表载荷
type PositionList struct {
	List []RawPosition `json:"list"`
}

// Market 市场元数据（用于展示与 token 校验）
type Market struct {
	MarketID int64         `json:"market_id"`
	Title    string        `json:"title"`
	Status   string        `json:"status"`
	Tokens   []MarketToken `json:"tokens"`
}

// MarketToken 市场下的可交易 token
type MarketToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}
