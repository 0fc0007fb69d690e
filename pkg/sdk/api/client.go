package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/opinionbot/gotrader/pkg/cache"
	"github.com/opinionbot/gotrader/pkg/ratelimit"
	sdkhttp "github.com/opinionbot/gotrader/pkg/sdk/http"
)

// DefaultHost 交易所 REST 默认地址
const DefaultHost = "https://api.opinion.trade"

// marketCacheTTL 市场元数据缓存时长
const marketCacheTTL = 30 * time.Second

// 交易所按 API key 限流：突发 20 次，长期 10 次/秒
const (
	limiterBurst  = 20
	limiterPerSec = 10
)

// Client 交易所 REST 客户端。
// 每个账户持有独立实例（携带自己的 API key），迭代器保证同一账户
// 同一时刻只有一个操作在执行，因此这里不做额外的并发限制。
type Client struct {
	http        *sdkhttp.Client
	apiKey      string
	limiter     *ratelimit.TokenBucket
	marketCache *cache.TTLCache[int64, *Market]
}

// NewClient 创建交易所客户端
func NewClient(host, apiKey string) *Client {
	if host == "" {
		host = DefaultHost
	}
	return &Client{
		http:        sdkhttp.NewClient(host),
		apiKey:      apiKey,
		limiter:     ratelimit.NewTokenBucket(limiterBurst, limiterPerSec),
		marketCache: cache.NewTTLCache[int64, *Market](marketCacheTTL),
	}
}

// authHeaders 每次请求携带的认证头；X-Request-Id 便于和交易所排查问题
func (c *Client) authHeaders() map[string]string {
	return map[string]string{
		"X-Api-Key":    c.apiKey,
		"X-Request-Id": uuid.NewString(),
	}
}

// PlaceOrder 提交订单。
// 传输层错误返回 error；业务层失败（errno != 0）体现在返回的信封里，
// 由调用方（订单执行器）负责分类。
func (c *Client) PlaceOrder(ctx context.Context, order *PlaceOrderRequest) (*Response[OrderResult], error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out := &Response[OrderResult]{}
	resp, err := c.http.DoRequest(ctx, "POST", "/openapi/order", &sdkhttp.RequestOptions{
		Headers: c.authHeaders(),
		Data:    order,
	}, out)
	if err := sdkhttp.ParseHTTPError(resp, err); err != nil {
		return nil, errors.Wrap(err, "place order")
	}
	return out, nil
}

// CancelOrder 撤销订单
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*Response[CancelResult], error) {
	if orderID == "" {
		return nil, errors.New("orderID is empty")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out := &Response[CancelResult]{}
	resp, err := c.http.DoRequest(ctx, "DELETE", fmt.Sprintf("/openapi/order/%s", orderID), &sdkhttp.RequestOptions{
		Headers: c.authHeaders(),
	}, out)
	if err := sdkhttp.ParseHTTPError(resp, err); err != nil {
		return nil, errors.Wrap(err, "cancel order")
	}
	return out, nil
}

// GetMyPositions 查询当前账户全部持仓
func (c *Client) GetMyPositions(ctx context.Context) (*Response[PositionList], error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out := &Response[PositionList]{}
	resp, err := c.http.DoRequest(ctx, "GET", "/openapi/positions", &sdkhttp.RequestOptions{
		Headers: c.authHeaders(),
	}, out)
	if err := sdkhttp.ParseHTTPError(resp, err); err != nil {
		return nil, errors.Wrap(err, "get positions")
	}
	return out, nil
}

// GetMarket 查询市场元数据（带短 TTL 缓存，批量下单时避免重复拉取）
func (c *Client) GetMarket(ctx context.Context, marketID int64) (*Market, error) {
	if m, ok := c.marketCache.Get(marketID); ok {
		return m, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out := &Response[Market]{}
	resp, err := c.http.DoRequest(ctx, "GET", fmt.Sprintf("/openapi/market/%d", marketID), &sdkhttp.RequestOptions{
		Headers: c.authHeaders(),
	}, out)
	if err := sdkhttp.ParseHTTPError(resp, err); err != nil {
		return nil, errors.Wrap(err, "get market")
	}
	if !out.OK() {
		return nil, errors.Errorf("get market %d: errno=%d %s", marketID, out.Errno, out.Errmsg)
	}

	m := out.Result
	c.marketCache.Set(marketID, &m, 0)
	return &m, nil
}
