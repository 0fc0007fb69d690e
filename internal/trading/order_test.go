package trading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opinionbot/gotrader/pkg/sdk/api"
)

func TestBuildOrder_LimitBuy(t *testing.T) {
	order, err := BuildOrder("tok-1", 0.45, 100, "buy", "limit", false)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", order.TokenID)
	assert.Equal(t, api.SideBuy, order.Side)
	assert.Equal(t, api.OrderTypeLimit, order.OrderType)
	assert.Equal(t, 0.45, order.Price)
	assert.Equal(t, int64(100), order.Shares)
	assert.False(t, order.ReduceOnly)
}

func TestBuildOrder_MarketOmitsPrice(t *testing.T) {
	// 市价单忽略传入的价格，请求里不携带价格
	order, err := BuildOrder("tok-1", 0.99, 50, "sell", "market", false)
	require.NoError(t, err)
	assert.Equal(t, api.OrderTypeMarket, order.OrderType)
	assert.Zero(t, order.Price)
	assert.Equal(t, api.SideSell, order.Side)
}

func TestBuildOrder_CaseInsensitive(t *testing.T) {
	order, err := BuildOrder("tok-1", 0.5, 10, "BUY", "Limit", true)
	require.NoError(t, err)
	assert.Equal(t, api.SideBuy, order.Side)
	assert.Equal(t, api.OrderTypeLimit, order.OrderType)
	assert.True(t, order.ReduceOnly)
}

func TestBuildOrder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		tokenID string
		price   float64
		shares  int64
		side    string
		kind    string
		field   string
	}{
		{"token 为空", "", 0.5, 10, "buy", "limit", "token_id"},
		{"数量为零", "tok-1", 0.5, 0, "buy", "limit", "shares"},
		{"数量为负", "tok-1", 0.5, -5, "buy", "limit", "shares"},
		{"方向非法", "tok-1", 0.5, 10, "hold", "limit", "side"},
		{"类型非法", "tok-1", 0.5, 10, "buy", "stop", "order_type"},
		{"限价单价格为零", "tok-1", 0, 10, "buy", "limit", "price"},
		{"限价单价格为负", "tok-1", -0.1, 10, "buy", "limit", "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := BuildOrder(tt.tokenID, tt.price, tt.shares, tt.side, tt.kind, false)
			require.Error(t, err)
			assert.Nil(t, order)
			require.True(t, IsValidationError(err))
			assert.Equal(t, tt.field, err.(*ValidationError).Field)
		})
	}
}

func TestBuildOrder_MarketIgnoresInvalidPrice(t *testing.T) {
	// 市价单不校验价格
	order, err := BuildOrder("tok-1", -1, 10, "buy", "market", false)
	require.NoError(t, err)
	assert.Zero(t, order.Price)
}

func TestBuildOrder_Helpers(t *testing.T) {
	buy, err := BuildLimitBuy("tok-1", 0.3, 20, false)
	require.NoError(t, err)
	assert.Equal(t, api.SideBuy, buy.Side)

	sell, err := BuildLimitSell("tok-1", 0.7, 20, true)
	require.NoError(t, err)
	assert.Equal(t, api.SideSell, sell.Side)
	assert.True(t, sell.ReduceOnly)

	mbuy, err := BuildMarketBuy("tok-1", 20)
	require.NoError(t, err)
	assert.Equal(t, api.OrderTypeMarket, mbuy.OrderType)

	msell, err := BuildMarketSell("tok-1", 20)
	require.NoError(t, err)
	assert.Equal(t, api.SideSell, msell.Side)
}
