package api

import (
	"context"
	"sync"
)

// MockTradingClient is a scriptable trading client for tests.
// 按调用顺序消费注入的响应/错误，并统计每个方法的调用次数。
type MockTradingClient struct {
	mu sync.Mutex

	// Response data
	OrderResponse    *Response[OrderResult]
	CancelResponse   *Response[CancelResult]
	PositionResponse *Response[PositionList]

	// PositionScript: 如果非空，每次 GetMyPositions 依次返回其中一项，
	// 消费完后停在最后一项（用于模拟持仓收敛过程）。
	PositionScript []*Response[PositionList]
	scriptPos      int

	// OrderScript: 如果非空，每次 PlaceOrder 依次返回其中一项（用于模拟
	// 先失败后成功的重试场景）。
	OrderScript []*Response[OrderResult]
	orderPos    int

	// Call tracking
	Calls map[string]int

	// Error injection: 方法名 -> 队列中的传输层错误
	ErrorQueue map[string][]error
}

// NewMockTradingClient creates a mock client with empty defaults.
func NewMockTradingClient() *MockTradingClient {
	return &MockTradingClient{
		OrderResponse:    &Response[OrderResult]{Errno: 0, Result: OrderResult{OrderID: "mock-order", Status: "open"}},
		CancelResponse:   &Response[CancelResult]{Errno: 0, Result: CancelResult{OrderID: "mock-order", Status: "canceled"}},
		PositionResponse: &Response[PositionList]{Errno: 0},
		Calls:            make(map[string]int),
		ErrorQueue:       make(map[string][]error),
	}
}

// InjectError 给指定方法追加一个传输层错误（按调用顺序消费）
func (m *MockTradingClient) InjectError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorQueue[method] = append(m.ErrorQueue[method], err)
}

// CallCount 返回方法的调用次数
func (m *MockTradingClient) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[method]
}

func (m *MockTradingClient) trackCall(name string) error {
	m.Calls[name]++
	if q := m.ErrorQueue[name]; len(q) > 0 {
		err := q[0]
		m.ErrorQueue[name] = q[1:]
		return err
	}
	return nil
}

// PlaceOrder implements ports.OrderPlacer.
func (m *MockTradingClient) PlaceOrder(ctx context.Context, order *PlaceOrderRequest) (*Response[OrderResult], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.trackCall("PlaceOrder"); err != nil {
		return nil, err
	}
	if len(m.OrderScript) > 0 {
		resp := m.OrderScript[m.orderPos]
		if m.orderPos < len(m.OrderScript)-1 {
			m.orderPos++
		}
		return resp, nil
	}
	return m.OrderResponse, nil
}

// CancelOrder implements ports.OrderCanceler.
func (m *MockTradingClient) CancelOrder(ctx context.Context, orderID string) (*Response[CancelResult], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.trackCall("CancelOrder"); err != nil {
		return nil, err
	}
	return m.CancelResponse, nil
}

// GetMyPositions implements ports.PositionReader.
func (m *MockTradingClient) GetMyPositions(ctx context.Context) (*Response[PositionList], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.trackCall("GetMyPositions"); err != nil {
		return nil, err
	}
	if len(m.PositionScript) > 0 {
		resp := m.PositionScript[m.scriptPos]
		if m.scriptPos < len(m.PositionScript)-1 {
			m.scriptPos++
		}
		return resp, nil
	}
	return m.PositionResponse, nil
}
