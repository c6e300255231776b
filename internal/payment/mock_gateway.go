package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// MockGateway accepts every order and settles it on demand with a configurable success rate.
// Callbacks are plain JSON Outcome bodies.
type MockGateway struct {
	mu          sync.RWMutex
	successRate float64
	orders      map[string]*OrderRequest
	settled     map[string]OrderStatus
}

func NewMockGateway(successRate float64) *MockGateway {
	g := &MockGateway{
		orders:  make(map[string]*OrderRequest),
		settled: make(map[string]OrderStatus),
	}
	g.SetSuccessRate(successRate)
	return g
}

func (g *MockGateway) SetSuccessRate(rate float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	g.successRate = rate
}

func (g *MockGateway) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("mock_order_%s", uuid.New().String()[:8])

	g.mu.Lock()
	g.orders[id] = req
	g.mu.Unlock()

	return &Order{ID: id, Status: OrderPending, ClientSecret: id + "_secret"}, nil
}

// Settle decides the outcome of an order the way a buyer paying would.
func (g *MockGateway) Settle(orderID string) (*Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.orders[orderID]; !ok {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	delete(g.orders, orderID)

	if rand.Float64() < g.successRate {
		g.settled[orderID] = OrderSucceeded
		return &Outcome{OrderID: orderID, Succeeded: true, TransactionID: "mock_txn_" + uuid.New().String()[:8]}, nil
	}
	g.settled[orderID] = OrderFailed
	return &Outcome{OrderID: orderID, Reason: "card_declined"}, nil
}

// CancelOrder drops a pending order so it can no longer be settled.
func (g *MockGateway) CancelOrder(_ context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.orders[orderID]; ok {
		delete(g.orders, orderID)
		g.settled[orderID] = OrderFailed
		return nil
	}
	switch g.settled[orderID] {
	case OrderSucceeded:
		return ErrOrderPaid
	case OrderFailed:
		return nil
	}
	return fmt.Errorf("order not found: %s", orderID)
}

func (g *MockGateway) ParseCallback(payload []byte, _ http.Header) (*Outcome, error) {
	var out Outcome
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	if out.OrderID == "" {
		return nil, fmt.Errorf("%w: order_id is required", ErrInvalidCallback)
	}
	return &out, nil
}

func (g *MockGateway) Name() string {
	return "mock"
}
