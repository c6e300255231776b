// Package payment wraps the external payment gateway behind a small interface. The booking flow
// only needs to open an order and later learn whether it was paid.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderSucceeded OrderStatus = "succeeded"
	OrderFailed    OrderStatus = "failed"
)

var (
	ErrInvalidAmount   = errors.New("payment: amount must be greater than zero")
	ErrInvalidCallback = errors.New("payment: invalid callback payload")
	ErrIgnoredEvent    = errors.New("payment: event type not handled")
	ErrOrderPaid       = errors.New("payment: order already paid")
)

type OrderRequest struct {
	Amount    float64
	Currency  string
	ReceiptID string
	Metadata  map[string]string
}

// Order is what the buyer's client needs to finish paying.
type Order struct {
	ID            string      `json:"id"`
	Status        OrderStatus `json:"status"`
	ClientSecret  string      `json:"client_secret,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
}

// Outcome is the gateway's verdict on an order, delivered through a callback. A Retryable
// failure is one attempt that failed while the order stays payable, such as a declined card.
type Outcome struct {
	OrderID       string `json:"order_id"`
	Succeeded     bool   `json:"succeeded"`
	Retryable     bool   `json:"retryable,omitempty"`
	Reason        string `json:"reason,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)
	// ParseCallback verifies and decodes a gateway callback. Events that say nothing about an
	// order's outcome return ErrIgnoredEvent.
	ParseCallback(payload []byte, header http.Header) (*Outcome, error)
	// CancelOrder stops an order from being paid. It returns ErrOrderPaid when the buyer
	// already paid, and nil when the order was already cancelled.
	CancelOrder(ctx context.Context, orderID string) error
	Name() string
}

type Config struct {
	Kind          string
	SecretKey     string
	WebhookSecret string
}

// New picks the gateway implementation by name, defaulting to the mock.
func New(cfg Config) (Gateway, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "mock":
		return NewMockGateway(1.0), nil
	case "stripe":
		return NewStripeGateway(cfg.SecretKey, cfg.WebhookSecret)
	default:
		return nil, fmt.Errorf("unsupported payment gateway: %s", cfg.Kind)
	}
}

func validateRequest(req *OrderRequest) error {
	if req == nil {
		return fmt.Errorf("order request is required")
	}
	if !(req.Amount > 0) {
		return ErrInvalidAmount
	}
	return nil
}
