package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
)

const stripeSignatureHeader = "Stripe-Signature"

// StripeGateway opens a PaymentIntent per order and learns the outcome from signed webhooks.
type StripeGateway struct {
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}, nil
}

// zeroDecimal lists the currencies Stripe charges in whole units.
var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true,
	"KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// MinorUnits converts a decimal amount into the smallest unit of the currency.
func MinorUnits(amount float64, currency string) int64 {
	if zeroDecimal[strings.ToUpper(currency)] {
		return int64(math.Round(amount))
	}
	return int64(math.Round(amount * 100))
}

func (g *StripeGateway) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(MinorUnits(req.Amount, req.Currency)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{"receipt_id": req.ReceiptID},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	order := &Order{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: OrderPending}
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		order.Status = OrderSucceeded
	case stripe.PaymentIntentStatusCanceled:
		order.Status = OrderFailed
		order.FailureReason = "payment_canceled"
	}
	return order, nil
}

func (g *StripeGateway) ParseCallback(payload []byte, header http.Header) (*Outcome, error) {
	sig := header.Get(stripeSignatureHeader)
	if sig == "" {
		return nil, fmt.Errorf("%w: missing %s header", ErrInvalidCallback, stripeSignatureHeader)
	}
	event, err := webhook.ConstructEventWithOptions(payload, sig, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
	default:
		return nil, ErrIgnoredEvent
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}

	out := &Outcome{OrderID: pi.ID, TransactionID: pi.ID}
	switch event.Type {
	case "payment_intent.succeeded":
		out.Succeeded = true
	case "payment_intent.canceled":
		out.Reason = "payment_canceled"
	default:
		// The intent returns to requires_payment_method and the buyer can try another card.
		out.Retryable = true
		out.Reason = "payment_failed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			out.Reason = pi.LastPaymentError.Msg
		}
	}
	return out, nil
}

func (g *StripeGateway) CancelOrder(ctx context.Context, orderID string) error {
	params := &stripe.PaymentIntentCancelParams{CancellationReason: stripe.String("abandoned")}
	params.Context = ctx
	_, err := paymentintent.Cancel(orderID, params)
	if err == nil {
		return nil
	}

	var serr *stripe.Error
	if errors.As(err, &serr) && serr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
		get := &stripe.PaymentIntentParams{}
		get.Context = ctx
		pi, gerr := paymentintent.Get(orderID, get)
		if gerr == nil {
			switch pi.Status {
			case stripe.PaymentIntentStatusCanceled:
				return nil
			case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusProcessing:
				return ErrOrderPaid
			}
		}
	}
	return fmt.Errorf("failed to cancel payment intent %s: %w", orderID, err)
}

func (g *StripeGateway) Name() string {
	return "stripe"
}
