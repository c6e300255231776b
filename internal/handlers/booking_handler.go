package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/slotbook/internal/helpers"
	"github.com/joshua-takyi/slotbook/internal/payment"
	"github.com/joshua-takyi/slotbook/internal/services"
)

type orderResponse struct {
	OrderID      string              `json:"order_id"`
	ReceiptID    string              `json:"receipt_id"`
	ClientSecret string              `json:"client_secret,omitempty"`
	Status       payment.OrderStatus `json:"status"`
	Amount       float64             `json:"amount"`
	Currency     string              `json:"currency"`
	ExpiresAt    string              `json:"expires_at"`
}

func CreateOrder(bs *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := entityParam(c)
		if !ok {
			return
		}
		var sel services.Selection
		if err := c.ShouldBindJSON(&sel); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}
		sel.EntityID = id.String()
		sel.Buyer.ID = claims.UserID
		if sel.Buyer.Email == "" {
			sel.Buyer.Email = claims.Email
		}

		co, err := bs.CreateOrder(c.Request.Context(), sel)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, helpers.SuccessResponse(orderResponse{
			OrderID:      co.Order.ID,
			ReceiptID:    co.ReceiptID,
			ClientSecret: co.Order.ClientSecret,
			Status:       co.Order.Status,
			Amount:       co.Amount,
			Currency:     co.Currency,
			ExpiresAt:    co.ExpiresAt.UTC().Format(time.RFC3339),
		}, "Order created, complete payment to confirm"))
	}
}

// GetOrder reports the state of an open checkout to the buyer who started it.
func GetOrder(bs *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, ok := currentUser(c)
		if !ok {
			return
		}
		co, found := bs.Checkout(c.Param("order_id"))
		if !found || co.Selection.Buyer.ID != claims.UserID {
			c.JSON(http.StatusNotFound, helpers.ErrorResponse(services.ErrCheckoutNotFound.Error()))
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(gin.H{
			"order_id":   co.Order.ID,
			"state":      co.State(),
			"slot":       co.Key,
			"quantity":   co.Selection.Quantity,
			"amount":     co.Amount,
			"currency":   co.Currency,
			"expires_at": co.ExpiresAt.UTC().Format(time.RFC3339),
		}, ""))
	}
}

// PaymentWebhook receives gateway callbacks. Events that are not ours to act on, duplicates and
// unknown orders are acknowledged so the gateway stops redelivering them.
func PaymentWebhook(bs *services.BookingService, gateway payment.Gateway, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("failed to read body"))
			return
		}
		outcome, err := gateway.ParseCallback(payload, c.Request.Header)
		if errors.Is(err, payment.ErrIgnoredEvent) {
			c.JSON(http.StatusOK, helpers.SuccessResponse(nil, "event ignored"))
			return
		}
		if err != nil {
			logger.Warn("rejected payment callback", "gateway", gateway.Name(), "error", err)
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}
		settle(c, bs, *outcome, logger)
	}
}

// MockSettle resolves a mock order on demand, standing in for the gateway's callback.
func MockSettle(bs *services.BookingService, mock *payment.MockGateway, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome, err := mock.Settle(c.Param("order_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}
		settle(c, bs, *outcome, logger)
	}
}

func settle(c *gin.Context, bs *services.BookingService, outcome payment.Outcome, logger *slog.Logger) {
	booking, err := bs.HandleCallback(c.Request.Context(), outcome)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, helpers.SuccessResponse(booking, "Booking confirmed"))
	case errors.Is(err, services.ErrCheckoutNotFound), errors.Is(err, services.ErrCheckoutClosed):
		if outcome.Succeeded {
			logger.Error("payment succeeded for an order with no open checkout, refund required",
				"order_id", outcome.OrderID, "transaction_id", outcome.TransactionID, "error", err)
		} else {
			logger.Warn("payment callback for unknown or settled order", "order_id", outcome.OrderID, "error", err)
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(nil, "order already settled or unknown"))
	case errors.Is(err, services.ErrGateway) && outcome.Retryable:
		c.JSON(http.StatusOK, helpers.SuccessResponse(nil, "payment attempt failed, reservation still held"))
	case errors.Is(err, services.ErrGateway):
		c.JSON(http.StatusOK, helpers.SuccessResponse(nil, "payment failed, reservation released"))
	default:
		respondError(c, err)
	}
}
