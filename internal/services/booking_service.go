package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joshua-takyi/slotbook/internal/availability"
	"github.com/joshua-takyi/slotbook/internal/dashboard"
	"github.com/joshua-takyi/slotbook/internal/models"
	"github.com/joshua-takyi/slotbook/internal/payment"
)

var (
	ErrGateway          = errors.New("payment gateway error")
	ErrCheckoutClosed   = errors.New("checkout already completed")
	ErrCheckoutBusy     = errors.New("checkout is being settled")
	ErrCheckoutNotFound = errors.New("checkout not found")
	ErrInvalidSelection = errors.New("invalid booking selection")
)

type Buyer struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone"`
}

// Selection is what the buyer picked: one slot, a quantity and, for tiered events, a ticket type.
type Selection struct {
	EntityID   string `json:"entity_id"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Start      string `json:"start" validate:"required,datetime=15:04"`
	End        string `json:"end" validate:"required,datetime=15:04"`
	Quantity   int    `json:"quantity"`
	TicketType string `json:"ticket_type,omitempty"`
	Buyer      Buyer  `json:"buyer"`
}

func (s Selection) Key() models.SlotKey {
	return models.SlotKey{EntityID: s.EntityID, Date: s.Date, Start: s.Start, End: s.End}
}

// UnitPrice is the entity price, or for a tiered entity the price of the named tier. A tiered
// entity only sells tickets of a tier it defines.
func UnitPrice(entity *models.Entity, ticketType string) (float64, error) {
	if len(entity.Tiers) == 0 {
		return entity.Price, nil
	}
	tier, ok := entity.TierByName(ticketType)
	if !ok {
		return 0, fmt.Errorf("%w: unknown ticket type %q", ErrInvalidSelection, ticketType)
	}
	return tier.Price, nil
}

// ValidateSelection checks a selection against the last snapshot the buyer saw and returns the
// total to charge. A quantity above what the snapshot shows means the snapshot is stale.
func ValidateSelection(unitPrice float64, slot availability.SlotAvailability, quantity int) (float64, error) {
	if quantity <= 0 {
		return 0, models.ErrInvalidQuantity
	}
	if quantity > slot.Available {
		return 0, fmt.Errorf("%w: requested %d, %d left", models.ErrInsufficientCapacity, quantity, slot.Available)
	}
	if math.IsNaN(unitPrice) || math.IsInf(unitPrice, 0) || unitPrice < 0 {
		return 0, models.ErrInvalidPrice
	}
	total := unitPrice * float64(quantity)
	if total <= 0 {
		return 0, models.ErrFreeBookingUnsupported
	}
	return total, nil
}

type BookingService struct {
	catalog  *CatalogService
	ledger   models.LedgerRepo
	reserver models.Reserver
	gateway  payment.Gateway
	store    *CheckoutStore
	currency string
	holdTTL  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type BookingServiceConfig struct {
	Currency string
	HoldTTL  time.Duration
}

func NewBookingService(
	catalog *CatalogService,
	ledger models.LedgerRepo,
	reserver models.Reserver,
	gateway payment.Gateway,
	store *CheckoutStore,
	cfg BookingServiceConfig,
	logger *slog.Logger,
) *BookingService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = DefaultHoldTTL
	}
	if store == nil {
		store = NewCheckoutStore()
	}
	return &BookingService{
		catalog:  catalog,
		ledger:   ledger,
		reserver: reserver,
		gateway:  gateway,
		store:    store,
		currency: cfg.Currency,
		holdTTL:  cfg.HoldTTL,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
}

// CreateOrder validates the selection against freshly read availability, reserves the units
// and opens a gateway order. Nothing is written to the ledger until the order is paid.
func (bs *BookingService) CreateOrder(ctx context.Context, sel Selection) (*Checkout, error) {
	ctx, span := bs.tracer.Start(ctx, "booking.CreateOrder", trace.WithAttributes(
		attribute.String("entity.id", sel.EntityID),
		attribute.String("slot.date", sel.Date),
		attribute.String("slot.start", sel.Start),
		attribute.Int("booking.quantity", sel.Quantity),
	))
	defer span.End()

	co, err := bs.createOrder(ctx, sel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", co.Order.ID))
	return co, nil
}

func (bs *BookingService) createOrder(ctx context.Context, sel Selection) (*Checkout, error) {
	if err := models.Validate.Struct(sel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	id, err := uuid.Parse(sel.EntityID)
	if err != nil {
		return nil, models.ErrEntityNotFound
	}
	entity, err := bs.catalog.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	slot, err := entity.FindSlot(sel.Key())
	if err != nil {
		return nil, err
	}

	bookings, err := bs.ledger.ListBookings(ctx, sel.EntityID, models.LedgerScope{Date: sel.Date, Start: sel.Start, End: sel.End})
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	current := availability.Compute([]models.Slot{slot}, bookings)[0]

	unitPrice, err := UnitPrice(entity, sel.TicketType)
	if err != nil {
		return nil, err
	}
	amount, err := ValidateSelection(unitPrice, current, sel.Quantity)
	if err != nil {
		return nil, err
	}

	var tierPool *models.SlotKey
	if len(entity.Tiers) > 0 {
		pool, err := bs.reserveTier(ctx, entity, sel)
		if err != nil {
			return nil, err
		}
		tierPool = &pool
	}
	remaining, err := bs.reserver.Reserve(ctx, models.ReserveRequest{
		Key:      slot.Key,
		Capacity: slot.Capacity,
		Booked:   current.Booked,
		Quantity: sel.Quantity,
	})
	if err != nil {
		bs.releasePool(ctx, tierPool, sel.Quantity)
		return nil, err
	}

	currency := entity.Currency
	if currency == "" {
		currency = bs.currency
	}
	receiptID := uuid.New().String()
	order, err := bs.gateway.CreateOrder(ctx, &payment.OrderRequest{
		Amount:    amount,
		Currency:  currency,
		ReceiptID: receiptID,
		Metadata: map[string]string{
			"entity_id": sel.EntityID,
			"slot":      slot.Key.String(),
			"quantity":  fmt.Sprint(sel.Quantity),
			"buyer_id":  sel.Buyer.ID,
		},
	})
	if err == nil && order.Status == payment.OrderFailed {
		err = errors.New(order.FailureReason)
	}
	if err != nil {
		bs.release(ctx, slot.Key, sel.Quantity)
		bs.releasePool(ctx, tierPool, sel.Quantity)
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	now := bs.now()
	co := &Checkout{
		ReceiptID: receiptID,
		Order:     order,
		Kind:      entity.Kind,
		Key:       slot.Key,
		TierPool:  tierPool,
		Selection: sel,
		Amount:    amount,
		Currency:  currency,
		CreatedAt: now,
		ExpiresAt: now.Add(bs.holdTTL),
		state:     CheckoutOpen,
	}
	bs.store.Put(co)

	bs.logger.Info("checkout opened",
		"order_id", order.ID,
		"gateway", bs.gateway.Name(),
		"slot", slot.Key.String(),
		"quantity", sel.Quantity,
		"remaining", remaining,
	)
	return co, nil
}

// Complete settles a checkout with the gateway's outcome. Success appends a confirmed booking
// and calls onSuccess; the checkout only closes once the ledger write commits, so a failed
// write leaves it open for the gateway's redelivery. A final failure releases the reserved
// units and calls onFailure with the reason. A retryable failure calls onFailure and keeps
// the units held until the buyer pays or the hold expires.
func (bs *BookingService) Complete(
	ctx context.Context,
	co *Checkout,
	outcome payment.Outcome,
	onSuccess func(models.Booking),
	onFailure func(reason string),
) error {
	ctx, span := bs.tracer.Start(ctx, "booking.Complete", trace.WithAttributes(
		attribute.String("order.id", co.Order.ID),
		attribute.Bool("payment.succeeded", outcome.Succeeded),
	))
	defer span.End()

	if !co.begin() {
		if co.State() == CheckoutSettling {
			return ErrCheckoutBusy
		}
		return ErrCheckoutClosed
	}

	if !outcome.Succeeded {
		reason := outcome.Reason
		if reason == "" {
			reason = "payment was not completed"
		}
		if outcome.Retryable {
			co.reopen()
			bs.logger.Info("payment attempt failed", "order_id", co.Order.ID, "reason", reason)
		} else {
			bs.releaseCheckout(ctx, co)
			co.finish(CheckoutFailed)
			bs.store.Remove(co.Order.ID)
			bs.logger.Info("checkout failed", "order_id", co.Order.ID, "reason", reason)
		}
		if onFailure != nil {
			onFailure(reason)
		}
		return nil
	}

	booking := bs.bookingFor(co)
	err := bs.ledger.AppendBooking(ctx, co.Kind, &booking)
	if errors.Is(err, models.ErrBookingExists) {
		bs.logger.Warn("booking already recorded", "booking_id", booking.ID, "order_id", co.Order.ID)
		err = nil
	}
	if err != nil {
		co.reopen()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to record booking: %w", err)
	}
	co.finish(CheckoutCompleted)
	bs.store.Remove(co.Order.ID)

	bs.logger.Info("booking confirmed",
		"booking_id", booking.ID,
		"order_id", co.Order.ID,
		"slot", co.Key.String(),
		"quantity", booking.Quantity,
	)
	if onSuccess != nil {
		onSuccess(booking)
	}
	return nil
}

// HandleCallback completes the checkout an outcome refers to.
func (bs *BookingService) HandleCallback(ctx context.Context, outcome payment.Outcome) (*models.Booking, error) {
	co, ok := bs.store.Get(outcome.OrderID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCheckoutNotFound, outcome.OrderID)
	}
	var (
		booking *models.Booking
		reason  string
	)
	err := bs.Complete(ctx, co, outcome,
		func(b models.Booking) { booking = &b },
		func(r string) { reason = r },
	)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: %s", ErrGateway, reason)
	}
	return booking, nil
}

func (bs *BookingService) Checkout(orderID string) (*Checkout, bool) {
	return bs.store.Get(orderID)
}

func (bs *BookingService) bookingFor(co *Checkout) models.Booking {
	sel := co.Selection
	amount := co.Amount
	b := models.Booking{
		ID:            co.ReceiptID,
		EntityID:      co.Key.EntityID,
		Date:          co.Key.Date,
		Start:         co.Key.Start,
		End:           co.Key.End,
		Quantity:      sel.Quantity,
		Amount:        &amount,
		Currency:      co.Currency,
		BuyerID:       sel.Buyer.ID,
		BuyerName:     sel.Buyer.Name,
		BuyerEmail:    sel.Buyer.Email,
		BuyerPhone:    sel.Buyer.Phone,
		TicketType:    sel.TicketType,
		OrderID:       co.Order.ID,
		PaymentStatus: models.PaymentConfirmed,
		CreatedAt:     bs.now(),
	}
	if sel.TicketType != "" {
		b.Tiers = []models.TierLine{{
			Name:     sel.TicketType,
			Quantity: sel.Quantity,
			Price:    co.Amount / float64(sel.Quantity),
		}}
	}
	return b
}

// reserveTier takes units from the pool every occurrence of a fixed-mode tier shares. Sold
// counts the ledger the same way the dashboard does.
func (bs *BookingService) reserveTier(ctx context.Context, entity *models.Entity, sel Selection) (models.SlotKey, error) {
	tier, _ := entity.TierByName(sel.TicketType)
	all, err := bs.ledger.ListBookings(ctx, sel.EntityID, models.LedgerScope{})
	if err != nil {
		return models.SlotKey{}, fmt.Errorf("failed to read ledger: %w", err)
	}
	sold := 0
	for _, ts := range dashboard.ComputeStats(all, entity.Tiers).Tiers {
		if ts.Name == tier.Name {
			sold = ts.Sold
		}
	}
	if left := tier.Capacity - sold; sel.Quantity > left {
		return models.SlotKey{}, fmt.Errorf("%w: requested %d %s, %d left", models.ErrInsufficientCapacity, sel.Quantity, tier.Name, max(left, 0))
	}

	key := models.TierPoolKey(sel.EntityID, tier.Name)
	_, err = bs.reserver.Reserve(ctx, models.ReserveRequest{
		Key:      key,
		Capacity: tier.Capacity,
		Booked:   sold,
		Quantity: sel.Quantity,
	})
	if err != nil {
		return models.SlotKey{}, err
	}
	return key, nil
}

func (bs *BookingService) release(ctx context.Context, key models.SlotKey, quantity int) {
	if err := bs.reserver.Release(ctx, key, quantity); err != nil {
		bs.logger.Error("failed to release reservation", "slot", key.String(), "quantity", quantity, "error", err)
	}
}

func (bs *BookingService) releasePool(ctx context.Context, pool *models.SlotKey, quantity int) {
	if pool != nil {
		bs.release(ctx, *pool, quantity)
	}
}

func (bs *BookingService) releaseCheckout(ctx context.Context, co *Checkout) {
	bs.release(ctx, co.Key, co.Selection.Quantity)
	bs.releasePool(ctx, co.TierPool, co.Selection.Quantity)
}

// RunHoldSweeper releases the reservation of every checkout left open past its hold.
func (bs *BookingService) RunHoldSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bs.logger.Info("hold sweeper started", "interval", interval, "hold_ttl", bs.holdTTL)
	for {
		select {
		case <-ctx.Done():
			bs.logger.Info("hold sweeper stopped")
			return
		case <-ticker.C:
			bs.sweepExpired(ctx)
		}
	}
}

// sweepExpired cancels the gateway order of each expired checkout before releasing its units.
// A checkout whose order could not be cancelled, or was already paid, keeps its hold and waits
// for the success callback or the next sweep.
func (bs *BookingService) sweepExpired(ctx context.Context) int {
	released := 0
	for _, co := range bs.store.Expired(bs.now()) {
		if !co.begin() {
			continue
		}
		if err := bs.gateway.CancelOrder(ctx, co.Order.ID); err != nil {
			co.reopen()
			if errors.Is(err, payment.ErrOrderPaid) {
				bs.logger.Warn("expired checkout was paid, awaiting callback", "order_id", co.Order.ID)
			} else {
				bs.logger.Error("failed to cancel expired order", "order_id", co.Order.ID, "error", err)
			}
			continue
		}
		bs.releaseCheckout(ctx, co)
		co.finish(CheckoutExpired)
		bs.store.Remove(co.Order.ID)
		released++
		bs.logger.Info("checkout expired", "order_id", co.Order.ID, "slot", co.Key.String())
	}
	if released > 0 {
		bs.logger.Info("expired holds released", "released", released, "open", bs.store.Len())
	}
	return released
}
