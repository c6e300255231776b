package models

import (
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentRefunded  PaymentStatus = "refunded"
	PaymentCancelled PaymentStatus = "cancelled"
)

// HoldsCapacity reports whether a booking in this status still consumes slot capacity.
func (s PaymentStatus) HoldsCapacity() bool {
	return s == PaymentConfirmed || s == PaymentPending
}

type TierLine struct {
	Name     string  `bson:"name" json:"name"`
	Quantity int     `bson:"quantity" json:"quantity"`
	Price    float64 `bson:"price,omitempty" json:"price,omitempty"`
}

// Booking is the normalized ledger record every calculator and aggregator works on.
// Only CheckedIn and CheckInTime change after the record is written.
type Booking struct {
	ID            string        `json:"id"`
	EntityID      string        `json:"entity_id"`
	Date          string        `json:"date"`
	Start         string        `json:"start"`
	End           string        `json:"end"`
	SessionID     string        `json:"session_id,omitempty"`
	Quantity      int           `json:"quantity"`
	Amount        *float64      `json:"amount,omitempty"`
	Currency      string        `json:"currency,omitempty"`
	BuyerID       string        `json:"buyer_id,omitempty"`
	BuyerName     string        `json:"name,omitempty"`
	BuyerEmail    string        `json:"email,omitempty"`
	BuyerPhone    string        `json:"phone,omitempty"`
	TicketType    string        `json:"ticket_type,omitempty"`
	Tiers         []TierLine    `json:"tiers,omitempty"`
	OrderID       string        `json:"order_id,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CheckedIn     bool          `json:"checked_in"`
	CheckInTime   *time.Time    `json:"check_in_time,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (b *Booking) Key() SlotKey {
	return SlotKey{EntityID: b.EntityID, Date: b.Date, Start: b.Start, End: b.End}
}

type BookingShape string

const (
	ShapeLegacy  BookingShape = "legacy"
	ShapeSession BookingShape = "session"
)

// LegacyBooking is the attendee document kept in eventAttendees.
type LegacyBooking struct {
	ID               string         `bson:"_id"`
	EventID          string         `bson:"eventId"`
	UserID           string         `bson:"userId,omitempty"`
	Name             string         `bson:"name,omitempty"`
	Email            string         `bson:"email,omitempty"`
	Phone            string         `bson:"phone,omitempty"`
	TicketType       string         `bson:"ticketType,omitempty"`
	TicketQuantities map[string]int `bson:"ticketQuantities,omitempty"`
	IndividualAmount *float64       `bson:"individualAmount,omitempty"`
	SessionDate      string         `bson:"sessionDate,omitempty"`
	StartTime        string         `bson:"startTime,omitempty"`
	EndTime          string         `bson:"endTime,omitempty"`
	PaymentStatus    string         `bson:"paymentStatus,omitempty"`
	OrderID          string         `bson:"orderId,omitempty"`
	CheckedIn        bool           `bson:"checkedIn"`
	CheckInTime      *time.Time     `bson:"checkInTime,omitempty"`
	CreatedAt        time.Time      `bson:"createdAt"`
}

type SessionBuyer struct {
	ID    string `bson:"id,omitempty"`
	Name  string `bson:"name,omitempty"`
	Email string `bson:"email,omitempty"`
	Phone string `bson:"phone,omitempty"`
}

// SessionBooking is the session-centric document kept in activity_bookings.
type SessionBooking struct {
	ID          string       `bson:"_id"`
	ActivityID  string       `bson:"activityId"`
	SessionID   string       `bson:"sessionId,omitempty"`
	Date        string       `bson:"date"`
	StartTime   string       `bson:"startTime"`
	EndTime     string       `bson:"endTime"`
	Quantity    int          `bson:"quantity"`
	Amount      *float64     `bson:"amount,omitempty"`
	Currency    string       `bson:"currency,omitempty"`
	TicketType  string       `bson:"ticketType,omitempty"`
	Buyer       SessionBuyer `bson:"buyer"`
	Status      string       `bson:"status"`
	OrderID     string       `bson:"orderId,omitempty"`
	CheckedIn   bool         `bson:"checkedIn"`
	CheckInTime *time.Time   `bson:"checkInTime,omitempty"`
	CreatedAt   time.Time    `bson:"createdAt"`
}

// RawBooking is either shape as read from the store. Exactly one of Legacy and Session is set.
type RawBooking struct {
	Shape   BookingShape
	Legacy  *LegacyBooking
	Session *SessionBooking
}

// DecodeRawBooking detects the document shape by field presence and decodes it.
func DecodeRawBooking(raw bson.Raw) (RawBooking, error) {
	if _, err := raw.LookupErr("activityId"); err == nil {
		var s SessionBooking
		if err := bson.Unmarshal(raw, &s); err != nil {
			return RawBooking{}, fmt.Errorf("decode session booking: %w", err)
		}
		return RawBooking{Shape: ShapeSession, Session: &s}, nil
	}
	if _, err := raw.LookupErr("sessionId"); err == nil {
		var s SessionBooking
		if err := bson.Unmarshal(raw, &s); err != nil {
			return RawBooking{}, fmt.Errorf("decode session booking: %w", err)
		}
		return RawBooking{Shape: ShapeSession, Session: &s}, nil
	}
	if _, err := raw.LookupErr("eventId"); err == nil {
		var l LegacyBooking
		if err := bson.Unmarshal(raw, &l); err != nil {
			return RawBooking{}, fmt.Errorf("decode legacy booking: %w", err)
		}
		return RawBooking{Shape: ShapeLegacy, Legacy: &l}, nil
	}
	return RawBooking{}, ErrUnknownBookingShape
}

// Normalize folds either shape into a Booking.
func (r RawBooking) Normalize() (Booking, error) {
	switch {
	case r.Shape == ShapeSession && r.Session != nil:
		s := r.Session
		return Booking{
			ID:            s.ID,
			EntityID:      s.ActivityID,
			Date:          s.Date,
			Start:         s.StartTime,
			End:           s.EndTime,
			SessionID:     s.SessionID,
			Quantity:      s.Quantity,
			Amount:        s.Amount,
			Currency:      s.Currency,
			BuyerID:       s.Buyer.ID,
			BuyerName:     s.Buyer.Name,
			BuyerEmail:    s.Buyer.Email,
			BuyerPhone:    s.Buyer.Phone,
			TicketType:    s.TicketType,
			OrderID:       s.OrderID,
			PaymentStatus: normalizeStatus(s.Status),
			CheckedIn:     s.CheckedIn,
			CheckInTime:   s.CheckInTime,
			CreatedAt:     s.CreatedAt,
		}, nil

	case r.Shape == ShapeLegacy && r.Legacy != nil:
		l := r.Legacy
		b := Booking{
			ID:            l.ID,
			EntityID:      l.EventID,
			Date:          l.SessionDate,
			Start:         l.StartTime,
			End:           l.EndTime,
			Amount:        l.IndividualAmount,
			BuyerID:       l.UserID,
			BuyerName:     l.Name,
			BuyerEmail:    l.Email,
			BuyerPhone:    l.Phone,
			TicketType:    l.TicketType,
			OrderID:       l.OrderID,
			PaymentStatus: normalizeStatus(l.PaymentStatus),
			CheckedIn:     l.CheckedIn,
			CheckInTime:   l.CheckInTime,
			CreatedAt:     l.CreatedAt,
		}
		for name, qty := range l.TicketQuantities {
			if qty <= 0 {
				continue
			}
			b.Tiers = append(b.Tiers, TierLine{Name: name, Quantity: qty})
			b.Quantity += qty
		}
		sortTierLines(b.Tiers)
		if b.Quantity == 0 {
			b.Quantity = 1
		}
		return b, nil
	}
	return Booking{}, ErrUnknownBookingShape
}

// ToSession encodes a booking in the session-centric shape.
func (b *Booking) ToSession() SessionBooking {
	return SessionBooking{
		ID:          b.ID,
		ActivityID:  b.EntityID,
		SessionID:   b.SessionID,
		Date:        b.Date,
		StartTime:   b.Start,
		EndTime:     b.End,
		Quantity:    b.Quantity,
		Amount:      b.Amount,
		Currency:    b.Currency,
		TicketType:  b.TicketType,
		Buyer:       SessionBuyer{ID: b.BuyerID, Name: b.BuyerName, Email: b.BuyerEmail, Phone: b.BuyerPhone},
		Status:      string(b.PaymentStatus),
		OrderID:     b.OrderID,
		CheckedIn:   b.CheckedIn,
		CheckInTime: b.CheckInTime,
		CreatedAt:   b.CreatedAt,
	}
}

// ToLegacy encodes a booking in the attendee shape.
func (b *Booking) ToLegacy() LegacyBooking {
	quantities := make(map[string]int, len(b.Tiers))
	for _, t := range b.Tiers {
		quantities[t.Name] += t.Quantity
	}
	if len(quantities) == 0 && b.TicketType != "" {
		quantities[b.TicketType] = b.Quantity
	}
	return LegacyBooking{
		ID:               b.ID,
		EventID:          b.EntityID,
		UserID:           b.BuyerID,
		Name:             b.BuyerName,
		Email:            b.BuyerEmail,
		Phone:            b.BuyerPhone,
		TicketType:       b.TicketType,
		TicketQuantities: quantities,
		IndividualAmount: b.Amount,
		SessionDate:      b.Date,
		StartTime:        b.Start,
		EndTime:          b.End,
		PaymentStatus:    string(b.PaymentStatus),
		OrderID:          b.OrderID,
		CheckedIn:        b.CheckedIn,
		CheckInTime:      b.CheckInTime,
		CreatedAt:        b.CreatedAt,
	}
}

// normalizeStatus maps legacy spellings onto PaymentStatus. Rows written before payment
// tracking existed carry no status and were only stored after a successful payment.
func normalizeStatus(s string) PaymentStatus {
	switch s {
	case "", "confirmed", "paid", "success", "completed":
		return PaymentConfirmed
	case "pending", "created":
		return PaymentPending
	case "refunded":
		return PaymentRefunded
	case "cancelled", "canceled", "failed":
		return PaymentCancelled
	default:
		return PaymentStatus(s)
	}
}

func sortTierLines(lines []TierLine) {
	sort.Slice(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
}
