package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func decode(t *testing.T, doc any) (RawBooking, error) {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	return DecodeRawBooking(raw)
}

func TestDecodeRawBooking_Legacy(t *testing.T) {
	created := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	rb, err := decode(t, bson.M{
		"_id":              "att-1",
		"eventId":          "evt-1",
		"name":             "Ama Mensah",
		"email":            "ama@example.com",
		"ticketQuantities": bson.M{"VIP": 2, "Regular": 1, "Student": 0},
		"sessionDate":      "2025-06-05",
		"startTime":        "19:00",
		"endTime":          "23:00",
		"createdAt":        created,
		"checkedIn":        true,
	})
	require.NoError(t, err)
	assert.Equal(t, ShapeLegacy, rb.Shape)

	b, err := rb.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "evt-1", b.EntityID)
	assert.Equal(t, 3, b.Quantity)
	assert.Equal(t, []TierLine{{Name: "Regular", Quantity: 1}, {Name: "VIP", Quantity: 2}}, b.Tiers)
	assert.Nil(t, b.Amount)
	assert.Equal(t, PaymentConfirmed, b.PaymentStatus, "rows without a status were written after payment")
	assert.True(t, b.CheckedIn)
	assert.True(t, created.Equal(b.CreatedAt))
	assert.Equal(t, SlotKey{EntityID: "evt-1", Date: "2025-06-05", Start: "19:00", End: "23:00"}, b.Key())
}

func TestDecodeRawBooking_LegacyExplicitAmount(t *testing.T) {
	rb, err := decode(t, bson.M{
		"_id":              "att-2",
		"eventId":          "evt-1",
		"individualAmount": 250.0,
		"paymentStatus":    "refunded",
	})
	require.NoError(t, err)

	b, err := rb.Normalize()
	require.NoError(t, err)
	require.NotNil(t, b.Amount)
	assert.Equal(t, 250.0, *b.Amount)
	assert.Equal(t, 1, b.Quantity)
	assert.Equal(t, PaymentRefunded, b.PaymentStatus)
	assert.False(t, b.PaymentStatus.HoldsCapacity())
}

func TestDecodeRawBooking_Session(t *testing.T) {
	rb, err := decode(t, bson.M{
		"_id":        "bk-1",
		"activityId": "act-1",
		"sessionId":  "sess-9",
		"date":       "2025-06-02",
		"startTime":  "09:00",
		"endTime":    "10:00",
		"quantity":   4,
		"amount":     120.0,
		"buyer":      bson.M{"id": "u1", "name": "Kofi", "email": "kofi@example.com", "phone": "0244"},
		"status":     "paid",
	})
	require.NoError(t, err)
	assert.Equal(t, ShapeSession, rb.Shape)

	b, err := rb.Normalize()
	require.NoError(t, err)
	assert.Equal(t, "act-1", b.EntityID)
	assert.Equal(t, "sess-9", b.SessionID)
	assert.Equal(t, 4, b.Quantity)
	assert.Equal(t, "Kofi", b.BuyerName)
	assert.Equal(t, "0244", b.BuyerPhone)
	assert.Equal(t, PaymentConfirmed, b.PaymentStatus)
}

func TestDecodeRawBooking_UnknownShape(t *testing.T) {
	_, err := decode(t, bson.M{"_id": "x", "foo": "bar"})
	assert.ErrorIs(t, err, ErrUnknownBookingShape)

	_, err = RawBooking{Shape: ShapeLegacy}.Normalize()
	assert.ErrorIs(t, err, ErrUnknownBookingShape)
}

func TestBookingEncodesIntoBothShapes(t *testing.T) {
	amount := 90.0
	b := Booking{
		ID: "b1", EntityID: "e1", Date: "2025-06-02", Start: "09:00", End: "10:00",
		Quantity: 3, Amount: &amount, BuyerName: "Esi", TicketType: "Regular",
		PaymentStatus: PaymentConfirmed, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	rb, err := decode(t, b.ToSession())
	require.NoError(t, err)
	assert.Equal(t, ShapeSession, rb.Shape)
	got, err := rb.Normalize()
	require.NoError(t, err)
	assert.Equal(t, b.Key(), got.Key())
	assert.Equal(t, 3, got.Quantity)

	rb, err = decode(t, b.ToLegacy())
	require.NoError(t, err)
	assert.Equal(t, ShapeLegacy, rb.Shape)
	got, err = rb.Normalize()
	require.NoError(t, err)
	assert.Equal(t, b.Key(), got.Key())
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, []TierLine{{Name: "Regular", Quantity: 3}}, got.Tiers)
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]PaymentStatus{
		"":          PaymentConfirmed,
		"completed": PaymentConfirmed,
		"created":   PaymentPending,
		"pending":   PaymentPending,
		"canceled":  PaymentCancelled,
		"failed":    PaymentCancelled,
		"refunded":  PaymentRefunded,
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeStatus(in), in)
	}
}
