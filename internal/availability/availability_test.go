package availability

import (
	"testing"

	"github.com/joshua-takyi/slotbook/internal/models"
	"github.com/stretchr/testify/assert"
)

func slotKey(start, end string) models.SlotKey {
	return models.SlotKey{EntityID: "act-1", Date: "2026-10-19", Start: start, End: end}
}

func booking(key models.SlotKey, qty int, status models.PaymentStatus) models.Booking {
	return models.Booking{
		EntityID:      key.EntityID,
		Date:          key.Date,
		Start:         key.Start,
		End:           key.End,
		Quantity:      qty,
		PaymentStatus: status,
	}
}

func TestTierBoundaries(t *testing.T) {
	cases := []struct {
		booked int
		want   Occupancy
	}{
		{booked: 0, want: Available},
		{booked: 49, want: Available},
		{booked: 50, want: FewLeft},
		{booked: 74, want: FewLeft},
		{booked: 75, want: Limited},
		{booked: 89, want: Limited},
		{booked: 90, want: Critical},
		{booked: 99, want: Critical},
		{booked: 100, want: SoldOut},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Tier(100-tc.booked, 100), "booked=%d", tc.booked)
	}
}

func TestTierZeroCapacity(t *testing.T) {
	assert.Equal(t, SoldOut, Tier(0, 0))
}

func TestComputeClampsAndMatchesExactKey(t *testing.T) {
	morning := slotKey("09:00", "10:00")
	evening := slotKey("18:00", "19:00")
	slots := []models.Slot{
		{Key: morning, Capacity: 10},
		{Key: evening, Capacity: 5},
	}
	bookings := []models.Booking{
		booking(morning, 4, models.PaymentConfirmed),
		booking(morning, 2, models.PaymentPending),
		booking(morning, 3, models.PaymentRefunded),
		booking(slotKey("9:00", "10:00"), 5, models.PaymentConfirmed),
		booking(evening, 7, models.PaymentConfirmed),
	}

	got := Compute(slots, bookings)

	assert.Len(t, got, 2)
	assert.Equal(t, 6, got[0].Booked)
	assert.Equal(t, 4, got[0].Available)
	assert.Equal(t, FewLeft, got[0].Occupancy)

	assert.Equal(t, 7, got[1].Booked)
	assert.Equal(t, 0, got[1].Available)
	assert.Equal(t, SoldOut, got[1].Occupancy)

	for _, sa := range got {
		assert.GreaterOrEqual(t, sa.Available, 0)
		assert.LessOrEqual(t, sa.Available, sa.Capacity)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	key := slotKey("09:00", "10:00")
	slots := []models.Slot{{Key: key, Capacity: 20}}
	bookings := []models.Booking{booking(key, 3, models.PaymentConfirmed)}

	first := Compute(slots, bookings)
	second := Compute(slots, bookings)
	assert.Equal(t, first, second)
}

func TestSnapshotLookup(t *testing.T) {
	key := slotKey("09:00", "10:00")
	snap := Snapshot{Slots: Compute([]models.Slot{{Key: key, Capacity: 2}}, nil)}

	sa, ok := snap.Lookup(key)
	assert.True(t, ok)
	assert.Equal(t, 2, sa.Available)

	_, ok = snap.Lookup(slotKey("10:00", "11:00"))
	assert.False(t, ok)
}
