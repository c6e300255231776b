// Package availability derives remaining slot capacity from the booking ledger.
// Nothing here is persisted; every call recomputes from the records it is given.
package availability

import (
	"time"

	"github.com/joshua-takyi/slotbook/internal/models"
)

type Occupancy string

const (
	SoldOut   Occupancy = "sold_out"
	Critical  Occupancy = "critical"
	Limited   Occupancy = "limited"
	FewLeft   Occupancy = "few_left"
	Available Occupancy = "available"
)

type SlotAvailability struct {
	Key       models.SlotKey `json:"key"`
	Capacity  int            `json:"capacity"`
	Booked    int            `json:"booked"`
	Available int            `json:"available"`
	Occupancy Occupancy      `json:"occupancy"`
}

// Snapshot is one computed view of a date. Version orders snapshots produced by the same refresher.
type Snapshot struct {
	EntityID  string             `json:"entity_id"`
	Date      string             `json:"date"`
	Version   uint64             `json:"version"`
	FetchedAt time.Time          `json:"fetched_at"`
	Slots     []SlotAvailability `json:"slots"`
}

func (s Snapshot) Lookup(key models.SlotKey) (SlotAvailability, bool) {
	for _, sa := range s.Slots {
		if sa.Key == key {
			return sa, true
		}
	}
	return SlotAvailability{}, false
}

// Tier maps remaining capacity to an occupancy label. The order of the checks matters:
// exactly 10% is critical and exactly 25% is limited.
func Tier(available, capacity int) Occupancy {
	if available <= 0 || capacity <= 0 {
		return SoldOut
	}
	pct := float64(available) / float64(capacity) * 100
	switch {
	case pct <= 10:
		return Critical
	case pct <= 25:
		return Limited
	case pct > 50:
		return Available
	default:
		return FewLeft
	}
}

// Booked sums the quantity of capacity-holding bookings for the slot key.
func Booked(key models.SlotKey, bookings []models.Booking) int {
	total := 0
	for i := range bookings {
		b := &bookings[i]
		if !b.PaymentStatus.HoldsCapacity() || !key.Matches(b) {
			continue
		}
		total += b.Quantity
	}
	return total
}

// Compute returns one entry per catalog slot, in catalog order.
func Compute(slots []models.Slot, bookings []models.Booking) []SlotAvailability {
	out := make([]SlotAvailability, 0, len(slots))
	for _, s := range slots {
		booked := Booked(s.Key, bookings)
		available := s.Capacity - booked
		if available < 0 {
			available = 0
		}
		if available > s.Capacity {
			available = s.Capacity
		}
		out = append(out, SlotAvailability{
			Key:       s.Key,
			Capacity:  s.Capacity,
			Booked:    booked,
			Available: available,
			Occupancy: Tier(available, s.Capacity),
		})
	}
	return out
}
