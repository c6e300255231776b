// Package dashboard rolls a ledger slice up into the organizer's attendee view.
// Everything here is pure; access checks happen in the service layer.
package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/joshua-takyi/slotbook/internal/models"
)

type StatusFilter string

const (
	StatusAll          StatusFilter = "all"
	StatusCheckedIn    StatusFilter = "checked-in"
	StatusNotCheckedIn StatusFilter = "not-checked-in"
	StatusConfirmed    StatusFilter = "confirmed"
)

func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch StatusFilter(s) {
	case "", StatusAll:
		return StatusAll, true
	case StatusCheckedIn, StatusNotCheckedIn, StatusConfirmed:
		return StatusFilter(s), true
	}
	return "", false
}

func (f StatusFilter) match(b *models.Booking) bool {
	switch f {
	case StatusCheckedIn:
		return b.CheckedIn
	case StatusNotCheckedIn:
		return !b.CheckedIn
	case StatusConfirmed:
		return b.PaymentStatus == models.PaymentConfirmed
	default:
		return true
	}
}

// Filter keeps records whose name, email or phone contains term (case-insensitive) and whose
// status passes the filter. An empty term matches everything.
func Filter(records []models.Booking, term string, status StatusFilter) []models.Booking {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Booking, 0, len(records))
	for i := range records {
		b := &records[i]
		if !status.match(b) {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(b.BuyerName), term) &&
			!strings.Contains(strings.ToLower(b.BuyerEmail), term) &&
			!strings.Contains(strings.ToLower(b.BuyerPhone), term) {
			continue
		}
		out = append(out, *b)
	}
	return out
}

type SortKey string

const (
	SortName        SortKey = "name"
	SortEmail       SortKey = "email"
	SortTicketType  SortKey = "ticket_type"
	SortAmount      SortKey = "amount"
	SortQuantity    SortKey = "quantity"
	SortCreatedAt   SortKey = "created_at"
	SortCheckInTime SortKey = "check_in_time"
	SortStatus      SortKey = "status"
)

var sortKeys = map[SortKey]bool{
	SortName: true, SortEmail: true, SortTicketType: true, SortAmount: true,
	SortQuantity: true, SortCreatedAt: true, SortCheckInTime: true, SortStatus: true,
}

func ParseSortKey(s string) (SortKey, bool) {
	if s == "" {
		return SortCreatedAt, true
	}
	k := SortKey(s)
	return k, sortKeys[k]
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// Sort returns a stably sorted copy. Records with no value for the key always go last.
func Sort(records []models.Booking, key SortKey, dir Direction) []models.Booking {
	out := make([]models.Booking, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		ci, di := field(&out[i], key)
		cj, dj := field(&out[j], key)
		if di != dj {
			return di
		}
		if !di {
			return false
		}
		c := ci.compare(cj)
		if dir == Desc {
			c = -c
		}
		return c < 0
	})
	return out
}

type value struct {
	s string
	f float64
	t time.Time
}

func (a value) compare(b value) int {
	switch {
	case !a.t.IsZero() || !b.t.IsZero():
		return a.t.Compare(b.t)
	case a.s != "" || b.s != "":
		return strings.Compare(strings.ToLower(a.s), strings.ToLower(b.s))
	case a.f < b.f:
		return -1
	case a.f > b.f:
		return 1
	}
	return 0
}

// field extracts the sort value and whether the record defines it.
func field(b *models.Booking, key SortKey) (value, bool) {
	switch key {
	case SortName:
		return value{s: b.BuyerName}, b.BuyerName != ""
	case SortEmail:
		return value{s: b.BuyerEmail}, b.BuyerEmail != ""
	case SortTicketType:
		return value{s: b.TicketType}, b.TicketType != ""
	case SortStatus:
		return value{s: string(b.PaymentStatus)}, b.PaymentStatus != ""
	case SortAmount:
		if b.Amount == nil {
			return value{}, false
		}
		return value{f: *b.Amount}, true
	case SortQuantity:
		return value{f: float64(b.Quantity)}, b.Quantity > 0
	case SortCheckInTime:
		if b.CheckInTime == nil || b.CheckInTime.IsZero() {
			return value{}, false
		}
		return value{t: *b.CheckInTime}, true
	default:
		return value{t: b.CreatedAt}, !b.CreatedAt.IsZero()
	}
}
