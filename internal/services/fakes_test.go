package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joshua-takyi/slotbook/internal/models"
)

type fakeCatalog struct {
	mu       sync.Mutex
	entities map[uuid.UUID]*models.Entity
}

func newFakeCatalog(entities ...*models.Entity) *fakeCatalog {
	fc := &fakeCatalog{entities: make(map[uuid.UUID]*models.Entity)}
	for _, e := range entities {
		fc.entities[e.ID] = e
	}
	return fc
}

func (f *fakeCatalog) CreateEntity(_ context.Context, e *models.Entity) (*models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities[e.ID] = e
	return e, nil
}

func (f *fakeCatalog) UpdateEntity(_ context.Context, e *models.Entity) (*models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entities[e.ID]; !ok {
		return nil, models.ErrEntityNotFound
	}
	f.entities[e.ID] = e
	return e, nil
}

func (f *fakeCatalog) GetEntity(_ context.Context, id uuid.UUID) (*models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entities[id]
	if !ok {
		return nil, models.ErrEntityNotFound
	}
	return e, nil
}

func (f *fakeCatalog) ListEntitiesByOrganizer(_ context.Context, organizerID uuid.UUID, offset, limit int) ([]*models.Entity, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Entity
	for _, e := range f.entities {
		if e.OrganizerID == organizerID {
			out = append(out, e)
		}
	}
	total := len(out)
	if offset >= total {
		return []*models.Entity{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	bookings  []models.Booking
	appendErr error
}

func (f *fakeLedger) AppendBooking(_ context.Context, _ models.EntityKind, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.bookings = append(f.bookings, *b)
	return nil
}

func (f *fakeLedger) ListBookings(_ context.Context, entityID string, scope models.LedgerScope) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.EntityID != entityID ||
			(scope.Date != "" && b.Date != scope.Date) ||
			(scope.Start != "" && b.Start != scope.Start) ||
			(scope.End != "" && b.End != scope.End) ||
			(scope.SessionID != "" && b.SessionID != scope.SessionID) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeLedger) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			b := f.bookings[i]
			return &b, nil
		}
	}
	return nil, models.ErrBookingNotFound
}

func (f *fakeLedger) SetCheckIn(_ context.Context, id string, checkedIn bool, at time.Time) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			f.bookings[i].CheckedIn = checkedIn
			f.bookings[i].CheckInTime = nil
			if checkedIn {
				f.bookings[i].CheckInTime = &at
			}
			b := f.bookings[i]
			return &b, nil
		}
	}
	return nil, models.ErrBookingNotFound
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

// memReserver applies the same conditional increment the stores do, under a mutex.
type memReserver struct {
	mu       sync.Mutex
	reserved map[string]int
}

func newMemReserver() *memReserver {
	return &memReserver{reserved: make(map[string]int)}
}

func (r *memReserver) Reserve(_ context.Context, req models.ReserveRequest) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := req.Key.String()
	cur, ok := r.reserved[id]
	if !ok {
		cur = req.Booked
	}
	if cur+req.Quantity > req.Capacity {
		r.reserved[id] = cur
		return 0, models.ErrInsufficientCapacity
	}
	r.reserved[id] = cur + req.Quantity
	return req.Capacity - r.reserved[id], nil
}

func (r *memReserver) Release(_ context.Context, key models.SlotKey, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := key.String()
	r.reserved[id] -= quantity
	if r.reserved[id] < 0 {
		r.reserved[id] = 0
	}
	return nil
}

func (r *memReserver) held(key models.SlotKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserved[key.String()]
}

type fakeGate struct {
	roles map[string]string
	err   error
}

func (g fakeGate) CheckAccess(_ context.Context, _ string, userID string) (models.Access, error) {
	if g.err != nil {
		return models.Access{}, g.err
	}
	return models.AccessForRole(g.roles[userID]), nil
}

var errGatewayDown = errors.New("gateway unavailable")
