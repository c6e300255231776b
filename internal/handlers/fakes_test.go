package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joshua-takyi/slotbook/internal/models"
)

type memCatalog struct {
	mu       sync.Mutex
	entities map[uuid.UUID]*models.Entity
}

func (m *memCatalog) CreateEntity(_ context.Context, e *models.Entity) (*models.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.ID] = e
	return e, nil
}

func (m *memCatalog) UpdateEntity(_ context.Context, e *models.Entity) (*models.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[e.ID]; !ok {
		return nil, models.ErrEntityNotFound
	}
	m.entities[e.ID] = e
	return e, nil
}

func (m *memCatalog) GetEntity(_ context.Context, id uuid.UUID) (*models.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entities[id]; ok {
		return e, nil
	}
	return nil, models.ErrEntityNotFound
}

func (m *memCatalog) ListEntitiesByOrganizer(_ context.Context, organizerID uuid.UUID, offset, limit int) ([]*models.Entity, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Entity
	for _, e := range m.entities {
		if e.OrganizerID == organizerID {
			out = append(out, e)
		}
	}
	if offset >= len(out) {
		return []*models.Entity{}, len(out), nil
	}
	end := min(offset+limit, len(out))
	return out[offset:end], len(out), nil
}

type memLedger struct {
	mu        sync.Mutex
	bookings  []models.Booking
	appendErr error
}

func (m *memLedger) AppendBooking(_ context.Context, _ models.EntityKind, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.bookings = append(m.bookings, *b)
	return nil
}

func (m *memLedger) ListBookings(_ context.Context, entityID string, scope models.LedgerScope) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.bookings {
		if b.EntityID != entityID || (scope.Date != "" && b.Date != scope.Date) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memLedger) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, models.ErrBookingNotFound
}

func (m *memLedger) SetCheckIn(_ context.Context, id string, checkedIn bool, at time.Time) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bookings {
		if m.bookings[i].ID == id {
			m.bookings[i].CheckedIn = checkedIn
			m.bookings[i].CheckInTime = &at
			b := m.bookings[i]
			return &b, nil
		}
	}
	return nil, models.ErrBookingNotFound
}

func (m *memLedger) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

type memReserver struct {
	mu       sync.Mutex
	reserved map[string]int
}

func (r *memReserver) Reserve(_ context.Context, req models.ReserveRequest) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.reserved[req.Key.String()]
	if !ok {
		cur = req.Booked
	}
	if cur+req.Quantity > req.Capacity {
		return 0, models.ErrInsufficientCapacity
	}
	r.reserved[req.Key.String()] = cur + req.Quantity
	return req.Capacity - cur - req.Quantity, nil
}

func (r *memReserver) Release(_ context.Context, key models.SlotKey, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reserved[key.String()] = max(0, r.reserved[key.String()]-quantity)
	return nil
}

type roleGate map[string]string

func (g roleGate) CheckAccess(_ context.Context, _ string, userID string) (models.Access, error) {
	return models.AccessForRole(g[userID]), nil
}

func (m *memLedger) failAppends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
}
