package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/slotbook/internal/availability"
	"github.com/joshua-takyi/slotbook/internal/models"
)

func TestCatalogService_CreateEntity(t *testing.T) {
	cs := NewCatalogService(newFakeCatalog(), &fakeLedger{}, nil, nil)
	organizer := uuid.New()

	e := pottery(5)
	e.ID = uuid.Nil
	created, err := cs.CreateEntity(context.Background(), e, organizer)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, organizer, created.OrganizerID)
	assert.False(t, created.CreatedAt.IsZero())

	bad := pottery(5)
	bad.Title = ""
	_, err = cs.CreateEntity(context.Background(), bad, organizer)
	assert.ErrorIs(t, err, models.ErrInvalidEntity)

	_, err = cs.CreateEntity(context.Background(), pottery(5), uuid.Nil)
	assert.ErrorIs(t, err, models.ErrInvalidEntity)
}

func TestCatalogService_UpdateEntityRequiresEdit(t *testing.T) {
	e := pottery(5)
	gate := fakeGate{roles: map[string]string{"staff-user": models.RoleStaff, "manager-user": models.RoleManager}}
	cs := NewCatalogService(newFakeCatalog(e), &fakeLedger{}, gate, nil)
	ctx := context.Background()

	edit := pottery(8)
	edit.Title = "Pottery for Beginners"

	_, err := cs.UpdateEntity(ctx, "staff-user", e.ID, edit)
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	updated, err := cs.UpdateEntity(ctx, "manager-user", e.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, e.ID, updated.ID)
	assert.Equal(t, e.OrganizerID, updated.OrganizerID)
	assert.Equal(t, "Pottery for Beginners", updated.Title)

	_, err = cs.UpdateEntity(ctx, e.OrganizerID.String(), uuid.New(), edit)
	assert.ErrorIs(t, err, models.ErrEntityNotFound)
}

func TestCatalogService_AvailableDatesUsesEntityTimezone(t *testing.T) {
	e := pottery(5)
	e.Timezone = "Pacific/Auckland"
	cs := NewCatalogService(newFakeCatalog(e), &fakeLedger{}, nil, nil)
	// Sunday 20:00 UTC is already Monday in Auckland
	cs.now = func() time.Time { return time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC) }

	dates, err := cs.AvailableDates(context.Background(), e.ID)
	require.NoError(t, err)
	require.NotEmpty(t, dates)
	assert.Equal(t, monday, dates[0])
	for _, d := range dates {
		day, err := time.Parse(models.DateLayout, d)
		require.NoError(t, err)
		assert.Equal(t, time.Monday, day.Weekday())
	}
}

func TestCatalogService_DaySlots(t *testing.T) {
	e := pottery(10)
	id := e.ID.String()
	ledger := &fakeLedger{bookings: []models.Booking{
		{ID: "a", EntityID: id, Date: monday, Start: "09:00", End: "10:00", Quantity: 9, PaymentStatus: models.PaymentConfirmed},
		{ID: "b", EntityID: id, Date: monday, Start: "11:00", End: "12:00", Quantity: 4, PaymentStatus: models.PaymentRefunded},
		{ID: "c", EntityID: id, Date: "2025-06-09", Start: "09:00", End: "10:00", Quantity: 10, PaymentStatus: models.PaymentConfirmed},
	}}
	cs := NewCatalogService(newFakeCatalog(e), ledger, nil, nil)

	snap, err := cs.DaySlots(context.Background(), id, monday)
	require.NoError(t, err)
	require.Len(t, snap.Slots, 2)

	assert.Equal(t, 1, snap.Slots[0].Available)
	assert.Equal(t, availability.Critical, snap.Slots[0].Occupancy)
	assert.Equal(t, 10, snap.Slots[1].Available)
	assert.Equal(t, availability.Available, snap.Slots[1].Occupancy)

	_, err = cs.DaySlots(context.Background(), id, "2025-06-03")
	assert.ErrorIs(t, err, models.ErrDateNotBookable)

	_, err = cs.DaySlots(context.Background(), "not-a-uuid", monday)
	assert.ErrorIs(t, err, models.ErrEntityNotFound)
}

func TestCatalogService_ListOrganizerEntities(t *testing.T) {
	a, b := pottery(1), pottery(1)
	b.OrganizerID = a.OrganizerID
	cs := NewCatalogService(newFakeCatalog(a, b, pottery(1)), &fakeLedger{}, nil, nil)

	list, total, err := cs.ListOrganizerEntities(context.Background(), a.OrganizerID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)

	_, _, err = cs.ListOrganizerEntities(context.Background(), a.OrganizerID, -1, 10)
	assert.Error(t, err)
}
