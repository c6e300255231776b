package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/slotbook/internal/dashboard"
	"github.com/joshua-takyi/slotbook/internal/models"
)

func amountOf(v float64) *float64 { return &v }

func dashboardFixture() (*DashboardService, *models.Entity, *fakeLedger) {
	e := pottery(10)
	id := e.ID.String()
	ledger := &fakeLedger{bookings: []models.Booking{
		{ID: "b1", EntityID: id, Date: monday, Start: "09:00", End: "10:00", Quantity: 2, Amount: amountOf(100),
			BuyerName: "Ama Mensah", BuyerEmail: "ama@example.com", PaymentStatus: models.PaymentConfirmed},
		{ID: "b2", EntityID: id, Date: monday, Start: "11:00", End: "12:00", Quantity: 1, Amount: amountOf(50),
			BuyerName: "Kofi Boateng", BuyerEmail: "kofi@example.com", PaymentStatus: models.PaymentConfirmed, CheckedIn: true},
	}}
	gate := fakeGate{roles: map[string]string{
		"viewer-user":  models.RoleViewer,
		"staff-user":   models.RoleStaff,
		"manager-user": models.RoleManager,
	}}
	return NewDashboardService(newFakeCatalog(e), ledger, gate, nil), e, ledger
}

func TestDashboardService_AttendeesAccess(t *testing.T) {
	ds, e, _ := dashboardFixture()
	ctx := context.Background()

	_, _, err := ds.Attendees(ctx, "stranger", e.ID, AttendeeQuery{})
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	records, access, err := ds.Attendees(ctx, "viewer-user", e.ID, AttendeeQuery{})
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, access.Role)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Nil(t, r.Amount, "viewers do not see amounts")
	}

	records, access, err = ds.Attendees(ctx, e.OrganizerID.String(), e.ID, AttendeeQuery{
		Search: "kofi", Status: dashboard.StatusCheckedIn,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, access.Role)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Amount)
	assert.Equal(t, 50.0, *records[0].Amount)
}

func TestDashboardService_AttendeesScopedToSlot(t *testing.T) {
	ds, e, _ := dashboardFixture()

	records, _, err := ds.Attendees(context.Background(), "manager-user", e.ID, AttendeeQuery{
		Date: monday, Start: "11:00", End: "12:00",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "b2", records[0].ID)
}

func TestDashboardService_Stats(t *testing.T) {
	ds, e, _ := dashboardFixture()
	ctx := context.Background()

	st, err := ds.Stats(ctx, "manager-user", e.ID, AttendeeQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.CheckedIn)
	assert.InDelta(t, 50.0, st.CheckInPercentage, 0.001)
	assert.InDelta(t, 150.0, st.TotalRevenue, 0.001)

	st, err = ds.Stats(ctx, "staff-user", e.ID, AttendeeQuery{})
	require.NoError(t, err)
	assert.Zero(t, st.TotalRevenue)
	assert.Equal(t, 2, st.Total)
}

func TestDashboardService_Export(t *testing.T) {
	ds, e, _ := dashboardFixture()
	ctx := context.Background()

	_, err := ds.Export(ctx, "staff-user", e.ID, AttendeeQuery{})
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	file, err := ds.Export(ctx, "manager-user", e.ID, AttendeeQuery{Date: monday})
	require.NoError(t, err)
	assert.Equal(t, 2, file.Rows)
	assert.Equal(t, "Pottery-Class_2025-06-02_attendees.csv", file.Filename)
	assert.Equal(t, 3, strings.Count(string(file.Data), "\r\n"))

	_, err = ds.Export(ctx, "manager-user", e.ID, AttendeeQuery{Search: "nobody"})
	assert.ErrorIs(t, err, dashboard.ErrNothingToExport)
}

func TestDashboardService_CheckIn(t *testing.T) {
	ds, _, ledger := dashboardFixture()
	ctx := context.Background()

	_, err := ds.CheckIn(ctx, "viewer-user", "b1", true)
	assert.ErrorIs(t, err, models.ErrAccessDenied)

	b, err := ds.CheckIn(ctx, "staff-user", "b1", true)
	require.NoError(t, err)
	assert.True(t, b.CheckedIn)
	require.NotNil(t, b.CheckInTime)

	b, err = ds.CheckIn(ctx, "staff-user", "b1", false)
	require.NoError(t, err)
	assert.False(t, b.CheckedIn)
	assert.Nil(t, b.CheckInTime)

	_, err = ds.CheckIn(ctx, "staff-user", "missing", true)
	assert.ErrorIs(t, err, models.ErrBookingNotFound)
	assert.Equal(t, 2, ledger.count())
}
