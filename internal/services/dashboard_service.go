package services

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joshua-takyi/slotbook/internal/dashboard"
	"github.com/joshua-takyi/slotbook/internal/models"
)

// AttendeeQuery scopes the ledger read and shapes the result. Empty scope fields mean the
// whole entity.
type AttendeeQuery struct {
	Date      string
	Start     string
	End       string
	SessionID string
	Search    string
	Status    dashboard.StatusFilter
	SortKey   dashboard.SortKey
	Direction dashboard.Direction
}

func (q AttendeeQuery) scope() models.LedgerScope {
	return models.LedgerScope{Date: q.Date, Start: q.Start, End: q.End, SessionID: q.SessionID}
}

func (q AttendeeQuery) scopeName() string {
	switch {
	case q.SessionID != "":
		return q.SessionID
	case q.Date != "" && q.Start != "":
		return q.Date + "_" + q.Start
	default:
		return q.Date
	}
}

type ExportFile struct {
	Filename string
	Rows     int
	Data     []byte
}

type DashboardService struct {
	catalog models.CatalogRepo
	ledger  models.LedgerRepo
	gate    models.AccessGate
	logger  *slog.Logger
	now     func() time.Time
}

func NewDashboardService(catalog models.CatalogRepo, ledger models.LedgerRepo, gate models.AccessGate, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		catalog: catalog,
		ledger:  ledger,
		gate:    gate,
		logger:  logger,
		now:     time.Now,
	}
}

// load resolves the entity and the caller's access, refusing callers who cannot view it.
func (ds *DashboardService) load(ctx context.Context, userID string, entityID uuid.UUID) (*models.Entity, models.Access, error) {
	entity, err := ds.catalog.GetEntity(ctx, entityID)
	if err != nil {
		return nil, models.Access{}, err
	}
	access, err := resolveAccess(ctx, ds.gate, entity, userID)
	if err != nil {
		return nil, models.Access{}, err
	}
	if !access.CanView {
		return nil, access, models.ErrAccessDenied
	}
	return entity, access, nil
}

func (ds *DashboardService) records(ctx context.Context, entity *models.Entity, q AttendeeQuery) ([]models.Booking, error) {
	records, err := ds.ledger.ListBookings(ctx, entity.ID.String(), q.scope())
	if err != nil {
		return nil, err
	}
	records = dashboard.Filter(records, q.Search, q.Status)
	return dashboard.Sort(records, q.SortKey, q.Direction), nil
}

// Attendees returns the filtered, sorted ledger. Money fields are blanked for callers
// without financial access.
func (ds *DashboardService) Attendees(ctx context.Context, userID string, entityID uuid.UUID, q AttendeeQuery) ([]models.Booking, models.Access, error) {
	entity, access, err := ds.load(ctx, userID, entityID)
	if err != nil {
		return nil, access, err
	}
	records, err := ds.records(ctx, entity, q)
	if err != nil {
		return nil, access, err
	}
	if !access.CanViewFinancials {
		records = stripFinancials(records)
	}
	return records, access, nil
}

func (ds *DashboardService) Stats(ctx context.Context, userID string, entityID uuid.UUID, q AttendeeQuery) (dashboard.Stats, error) {
	entity, access, err := ds.load(ctx, userID, entityID)
	if err != nil {
		return dashboard.Stats{}, err
	}
	records, err := ds.ledger.ListBookings(ctx, entity.ID.String(), q.scope())
	if err != nil {
		return dashboard.Stats{}, err
	}
	stats := dashboard.ComputeStats(records, entity.Tiers)
	if !access.CanViewFinancials {
		stats = stats.WithoutFinancials()
	}
	return stats, nil
}

// Export renders the filtered attendee list as CSV. It needs financial access since the
// export carries amounts.
func (ds *DashboardService) Export(ctx context.Context, userID string, entityID uuid.UUID, q AttendeeQuery) (*ExportFile, error) {
	entity, access, err := ds.load(ctx, userID, entityID)
	if err != nil {
		return nil, err
	}
	if !access.CanViewFinancials {
		return nil, models.ErrAccessDenied
	}
	records, err := ds.records(ctx, entity, q)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	rows, err := dashboard.Export(&buf, records, entity.Tiers)
	if err != nil {
		return nil, err
	}
	ds.logger.Info("attendees exported", "entity_id", entity.ID, "rows", rows, "user_id", userID)
	return &ExportFile{
		Filename: dashboard.ExportFilename(entity.Title, q.scopeName()),
		Rows:     rows,
		Data:     buf.Bytes(),
	}, nil
}

// CheckIn flips the check-in flag of one booking.
func (ds *DashboardService) CheckIn(ctx context.Context, userID, bookingID string, checkedIn bool) (*models.Booking, error) {
	booking, err := ds.ledger.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	entityID, err := uuid.Parse(booking.EntityID)
	if err != nil {
		return nil, models.ErrEntityNotFound
	}
	entity, err := ds.catalog.GetEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	access, err := resolveAccess(ctx, ds.gate, entity, userID)
	if err != nil {
		return nil, err
	}
	if !access.CanManageAttendees {
		return nil, models.ErrAccessDenied
	}
	return ds.ledger.SetCheckIn(ctx, bookingID, checkedIn, ds.now())
}

func stripFinancials(records []models.Booking) []models.Booking {
	out := make([]models.Booking, len(records))
	for i, b := range records {
		b.Amount = nil
		if b.Tiers != nil {
			lines := make([]models.TierLine, len(b.Tiers))
			for j, line := range b.Tiers {
				line.Price = 0
				lines[j] = line
			}
			b.Tiers = lines
		}
		out[i] = b
	}
	return out
}
