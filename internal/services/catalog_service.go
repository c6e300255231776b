package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joshua-takyi/slotbook/internal/availability"
	"github.com/joshua-takyi/slotbook/internal/models"
)

const tracerName = "github.com/joshua-takyi/slotbook/internal/services"

type CatalogService struct {
	catalog models.CatalogRepo
	ledger  models.LedgerRepo
	gate    models.AccessGate
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

func NewCatalogService(catalog models.CatalogRepo, ledger models.LedgerRepo, gate models.AccessGate, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		catalog: catalog,
		ledger:  ledger,
		gate:    gate,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
}

func (cs *CatalogService) CreateEntity(ctx context.Context, entity *models.Entity, organizerID uuid.UUID) (*models.Entity, error) {
	if organizerID == uuid.Nil {
		return nil, fmt.Errorf("%w: organizer is required", models.ErrInvalidEntity)
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}
	now := cs.now()
	entity.OrganizerID = organizerID
	entity.CreatedAt = now
	entity.UpdatedAt = now

	created, err := cs.catalog.CreateEntity(ctx, entity)
	if err != nil {
		return nil, err
	}
	cs.logger.Info("entity created", "entity_id", created.ID, "kind", created.Kind, "mode", created.Mode)
	return created, nil
}

// UpdateEntity replaces the definition of an existing entity. Ownership, kind and creation time
// are kept from the stored copy; bookings already written are not touched.
func (cs *CatalogService) UpdateEntity(ctx context.Context, userID string, id uuid.UUID, entity *models.Entity) (*models.Entity, error) {
	existing, err := cs.catalog.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	access, err := resolveAccess(ctx, cs.gate, existing, userID)
	if err != nil {
		return nil, err
	}
	if !access.CanEdit {
		return nil, models.ErrAccessDenied
	}

	entity.ID = existing.ID
	entity.OrganizerID = existing.OrganizerID
	entity.Kind = existing.Kind
	entity.CreatedAt = existing.CreatedAt
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return cs.catalog.UpdateEntity(ctx, entity)
}

func (cs *CatalogService) GetEntity(ctx context.Context, id uuid.UUID) (*models.Entity, error) {
	if id == uuid.Nil {
		return nil, models.ErrEntityNotFound
	}
	return cs.catalog.GetEntity(ctx, id)
}

func (cs *CatalogService) ListOrganizerEntities(ctx context.Context, organizerID uuid.UUID, offset, limit int) ([]*models.Entity, int, error) {
	if offset < 0 || limit <= 0 {
		return nil, 0, fmt.Errorf("invalid offset or limit")
	}
	return cs.catalog.ListEntitiesByOrganizer(ctx, organizerID, offset, limit)
}

// AvailableDates lists the bookable dates of the next booking window, starting from today in
// the entity's timezone.
func (cs *CatalogService) AvailableDates(ctx context.Context, id uuid.UUID) ([]string, error) {
	entity, err := cs.GetEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	today := cs.now().In(entity.Location())
	return entity.AvailableDates(today, models.BookingWindowDays), nil
}

// DaySlots recomputes availability for every slot of a date from the ledger.
// Its signature matches refresh.FetchFunc.
func (cs *CatalogService) DaySlots(ctx context.Context, entityID, date string) (availability.Snapshot, error) {
	ctx, span := cs.tracer.Start(ctx, "catalog.DaySlots", trace.WithAttributes(
		attribute.String("entity.id", entityID),
		attribute.String("slot.date", date),
	))
	defer span.End()

	id, err := uuid.Parse(entityID)
	if err != nil {
		return availability.Snapshot{}, models.ErrEntityNotFound
	}
	entity, err := cs.catalog.GetEntity(ctx, id)
	if err != nil {
		return availability.Snapshot{}, err
	}
	return cs.snapshot(ctx, entity, date)
}

func (cs *CatalogService) snapshot(ctx context.Context, entity *models.Entity, date string) (availability.Snapshot, error) {
	slots, err := entity.SlotsFor(date)
	if err != nil {
		return availability.Snapshot{}, err
	}
	bookings, err := cs.ledger.ListBookings(ctx, entity.ID.String(), models.LedgerScope{Date: date})
	if err != nil {
		return availability.Snapshot{}, fmt.Errorf("failed to read ledger: %w", err)
	}
	return availability.Snapshot{
		EntityID:  entity.ID.String(),
		Date:      date,
		FetchedAt: cs.now(),
		Slots:     availability.Compute(slots, bookings),
	}, nil
}
