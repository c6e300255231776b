package services

import (
	"context"
	"fmt"

	"github.com/joshua-takyi/slotbook/internal/models"
)

// resolveAccess returns the caller's capabilities on an entity. The organizer is always owner;
// everyone else gets whatever the sharing table delegates to them.
func resolveAccess(ctx context.Context, gate models.AccessGate, entity *models.Entity, userID string) (models.Access, error) {
	if userID == "" {
		return models.AccessForRole(models.RoleNone), nil
	}
	if entity.OrganizerID.String() == userID {
		return models.AccessForRole(models.RoleOwner), nil
	}
	if gate == nil {
		return models.AccessForRole(models.RoleNone), nil
	}
	access, err := gate.CheckAccess(ctx, entity.ID.String(), userID)
	if err != nil {
		return models.Access{}, fmt.Errorf("failed to check access: %w", err)
	}
	return access, nil
}
