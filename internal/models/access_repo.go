package models

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/supabase-community/gotrue-go/types"
)

const PageAccessTable = "page_access"

const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleViewer  = "viewer"
	RoleNone    = "none"
)

// Access is the capability set the sharing engine grants a user on one entity.
type Access struct {
	Role               string `json:"role"`
	CanView            bool   `json:"can_view"`
	CanEdit            bool   `json:"can_edit"`
	CanManageAttendees bool   `json:"can_manage_attendees"`
	CanViewFinancials  bool   `json:"can_view_financials"`
}

func AccessForRole(role string) Access {
	switch role {
	case RoleOwner, RoleManager:
		return Access{Role: role, CanView: true, CanEdit: true, CanManageAttendees: true, CanViewFinancials: true}
	case RoleStaff:
		return Access{Role: role, CanView: true, CanManageAttendees: true}
	case RoleViewer:
		return Access{Role: role, CanView: true}
	default:
		return Access{Role: RoleNone}
	}
}

type AccessGate interface {
	CheckAccess(ctx context.Context, entityID, userID string) (Access, error)
}

// CheckAccess reads the role delegated to the user for the entity. No row means no access.
func (su *SupabaseRepo) CheckAccess(ctx context.Context, entityID, userID string) (Access, error) {
	raw, status, err := su.supabaseClient.From(PageAccessTable).
		Select("role", "", false).
		Eq("entity_id", entityID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		if status != 0 {
			return Access{}, fmt.Errorf("postgrest error: status=%d body=%s err=%w", status, string(raw), err)
		}
		return Access{}, fmt.Errorf("failed to check access: %w", err)
	}

	var rows []struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return Access{}, fmt.Errorf("failed to unmarshal access rows: %w", err)
	}
	if len(rows) == 0 {
		return AccessForRole(RoleNone), nil
	}
	return AccessForRole(rows[0].Role), nil
}

// RefreshToken exchanges a refresh token for a new session through Supabase Auth.
func (su *SupabaseRepo) RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	resp, err := su.supabaseClient.Auth.RefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return resp, nil
}
