package service

import (
	"barberflow/internal/apperr"
	"barberflow/internal/domain"

	"github.com/google/uuid"
)

// Action names a capability checked before each core operation.
type Action string

const (
	ActionManageBookings Action = "manage_bookings"
	ActionManageBlocks   Action = "manage_blocks"
	ActionCreateSale     Action = "create_sale"
	ActionDeleteSale     Action = "delete_sale"
	ActionAdjustStock    Action = "adjust_stock"
	ActionManageCatalog  Action = "manage_catalog"
	ActionManageSettings Action = "manage_settings"
)

// Actor is the authenticated caller, as extracted from its token by the
// transport layer.
type Actor struct {
	UserID   string
	Role     string
	BarberID *uuid.UUID
}

// Authorizer decides whether an actor may perform an action against a
// barber's resources. It replaces per-handler role guards so every core
// operation runs the same check regardless of transport.
type Authorizer interface {
	Authorize(actor Actor, action Action, barberID uuid.UUID) error
}

type roleAuthorizer struct{}

// NewAuthorizer creates the role-based Authorizer. Owners and admins may act
// on any barber; barbers may manage bookings, blocks and sales only for
// themselves. Sale deletion, manual stock movements, catalog and settings
// management stay with owners and admins.
func NewAuthorizer() Authorizer {
	return roleAuthorizer{}
}

func (roleAuthorizer) Authorize(actor Actor, action Action, barberID uuid.UUID) error {
	if actor.UserID == "" {
		return apperr.Unauthenticated("missing caller identity")
	}

	switch actor.Role {
	case domain.RoleOwner, domain.RoleAdmin:
		return nil
	case domain.RoleBarber:
		switch action {
		case ActionManageBookings, ActionManageBlocks, ActionCreateSale:
			if actor.BarberID != nil && *actor.BarberID == barberID {
				return nil
			}
			return apperr.PermissionDenied("barbers may only manage their own calendar")
		default:
			return apperr.PermissionDenied("action %s requires owner or admin role", action)
		}
	default:
		return apperr.PermissionDenied("unknown role %q", actor.Role)
	}
}
