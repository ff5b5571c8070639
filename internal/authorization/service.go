package authorization

import (
	"context"
	"errors"
)

// Role is the closed set of admin roles. Role names never come from free
// strings at check time; handlers pass these constants.
type Role string

const (
	RoleSuperAdmin        Role = "super_admin"
	RoleComplianceOfficer Role = "compliance_officer"
	RoleInventoryManager  Role = "inventory_manager"
	RoleAnalyst           Role = "analyst"
)

// ParseRole validates a stored role value against the closed enum.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleSuperAdmin, RoleComplianceOfficer, RoleInventoryManager, RoleAnalyst:
		return Role(raw), nil
	default:
		return "", ErrInvalidRole
	}
}

const (
	ObjectDashboard  = "dashboard"
	ObjectSeller     = "seller"
	ObjectProduct    = "product"
	ObjectListing    = "listing"
	ObjectPrice      = "price"
	ObjectCompliance = "compliance"
	ObjectInventory  = "inventory"
	ObjectOpas       = "opas"
	ObjectAlert      = "alert"
	ObjectOrder      = "order"
	ObjectAuditLog   = "audit_log"
	ObjectAPIKey     = "api_key"
	ObjectExport     = "export"
)

const (
	ActionView     = "view"
	ActionCreate   = "create"
	ActionModerate = "moderate"
	ActionScan     = "scan"
	ActionResolve  = "resolve"
	ActionReceive  = "receive"
	ActionConsume  = "consume"
	ActionAdjust   = "adjust"
	ActionDecide   = "decide"
	ActionRun      = "run"
	ActionRevoke   = "revoke"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

// Service answers "may this actor perform this action on this object".
// Checks happen once at the route boundary, not inside domain services.
type Service interface {
	Authorize(ctx context.Context, actor string, role string, object string, action string) error
}
