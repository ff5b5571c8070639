package scope

import (
	"errors"
	"strings"

	"github.com/openagora/agora/internal/authorization"
)

type Scope string

var ErrInvalidScope = errors.New("invalid_scope")

const (
	ScopeDashboardView Scope = "dashboard:view"

	ScopeSellerView     Scope = "seller:view"
	ScopeSellerModerate Scope = "seller:moderate"

	ScopeProductView   Scope = "product:view"
	ScopeProductCreate Scope = "product:create"

	ScopeListingView     Scope = "listing:view"
	ScopeListingModerate Scope = "listing:moderate"

	ScopePriceView   Scope = "price:view"
	ScopePriceCreate Scope = "price:create"

	ScopeComplianceView    Scope = "compliance:view"
	ScopeComplianceScan    Scope = "compliance:scan"
	ScopeComplianceResolve Scope = "compliance:resolve"

	ScopeInventoryView    Scope = "inventory:view"
	ScopeInventoryReceive Scope = "inventory:receive"
	ScopeInventoryConsume Scope = "inventory:consume"
	ScopeInventoryAdjust  Scope = "inventory:adjust"

	ScopeOpasView   Scope = "opas:view"
	ScopeOpasCreate Scope = "opas:create"
	ScopeOpasDecide Scope = "opas:decide"

	ScopeAlertView    Scope = "alert:view"
	ScopeAlertResolve Scope = "alert:resolve"

	ScopeOrderView Scope = "order:view"

	ScopeAuditLogView Scope = "audit_log:view"

	ScopeAPIKeyView   Scope = "api_key:view"
	ScopeAPIKeyCreate Scope = "api_key:create"
	ScopeAPIKeyRevoke Scope = "api_key:revoke"

	ScopeExportRun Scope = "export:run"
)

var allScopes = []Scope{
	ScopeDashboardView,
	ScopeSellerView,
	ScopeSellerModerate,
	ScopeProductView,
	ScopeProductCreate,
	ScopeListingView,
	ScopeListingModerate,
	ScopePriceView,
	ScopePriceCreate,
	ScopeComplianceView,
	ScopeComplianceScan,
	ScopeComplianceResolve,
	ScopeInventoryView,
	ScopeInventoryReceive,
	ScopeInventoryConsume,
	ScopeInventoryAdjust,
	ScopeOpasView,
	ScopeOpasCreate,
	ScopeOpasDecide,
	ScopeAlertView,
	ScopeAlertResolve,
	ScopeOrderView,
	ScopeAuditLogView,
	ScopeAPIKeyView,
	ScopeAPIKeyCreate,
	ScopeAPIKeyRevoke,
	ScopeExportRun,
}

var validScopes = func() map[string]struct{} {
	lookup := make(map[string]struct{}, len(allScopes))
	for _, scope := range allScopes {
		lookup[normalize(string(scope))] = struct{}{}
	}
	return lookup
}()

func All() []string {
	values := make([]string, len(allScopes))
	for i, scope := range allScopes {
		values[i] = string(scope)
	}
	return values
}

// FromAuthz returns the scope guarding an authorization object/action pair,
// or "" when no key scope exists for that capability.
func FromAuthz(object string, action string) Scope {
	composed := normalize(object) + ":" + normalize(action)
	if _, ok := validScopes[composed]; ok {
		return Scope(composed)
	}
	return ""
}

// Has reports whether scopes grant the required scope. "*" grants everything
// and "object:*" grants every action on that object.
func Has(scopes []string, required Scope) bool {
	requiredScope := normalize(string(required))
	if requiredScope == "" {
		return false
	}

	requiredObject := strings.SplitN(requiredScope, ":", 2)[0]

	for _, scope := range scopes {
		normalized := normalize(scope)
		if normalized == "" {
			continue
		}
		if normalized == "*" {
			return true
		}
		if normalized == requiredScope {
			return true
		}
		if requiredObject != "" && normalized == requiredObject+":*" {
			return true
		}
	}
	return false
}

// Validate rejects scope lists containing unknown scopes. Wildcards over a
// known object ("inventory:*") and the global "*" are accepted.
func Validate(scopes []string) error {
	for _, scope := range Normalize(scopes) {
		if IsValid(scope) {
			continue
		}
		if scope == "*" {
			continue
		}
		if object, ok := strings.CutSuffix(scope, ":*"); ok && knownObject(object) {
			continue
		}
		return ErrInvalidScope
	}
	return nil
}

func Normalize(scopes []string) []string {
	if len(scopes) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(scopes))
	normalized := make([]string, 0, len(scopes))
	for _, scope := range scopes {
		value := normalize(scope)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	return normalized
}

func IsValid(scope string) bool {
	_, ok := validScopes[normalize(scope)]
	return ok
}

func knownObject(object string) bool {
	switch object {
	case authorization.ObjectDashboard,
		authorization.ObjectSeller,
		authorization.ObjectProduct,
		authorization.ObjectListing,
		authorization.ObjectPrice,
		authorization.ObjectCompliance,
		authorization.ObjectInventory,
		authorization.ObjectOpas,
		authorization.ObjectAlert,
		authorization.ObjectOrder,
		authorization.ObjectAuditLog,
		authorization.ObjectAPIKey,
		authorization.ObjectExport:
		return true
	default:
		return false
	}
}

func normalize(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	return strings.ReplaceAll(normalized, ".", ":")
}
