package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type serviceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds the casbin enforcer backed by the application database
// and seeds the role capability table.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &serviceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *serviceImpl) Authorize(ctx context.Context, actor string, role string, object string, action string) error {
	_ = ctx

	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(actor, role)
	if err != nil {
		return err
	}

	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("capability denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *serviceImpl) resolveActor(actor string, role string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "api_key:") {
		// Scoped keys are narrowed again by their scope list at the route
		// boundary; capability-wise they act as system.
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "admin:") {
		parsed, err := ParseRole(strings.ToLower(strings.TrimSpace(role)))
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", parsed), nil
	}
	return "", "", ErrInvalidActor
}

// ensureGrouping keeps the subject linked to exactly one role. Role changes
// on the admin account replace the old link on next authorization.
func (s *serviceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

// seedPolicies installs the role capability table. The table is the single
// source of truth for what each role may do.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Analysts read everything, mutate nothing.
		{"role:analyst", ObjectDashboard, ActionView},
		{"role:analyst", ObjectSeller, ActionView},
		{"role:analyst", ObjectProduct, ActionView},
		{"role:analyst", ObjectListing, ActionView},
		{"role:analyst", ObjectPrice, ActionView},
		{"role:analyst", ObjectCompliance, ActionView},
		{"role:analyst", ObjectInventory, ActionView},
		{"role:analyst", ObjectOpas, ActionView},
		{"role:analyst", ObjectAlert, ActionView},
		{"role:analyst", ObjectOrder, ActionView},
		{"role:analyst", ObjectExport, ActionRun},

		// Compliance officers own pricing and violation handling.
		{"role:compliance_officer", ObjectDashboard, ActionView},
		{"role:compliance_officer", ObjectSeller, ActionView},
		{"role:compliance_officer", ObjectSeller, ActionModerate},
		{"role:compliance_officer", ObjectProduct, ActionView},
		{"role:compliance_officer", ObjectProduct, ActionCreate},
		{"role:compliance_officer", ObjectListing, ActionView},
		{"role:compliance_officer", ObjectPrice, ActionView},
		{"role:compliance_officer", ObjectPrice, ActionCreate},
		{"role:compliance_officer", ObjectCompliance, ActionView},
		{"role:compliance_officer", ObjectCompliance, ActionScan},
		{"role:compliance_officer", ObjectCompliance, ActionResolve},
		{"role:compliance_officer", ObjectAlert, ActionView},
		{"role:compliance_officer", ObjectAlert, ActionResolve},
		{"role:compliance_officer", ObjectOrder, ActionView},
		{"role:compliance_officer", ObjectExport, ActionRun},

		// Inventory managers own the OPAS stock ledger.
		{"role:inventory_manager", ObjectDashboard, ActionView},
		{"role:inventory_manager", ObjectProduct, ActionView},
		{"role:inventory_manager", ObjectInventory, ActionView},
		{"role:inventory_manager", ObjectInventory, ActionReceive},
		{"role:inventory_manager", ObjectInventory, ActionConsume},
		{"role:inventory_manager", ObjectInventory, ActionAdjust},
		{"role:inventory_manager", ObjectOpas, ActionView},
		{"role:inventory_manager", ObjectOpas, ActionCreate},
		{"role:inventory_manager", ObjectOpas, ActionDecide},
		{"role:inventory_manager", ObjectAlert, ActionView},
		{"role:inventory_manager", ObjectAlert, ActionResolve},

		// Super admins hold every capability, including key management.
		{"role:super_admin", ObjectDashboard, ActionView},
		{"role:super_admin", ObjectSeller, ActionView},
		{"role:super_admin", ObjectSeller, ActionModerate},
		{"role:super_admin", ObjectProduct, ActionView},
		{"role:super_admin", ObjectProduct, ActionCreate},
		{"role:super_admin", ObjectListing, ActionView},
		{"role:super_admin", ObjectListing, ActionCreate},
		{"role:super_admin", ObjectPrice, ActionView},
		{"role:super_admin", ObjectPrice, ActionCreate},
		{"role:super_admin", ObjectCompliance, ActionView},
		{"role:super_admin", ObjectCompliance, ActionScan},
		{"role:super_admin", ObjectCompliance, ActionResolve},
		{"role:super_admin", ObjectInventory, ActionView},
		{"role:super_admin", ObjectInventory, ActionReceive},
		{"role:super_admin", ObjectInventory, ActionConsume},
		{"role:super_admin", ObjectInventory, ActionAdjust},
		{"role:super_admin", ObjectOpas, ActionView},
		{"role:super_admin", ObjectOpas, ActionCreate},
		{"role:super_admin", ObjectOpas, ActionDecide},
		{"role:super_admin", ObjectAlert, ActionView},
		{"role:super_admin", ObjectAlert, ActionResolve},
		{"role:super_admin", ObjectOrder, ActionView},
		{"role:super_admin", ObjectAuditLog, ActionView},
		{"role:super_admin", ObjectAPIKey, ActionView},
		{"role:super_admin", ObjectAPIKey, ActionCreate},
		{"role:super_admin", ObjectAPIKey, ActionRevoke},
		{"role:super_admin", ObjectExport, ActionRun},

		// Machine keys: full read plus export, no moderation.
		{"role:system", ObjectDashboard, ActionView},
		{"role:system", ObjectSeller, ActionView},
		{"role:system", ObjectProduct, ActionView},
		{"role:system", ObjectListing, ActionView},
		{"role:system", ObjectPrice, ActionView},
		{"role:system", ObjectCompliance, ActionView},
		{"role:system", ObjectInventory, ActionView},
		{"role:system", ObjectOpas, ActionView},
		{"role:system", ObjectAlert, ActionView},
		{"role:system", ObjectOrder, ActionView},
		{"role:system", ObjectExport, ActionRun},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
