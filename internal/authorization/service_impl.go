package authorization

import (
	"context"
	_ "embed"
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

const (
	ObjectVoucher    = "voucher"
	ObjectAllocation = "allocation"
	ObjectQRToken    = "qr_token"
	ObjectPartner    = "partner"
	ObjectCatalog    = "catalog"
	ObjectAudit      = "audit"
)

const (
	ActionVoucherIssue    = "voucher.issue"
	ActionVoucherActivate = "voucher.activate"
	ActionVoucherRedeem   = "voucher.redeem"
	ActionVoucherReject   = "voucher.reject"
	ActionVoucherVerify   = "voucher.verify"
	ActionVoucherView     = "voucher.view"
	ActionVoucherExpire   = "voucher.expire"

	ActionAllocationView = "allocation.view"
	ActionAllocationSync = "allocation.sync"

	ActionQRTokenMint = "qr_token.mint"

	ActionPartnerView   = "partner.view"
	ActionPartnerManage = "partner.manage"

	ActionCatalogView = "catalog.view"

	ActionAuditView = "audit.view"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer persists policies through the gorm adapter.
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
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds a seeded enforcer with no backing store.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role Role, object string, action string) error {
	if _, ok := ParseRole(string(role)); !ok {
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

	allowed, err := s.enforcer.Enforce(role.subject(), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("role", string(role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) Allowed(role Role, object string, action string) bool {
	allowed, err := s.enforcer.Enforce(role.subject(), object, action)
	return err == nil && allowed
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Every role may look up a scanned code.
		{RoleCliente.subject(), ObjectVoucher, ActionVoucherVerify},
		{RoleCliente.subject(), ObjectCatalog, ActionCatalogView},

		{RoleMayorista.subject(), ObjectVoucher, ActionVoucherIssue},
		{RoleMayorista.subject(), ObjectVoucher, ActionVoucherActivate},
		{RoleMayorista.subject(), ObjectVoucher, ActionVoucherVerify},
		{RoleMayorista.subject(), ObjectVoucher, ActionVoucherView},
		{RoleMayorista.subject(), ObjectAllocation, ActionAllocationView},
		{RoleMayorista.subject(), ObjectQRToken, ActionQRTokenMint},
		{RoleMayorista.subject(), ObjectPartner, ActionPartnerView},
		{RoleMayorista.subject(), ObjectCatalog, ActionCatalogView},

		{RoleReencauche.subject(), ObjectVoucher, ActionVoucherRedeem},
		{RoleReencauche.subject(), ObjectVoucher, ActionVoucherReject},
		{RoleReencauche.subject(), ObjectVoucher, ActionVoucherVerify},
		{RoleReencauche.subject(), ObjectCatalog, ActionCatalogView},

		{RoleAdmin.subject(), ObjectVoucher, ActionVoucherExpire},
		{RoleAdmin.subject(), ObjectAllocation, ActionAllocationSync},
		{RoleAdmin.subject(), ObjectPartner, ActionPartnerManage},
		{RoleAdmin.subject(), ObjectAudit, ActionAuditView},
	}
	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy[0], policy[1], policy[2])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}

	groupings := [][]string{
		{RoleAdmin.subject(), RoleMayorista.subject()},
		{RoleAdmin.subject(), RoleReencauche.subject()},
		{RoleSystem.subject(), RoleAdmin.subject()},
	}
	for _, rule := range groupings {
		has, err := enforcer.HasGroupingPolicy(rule[0], rule[1])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
	}
	return nil
}
