package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	"github.com/smallbiznis/bonos/internal/lifecycle/domain"
	"github.com/smallbiznis/bonos/internal/observability/logger"
	qrtokendomain "github.com/smallbiznis/bonos/internal/qrtoken/domain"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
	"go.uber.org/zap"
)

// Verify resolves a scanned token and returns what it references. It never
// changes state.
func (s *Service) Verify(ctx context.Context, actor domain.Actor, token string) (result domain.VerifyResult, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, "verify", started, err) }()

	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherVerify); err != nil {
		return domain.VerifyResult{}, err
	}
	target, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return domain.VerifyResult{}, err
	}
	vouchers, err := s.vouchersFor(ctx, target)
	if err != nil {
		return domain.VerifyResult{}, err
	}

	visible := make([]voucherdomain.Voucher, 0, len(vouchers))
	for _, v := range vouchers {
		if inScope(actor, v.MayoristaID, v.CustomerID) {
			visible = append(visible, v)
		}
	}
	if len(vouchers) > 0 && len(visible) == 0 {
		return domain.VerifyResult{}, domain.ErrUnauthorized
	}

	result = domain.VerifyResult{
		Kind:     target.Kind,
		Value:    target.Value,
		Vouchers: make([]domain.VerifiedVoucher, 0, len(visible)),
	}
	for _, v := range visible {
		result.Vouchers = append(result.Vouchers, domain.VerifiedVoucher{
			Voucher:        v,
			AllowedActions: s.allowedActions(actor, v),
		})
	}

	if customerID, ok := singleCustomer(visible); ok {
		if customer, err := s.partners.GetCustomer(ctx, customerID); err == nil {
			result.Customer = &customer
			if partner, err := s.partners.GetPartner(ctx, customer.MayoristaID); err == nil {
				result.BusinessPartner = &partner
			}
		}
	}
	return result, nil
}

func (s *Service) vouchersFor(ctx context.Context, target qrtokendomain.Target) ([]voucherdomain.Voucher, error) {
	switch target.Kind {
	case qrtokendomain.KindInvoice:
		return s.vouchers.ListByInvoice(ctx, nil, target.Value)
	case qrtokendomain.KindMaster:
		return s.vouchers.ListByMaster(ctx, nil, target.Value)
	default:
		return nil, qrtokendomain.ErrInvalidToken
	}
}

func (s *Service) allowedActions(actor domain.Actor, v voucherdomain.Voucher) []string {
	actions := []string{}
	switch v.Status {
	case voucherdomain.StatusPending:
		if s.authz.Allowed(actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherActivate) {
			actions = append(actions, domain.ActionActivate)
		}
	case voucherdomain.StatusActive:
		if s.authz.Allowed(actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherRedeem) {
			actions = append(actions, domain.ActionRedeem)
		}
		if s.authz.Allowed(actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherReject) {
			actions = append(actions, domain.ActionReject)
		}
	}
	return actions
}

func singleCustomer(vouchers []voucherdomain.Voucher) (snowflake.ID, bool) {
	if len(vouchers) == 0 {
		return 0, false
	}
	id := vouchers[0].CustomerID
	for _, v := range vouchers[1:] {
		if v.CustomerID != id {
			return 0, false
		}
	}
	return id, true
}

func (s *Service) MintForInvoice(ctx context.Context, actor domain.Actor, invoiceNumber string) (domain.MintResult, error) {
	invoice := strings.TrimSpace(invoiceNumber)
	return s.mint(ctx, actor, qrtokendomain.Target{Kind: qrtokendomain.KindInvoice, Value: invoice})
}

func (s *Service) MintForMaster(ctx context.Context, actor domain.Actor, master string) (domain.MintResult, error) {
	value := strings.TrimSpace(master)
	return s.mint(ctx, actor, qrtokendomain.Target{Kind: qrtokendomain.KindMaster, Value: value})
}

// mint only issues tokens for targets that reference at least one voucher
// the actor may see.
func (s *Service) mint(ctx context.Context, actor domain.Actor, target qrtokendomain.Target) (result domain.MintResult, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, "mint_"+string(target.Kind), started, err) }()

	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectQRToken, authorization.ActionQRTokenMint); err != nil {
		return domain.MintResult{}, err
	}
	if target.Value == "" {
		return domain.MintResult{}, qrtokendomain.ErrInvalidTarget
	}
	vouchers, err := s.vouchersFor(ctx, target)
	if err != nil {
		return domain.MintResult{}, err
	}
	if len(vouchers) == 0 {
		return domain.MintResult{}, domain.ErrNotFound
	}
	for _, v := range vouchers {
		if !inScope(actor, v.MayoristaID, v.CustomerID) {
			return domain.MintResult{}, domain.ErrUnauthorized
		}
	}

	var token string
	if target.Kind == qrtokendomain.KindInvoice {
		token, err = s.tokens.MintForInvoice(ctx, target.Value)
	} else {
		token, err = s.tokens.MintForMaster(ctx, target.Value)
	}
	if err != nil {
		return domain.MintResult{}, err
	}
	if err := s.record(ctx, nil, actor, authorization.ActionQRTokenMint, auditdomain.TargetQRToken, target.Value, map[string]any{
		"kind": string(target.Kind),
	}); err != nil {
		logger.WithContext(ctx, s.log).Warn("qr token audit failed", zap.Error(err))
	}
	return domain.MintResult{Kind: target.Kind, Value: target.Value, Token: token}, nil
}
