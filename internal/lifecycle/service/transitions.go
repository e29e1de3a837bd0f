package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	"github.com/smallbiznis/bonos/internal/lifecycle/domain"
	"github.com/smallbiznis/bonos/internal/observability/logger"
	qrtokendomain "github.com/smallbiznis/bonos/internal/qrtoken/domain"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
	"github.com/smallbiznis/bonos/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// masterFor decides the master label for one activation item.
type masterFor func(v voucherdomain.Voucher, item domain.ActivationRequest) (string, error)

func (s *Service) ActivateByInvoice(ctx context.Context, actor domain.Actor, invoiceNumber string, items []domain.ActivationRequest) (result domain.ActivateResult, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, "activate_invoice", started, err) }()

	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherActivate); err != nil {
		return domain.ActivateResult{}, err
	}
	invoice := strings.TrimSpace(invoiceNumber)
	if invoice == "" {
		return domain.ActivateResult{}, fmt.Errorf("%w: invoice number is required", domain.ErrInvalidRequest)
	}
	if len(items) == 0 {
		return domain.ActivateResult{}, domain.ErrEmptyBatch
	}

	result = s.activate(ctx, actor, items, func(v voucherdomain.Voucher, item domain.ActivationRequest) (string, error) {
		if v.InvoiceNumber != invoice {
			return "", domain.ErrVoucherNotInTarget
		}
		return strings.TrimSpace(item.Master), nil
	})

	// One master token per distinct master activated in this call.
	seen := make(map[string]struct{})
	for _, item := range result.Items {
		if !item.Success || item.Voucher == nil {
			continue
		}
		master := item.Voucher.Master
		if _, ok := seen[master]; ok {
			continue
		}
		seen[master] = struct{}{}
		token, err := s.tokens.MintForMaster(ctx, master)
		if err != nil {
			logger.WithContext(ctx, s.log).Warn("master token not minted", zap.String("master", master), zap.Error(err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("master token for %s could not be minted", master))
			continue
		}
		result.MasterTokens = append(result.MasterTokens, domain.MasterToken{Master: master, Token: token})
	}
	return result, nil
}

func (s *Service) ActivateByMaster(ctx context.Context, actor domain.Actor, token string, items []domain.ActivationRequest) (result domain.ActivateResult, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, "activate_master", started, err) }()

	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherActivate); err != nil {
		return domain.ActivateResult{}, err
	}
	target, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return domain.ActivateResult{}, err
	}
	if target.Kind != qrtokendomain.KindMaster {
		return domain.ActivateResult{}, qrtokendomain.ErrInvalidToken
	}
	if len(items) == 0 {
		return domain.ActivateResult{}, domain.ErrEmptyBatch
	}

	result = s.activate(ctx, actor, items, func(_ voucherdomain.Voucher, item domain.ActivationRequest) (string, error) {
		master := strings.TrimSpace(item.Master)
		if master != "" && master != target.Value {
			return "", domain.ErrMasterMismatch
		}
		return target.Value, nil
	})
	return result, nil
}

// activate runs each item in its own transaction; one failure does not
// affect the others.
func (s *Service) activate(ctx context.Context, actor domain.Actor, items []domain.ActivationRequest, resolve masterFor) domain.ActivateResult {
	result := domain.ActivateResult{
		Items:        make([]domain.ItemResult, 0, len(items)),
		MasterTokens: []domain.MasterToken{},
	}
	activated := 0
	for _, item := range items {
		var out voucherdomain.Voucher
		err := s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
			v, err := s.vouchers.Get(ctx, tx, item.VoucherID)
			if err != nil {
				return err
			}
			if !inScope(actor, v.MayoristaID, v.CustomerID) {
				return domain.ErrUnauthorized
			}
			master, err := resolve(v, item)
			if err != nil {
				return err
			}
			out, err = s.vouchers.Activate(ctx, tx, v.ID, master, strings.TrimSpace(item.Item), actor.UserID)
			if err != nil {
				return err
			}
			return s.record(ctx, tx, actor, authorization.ActionVoucherActivate, auditdomain.TargetVoucher, out.ID.String(), map[string]any{
				"master": out.Master,
				"item":   out.Item,
			})
		})
		if err == nil {
			activated++
			logger.WithVoucher(logger.WithContext(ctx, s.log), out.ID.String(), string(out.Status)).Info("voucher activated")
		}
		result.Items = append(result.Items, s.itemResult(ctx, item.VoucherID, out, err))
	}
	s.metrics.RecordTransition(ctx, "activate", string(voucherdomain.StatusActive), activated)
	return result
}

func (s *Service) RedeemBatch(ctx context.Context, actor domain.Actor, items []domain.RedemptionRequest) (result domain.RedeemResult, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, "redeem", started, err) }()

	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherRedeem); err != nil {
		return domain.RedeemResult{}, err
	}
	if len(items) == 0 {
		return domain.RedeemResult{}, domain.ErrEmptyBatch
	}

	result.Items = make([]domain.ItemResult, 0, len(items))
	redeemed := 0
	for _, item := range items {
		var out voucherdomain.Voucher
		err := s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
			v, err := s.vouchers.Get(ctx, tx, item.VoucherID)
			if err != nil {
				return err
			}
			if !inScope(actor, v.MayoristaID, v.CustomerID) {
				return domain.ErrUnauthorized
			}
			out, err = s.vouchers.Redeem(ctx, tx, v.ID, strings.TrimSpace(item.RedeemInvoice), actor.UserID)
			if err != nil {
				return err
			}
			return s.record(ctx, tx, actor, authorization.ActionVoucherRedeem, auditdomain.TargetVoucher, out.ID.String(), map[string]any{
				"redeem_invoice": out.RedeemInvoice,
			})
		})
		if err == nil {
			redeemed++
			logger.WithVoucher(logger.WithContext(ctx, s.log), out.ID.String(), string(out.Status)).Info("voucher redeemed")
		}
		result.Items = append(result.Items, s.itemResult(ctx, item.VoucherID, out, err))
	}
	s.metrics.RecordTransition(ctx, "redeem", string(voucherdomain.StatusUsed), redeemed)
	return result, nil
}

// Reject closes an ACTIVE voucher and issues its PENDING replacement in the
// same transaction. Allocation counts are untouched. The loser of a race on
// the same voucher gets ErrInvalidStateTransition.
func (s *Service) Reject(ctx context.Context, actor domain.Actor, req domain.RejectRequest) (result domain.RejectResult, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, "reject", started, err) }()

	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherReject); err != nil {
		return domain.RejectResult{}, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.RejectResult{}, voucherdomain.ErrMissingRejectReason
	}

	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		original, err := s.vouchers.Get(ctx, tx, req.VoucherID)
		if err != nil {
			return err
		}
		if !inScope(actor, original.MayoristaID, original.CustomerID) {
			return domain.ErrUnauthorized
		}
		if !voucherdomain.CanTransition(original.Status, voucherdomain.StatusRejected) {
			return voucherdomain.ErrInvalidStateTransition
		}

		// The compare-and-swap on the original runs first so a concurrent
		// loser stops there instead of on the replacement's unique link.
		replacementID := s.genID.Generate()
		rejected, err := s.vouchers.Reject(ctx, tx, original.ID, reason, actor.UserID, replacementID)
		if err != nil {
			return err
		}

		originalID := original.ID
		replacement := voucherdomain.Voucher{
			ID:                replacementID,
			MayoristaID:       original.MayoristaID,
			CustomerID:        original.CustomerID,
			Brand:             original.Brand,
			Size:              original.Size,
			Design:            original.Design,
			RimSize:           original.RimSize,
			InvoiceNumber:     original.InvoiceNumber,
			Status:            voucherdomain.StatusPending,
			ReplacesVoucherID: &originalID,
		}
		if err := s.vouchers.Create(ctx, tx, &replacement); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return voucherdomain.ErrInvalidStateTransition
			}
			return err
		}
		result = domain.RejectResult{Rejected: rejected, Replacement: replacement}
		return s.record(ctx, tx, actor, authorization.ActionVoucherReject, auditdomain.TargetVoucher, rejected.ID.String(), map[string]any{
			"reason":                 reason,
			"replacement_voucher_id": replacement.ID.String(),
		})
	})
	if err != nil {
		return domain.RejectResult{}, err
	}

	logger.WithVoucher(logger.WithContext(ctx, s.log), result.Rejected.ID.String(), string(result.Rejected.Status)).Info("voucher rejected",
		zap.String("replacement_voucher_id", result.Replacement.ID.String()),
	)
	s.metrics.RecordTransition(ctx, "reject", string(voucherdomain.StatusRejected), 1)
	s.metrics.RecordTransition(ctx, "reissue", string(voucherdomain.StatusPending), 1)
	return result, nil
}
