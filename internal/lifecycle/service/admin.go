package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/bonos/internal/allocation/domain"
	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	"github.com/smallbiznis/bonos/internal/lifecycle/domain"
	"github.com/smallbiznis/bonos/internal/observability/logger"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExpireBefore moves PENDING and ACTIVE vouchers created before cutoff to
// EXPIRED. Quota is not returned.
func (s *Service) ExpireBefore(ctx context.Context, actor domain.Actor, cutoff time.Time) (result domain.ExpireResult, err error) {
	started := time.Now()
	defer func() { s.observe(ctx, "expire", started, err) }()

	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherExpire); err != nil {
		return domain.ExpireResult{}, err
	}
	if cutoff.IsZero() {
		return domain.ExpireResult{}, fmt.Errorf("%w: cutoff is required", domain.ErrInvalidRequest)
	}

	var expired int64
	err = s.inTx(ctx, func(ctx context.Context, tx *gorm.DB) error {
		n, err := s.vouchers.ExpireBefore(ctx, tx, cutoff.UTC())
		if err != nil {
			return err
		}
		expired = n
		return s.record(ctx, tx, actor, authorization.ActionVoucherExpire, auditdomain.TargetVoucher, "", map[string]any{
			"cutoff":  cutoff.UTC().Format(time.RFC3339),
			"expired": n,
		})
	})
	if err != nil {
		return domain.ExpireResult{}, err
	}

	logger.WithContext(ctx, s.log).Debug("expiry applied",
		zap.Time("cutoff", cutoff.UTC()),
		zap.Int64("count", expired),
	)
	s.metrics.RecordExpired(ctx, int(expired))
	s.metrics.RecordTransition(ctx, "expire", string(voucherdomain.StatusExpired), int(expired))
	return domain.ExpireResult{Cutoff: cutoff.UTC(), Expired: expired}, nil
}

func (s *Service) GetVoucher(ctx context.Context, actor domain.Actor, id snowflake.ID) (voucherdomain.Voucher, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherView); err != nil {
		return voucherdomain.Voucher{}, err
	}
	v, err := s.vouchers.Get(ctx, nil, id)
	if err != nil {
		return voucherdomain.Voucher{}, err
	}
	if !inScope(actor, v.MayoristaID, v.CustomerID) {
		return voucherdomain.Voucher{}, domain.ErrUnauthorized
	}
	return v, nil
}

func (s *Service) ListVouchers(ctx context.Context, actor domain.Actor, req voucherdomain.ListRequest) (voucherdomain.ListResponse, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectVoucher, authorization.ActionVoucherView); err != nil {
		return voucherdomain.ListResponse{}, err
	}
	if actor.Role == authorization.RoleMayorista && actor.PartnerID != 0 {
		if req.MayoristaID != 0 && req.MayoristaID != actor.PartnerID {
			return voucherdomain.ListResponse{}, domain.ErrUnauthorized
		}
		req.MayoristaID = actor.PartnerID
	}
	return s.vouchers.List(ctx, req)
}

func (s *Service) ListAllocations(ctx context.Context, actor domain.Actor, query domain.AllocationQuery) ([]allocationdomain.Entry, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectAllocation, authorization.ActionAllocationView); err != nil {
		return nil, err
	}
	if actor.Role == authorization.RoleMayorista && actor.PartnerID != 0 {
		if query.MayoristaID != 0 && query.MayoristaID != actor.PartnerID {
			return nil, domain.ErrUnauthorized
		}
		query.MayoristaID = actor.PartnerID
	}
	if query.MayoristaID == 0 {
		return nil, fmt.Errorf("%w: mayorista is required", domain.ErrInvalidRequest)
	}
	return s.ledger.List(ctx, allocationdomain.ListFilter{
		MayoristaID: query.MayoristaID,
		CustomerID:  query.CustomerID,
	})
}

func (s *Service) SyncAllocations(ctx context.Context, actor domain.Actor, entries []allocationdomain.SyncEntry) (domain.AllocationSyncResult, error) {
	if err := s.authz.Authorize(ctx, actor.Role, authorization.ObjectAllocation, authorization.ActionAllocationSync); err != nil {
		return domain.AllocationSyncResult{}, err
	}
	if len(entries) == 0 {
		return domain.AllocationSyncResult{}, domain.ErrEmptyBatch
	}
	result, err := s.ledger.Sync(ctx, entries)
	if err != nil {
		return domain.AllocationSyncResult{}, err
	}
	if err := s.record(ctx, nil, actor, authorization.ActionAllocationSync, auditdomain.TargetAllocation, "", map[string]any{
		"applied": result.Applied,
	}); err != nil {
		logger.WithContext(ctx, s.log).Warn("allocation sync audit failed", zap.Error(err))
	}
	return result, nil
}
