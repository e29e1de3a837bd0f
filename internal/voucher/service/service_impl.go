package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/voucher/domain"
	"github.com/smallbiznis/bonos/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Store {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("voucher.store"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Create inserts a new voucher. Only fresh PENDING vouchers are accepted.
func (s *Service) Create(ctx context.Context, tx *gorm.DB, v *domain.Voucher) error {
	if v == nil || v.ID == 0 || v.CustomerID == 0 || v.MayoristaID == 0 {
		return domain.ErrInvalidVoucher
	}
	if strings.TrimSpace(v.InvoiceNumber) == "" || !v.Spec().Valid() {
		return domain.ErrInvalidVoucher
	}
	if v.Status != domain.StatusPending || v.Master != "" || v.Item != "" || v.RedeemInvoice != "" {
		return domain.ErrInvalidVoucher
	}
	now := s.clock.Now()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = v.CreatedAt
	return s.repo.Insert(ctx, s.conn(tx), v)
}

func (s *Service) Get(ctx context.Context, tx *gorm.DB, id snowflake.ID) (domain.Voucher, error) {
	if id == 0 {
		return domain.Voucher{}, domain.ErrNotFound
	}
	item, err := s.repo.FindByID(ctx, s.conn(tx), id)
	if err != nil {
		return domain.Voucher{}, err
	}
	if item == nil {
		return domain.Voucher{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListByInvoice(ctx context.Context, tx *gorm.DB, invoiceNumber string) ([]domain.Voucher, error) {
	items, err := s.repo.ListByInvoice(ctx, s.conn(tx), strings.TrimSpace(invoiceNumber))
	if err != nil {
		return nil, err
	}
	return flatten(items), nil
}

func (s *Service) ListByMaster(ctx context.Context, tx *gorm.DB, master string) ([]domain.Voucher, error) {
	items, err := s.repo.ListByMaster(ctx, s.conn(tx), strings.TrimSpace(master))
	if err != nil {
		return nil, err
	}
	return flatten(items), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		MayoristaID:   req.MayoristaID,
		CustomerID:    req.CustomerID,
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		Limit:         req.Page.Limit() + 1,
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if token := strings.TrimSpace(req.Page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.AfterID = snowflake.ID(cursor.ID)
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}
	page, info, err := pagination.Trim(flatten(items), req.Page.Limit(), func(v domain.Voucher) int64 {
		return v.ID.Int64()
	})
	if err != nil {
		return domain.ListResponse{}, err
	}
	return domain.ListResponse{PageInfo: info, Vouchers: page}, nil
}

func (s *Service) Activate(ctx context.Context, tx *gorm.DB, id snowflake.ID, master, item, userID string) (domain.Voucher, error) {
	master, item = strings.TrimSpace(master), strings.TrimSpace(item)
	if master == "" || item == "" {
		return domain.Voucher{}, domain.ErrMissingMasterItem
	}
	return s.transition(ctx, tx, id, domain.StatusActive, func(db *gorm.DB, at time.Time) (bool, error) {
		return s.repo.MarkActive(ctx, db, id, master, item, strings.TrimSpace(userID), at)
	})
}

func (s *Service) Redeem(ctx context.Context, tx *gorm.DB, id snowflake.ID, redeemInvoice, userID string) (domain.Voucher, error) {
	redeemInvoice = strings.TrimSpace(redeemInvoice)
	if redeemInvoice == "" {
		return domain.Voucher{}, domain.ErrMissingRedeemInvoice
	}
	return s.transition(ctx, tx, id, domain.StatusUsed, func(db *gorm.DB, at time.Time) (bool, error) {
		return s.repo.MarkUsed(ctx, db, id, redeemInvoice, strings.TrimSpace(userID), at)
	})
}

// Reject marks an ACTIVE voucher REJECTED and links its replacement, which
// the caller must have created in the same transaction.
func (s *Service) Reject(ctx context.Context, tx *gorm.DB, id snowflake.ID, reason, userID string, replacementID snowflake.ID) (domain.Voucher, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Voucher{}, domain.ErrMissingRejectReason
	}
	if replacementID == 0 {
		return domain.Voucher{}, domain.ErrInvalidVoucher
	}
	return s.transition(ctx, tx, id, domain.StatusRejected, func(db *gorm.DB, at time.Time) (bool, error) {
		return s.repo.MarkRejected(ctx, db, id, reason, strings.TrimSpace(userID), replacementID, at)
	})
}

func (s *Service) ExpireBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	count, err := s.repo.ExpireCreatedBefore(ctx, s.conn(tx), cutoff.UTC(), s.clock.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Info("vouchers expired", zap.Time("cutoff", cutoff), zap.Int64("count", count))
	}
	return count, nil
}

// transition applies a compare-and-swap mutation. Zero rows changed means
// either the voucher does not exist or it left the expected status first.
func (s *Service) transition(ctx context.Context, tx *gorm.DB, id snowflake.ID, to domain.Status, apply func(*gorm.DB, time.Time) (bool, error)) (domain.Voucher, error) {
	if id == 0 {
		return domain.Voucher{}, domain.ErrNotFound
	}
	db := s.conn(tx)
	changed, err := apply(db, s.clock.Now())
	if err != nil {
		return domain.Voucher{}, err
	}

	current, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return domain.Voucher{}, err
	}
	if current == nil {
		return domain.Voucher{}, domain.ErrNotFound
	}
	if !changed {
		s.log.Debug("transition refused",
			zap.String("voucher_id", id.String()),
			zap.String("from", string(current.Status)),
			zap.String("to", string(to)),
		)
		return *current, domain.ErrInvalidStateTransition
	}
	return *current, nil
}

func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func flatten(items []*domain.Voucher) []domain.Voucher {
	out := make([]domain.Voucher, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}
