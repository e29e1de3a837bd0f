package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/bonos/internal/allocation/domain"
	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	"github.com/smallbiznis/bonos/internal/clock"
	dispatchdomain "github.com/smallbiznis/bonos/internal/dispatch/domain"
	"github.com/smallbiznis/bonos/internal/lifecycle/domain"
	obsmetrics "github.com/smallbiznis/bonos/internal/observability/metrics"
	partnerdomain "github.com/smallbiznis/bonos/internal/partner/domain"
	qrtokendomain "github.com/smallbiznis/bonos/internal/qrtoken/domain"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Authz      authorization.Service
	Catalog    catalogdomain.Service
	Partners   partnerdomain.Service
	Ledger     allocationdomain.Ledger
	Vouchers   voucherdomain.Store
	Tokens     qrtokendomain.Service
	Dispatcher dispatchdomain.Dispatcher `optional:"true"`
	Audit      auditdomain.Service       `optional:"true"`
	Metrics    *obsmetrics.Metrics       `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	authz      authorization.Service
	catalog    catalogdomain.Service
	partners   partnerdomain.Service
	ledger     allocationdomain.Ledger
	vouchers   voucherdomain.Store
	tokens     qrtokendomain.Service
	dispatcher dispatchdomain.Dispatcher
	auditor    auditdomain.Service
	metrics    *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("lifecycle.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		authz:      p.Authz,
		catalog:    p.Catalog,
		partners:   p.Partners,
		ledger:     p.Ledger,
		vouchers:   p.Vouchers,
		tokens:     p.Tokens,
		dispatcher: p.Dispatcher,
		auditor:    p.Audit,
		metrics:    p.Metrics,
	}
}

// inTx runs fn in its own transaction. Once started, a transaction is not
// interrupted by the caller's cancellation.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, tx *gorm.DB) error) error {
	txCtx := context.WithoutCancel(ctx)
	return s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		return fn(txCtx, tx)
	})
}

// inScope reports whether the actor's organization owns the voucher or row.
// Actors without a partner id are not narrowed.
func inScope(actor domain.Actor, mayoristaID, customerID snowflake.ID) bool {
	if actor.PartnerID == 0 {
		return true
	}
	switch actor.Role {
	case authorization.RoleMayorista:
		return mayoristaID == actor.PartnerID
	case authorization.RoleReencauche, authorization.RoleCliente:
		return customerID == actor.PartnerID
	default:
		return true
	}
}

func (s *Service) itemResult(ctx context.Context, id snowflake.ID, v voucherdomain.Voucher, err error) domain.ItemResult {
	if err == nil {
		out := v
		return domain.ItemResult{VoucherID: id, Success: true, Voucher: &out}
	}
	kind := domain.Kind(err)
	message := err.Error()
	if kind == domain.KindInternal {
		s.log.Error("voucher transition failed", zap.String("voucher_id", id.String()), zap.Error(err))
		message = "internal error"
	}
	return domain.ItemResult{VoucherID: id, ErrorKind: kind, Message: message}
}

// record appends an audit entry on tx, so it commits with the change.
func (s *Service) record(ctx context.Context, tx *gorm.DB, actor domain.Actor, action, targetType, targetID string, metadata map[string]any) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Record(ctx, tx, auditdomain.Event{
		ActorRole:  string(actor.Role),
		ActorID:    actor.UserID,
		PartnerID:  actor.PartnerID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
	})
}

func (s *Service) observe(ctx context.Context, operation string, started time.Time, err error) {
	s.metrics.ObserveOperation(ctx, operation, started, err)
}
