package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/bonos/internal/audit/domain"
	"github.com/smallbiznis/bonos/internal/audit/masking"
	"github.com/smallbiznis/bonos/internal/clock"
	obscontext "github.com/smallbiznis/bonos/internal/observability/context"
	"github.com/smallbiznis/bonos/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, event auditdomain.Event) error {
	action := strings.TrimSpace(event.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(event.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	role, actorID := strings.TrimSpace(event.ActorRole), strings.TrimSpace(event.ActorID)
	if role == "" {
		role, actorID = obscontext.ActorFromContext(ctx)
	}
	if role == "" {
		role = "system"
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorRole:  role,
		ActorID:    actorID,
		PartnerID:  s.resolvePartnerID(ctx, event.PartnerID),
		Action:     action,
		TargetType: targetType,
		TargetID:   strings.TrimSpace(event.TargetID),
		RequestID:  obscontext.RequestIDFromContext(ctx),
		CreatedAt:  s.clock.Now(),
	}
	if masked := masking.MaskSensitive(event.Metadata); masked != nil {
		entry.Metadata = datatypes.JSONMap(masked)
	}

	db := tx
	if db == nil {
		db = s.db
	}
	if err := s.repo.Insert(ctx, db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	filter := auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		PartnerID:  req.PartnerID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Limit:      req.Limit() + 1,
	}
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, err
		}
		filter.BeforeID = snowflake.ID(cursor.ID)
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}
	page, info, err := pagination.Trim(logs, req.Limit(), func(entry auditdomain.AuditLog) int64 {
		return entry.ID.Int64()
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}
	return auditdomain.ListAuditLogResponse{PageInfo: info, AuditLogs: page}, nil
}

func (s *Service) resolvePartnerID(ctx context.Context, partnerID snowflake.ID) *snowflake.ID {
	if partnerID != 0 {
		return &partnerID
	}
	raw := obscontext.PartnerIDFromContext(ctx)
	if raw == "" {
		return nil
	}
	parsed, err := snowflake.ParseString(raw)
	if err != nil || parsed == 0 {
		return nil
	}
	return &parsed
}
