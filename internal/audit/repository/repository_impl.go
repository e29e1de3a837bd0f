package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/bonos/internal/audit/domain"
	"gorm.io/gorm"
)

const auditColumns = `id, actor_role, actor_id, partner_id, action, target_type, target_id, request_id, metadata, created_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (`+auditColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActorRole,
		entry.ActorID,
		entry.PartnerID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.RequestID,
		entry.Metadata,
		entry.CreatedAt,
	).Error
}

// List returns entries newest first.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE 1 = 1`
	var args []any

	if filter.BeforeID != 0 {
		query += ` AND id < ?`
		args = append(args, filter.BeforeID)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		query += ` AND action = ?`
		args = append(args, action)
	}
	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		query += ` AND target_type = ?`
		args = append(args, targetType)
	}
	if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
		query += ` AND target_id = ?`
		args = append(args, targetID)
	}
	if filter.PartnerID != 0 {
		query += ` AND partner_id = ?`
		args = append(args, filter.PartnerID)
	}
	if filter.StartAt != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.StartAt)
	}
	if filter.EndAt != nil {
		query += ` AND created_at <= ?`
		args = append(args, *filter.EndAt)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, filter.Limit)

	var logs []*domain.AuditLog
	err := db.WithContext(ctx).Raw(query, args...).Scan(&logs).Error
	return logs, err
}
