package repository

import (
	"context"

	"github.com/smallbiznis/bonos/internal/qrtoken/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO qr_tokens (id, token_id, token_hash, kind, value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.TokenID,
		record.TokenHash,
		record.Kind,
		record.Value,
		record.CreatedAt,
	).Error
}

func (r *repo) FindByHash(ctx context.Context, db *gorm.DB, hash string) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).Raw(
		`SELECT id, token_id, token_hash, kind, value, created_at
		 FROM qr_tokens WHERE token_hash = ?`,
		hash,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}
