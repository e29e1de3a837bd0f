package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	FindByHash(ctx context.Context, db *gorm.DB, hash string) (*Record, error)
}
