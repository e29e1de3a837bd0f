package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	MayoristaID snowflake.ID
	CustomerID  *snowflake.ID
}

type Repository interface {
	FindByKey(ctx context.Context, db *gorm.DB, key Key) (*Entry, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Entry, error)
	// Decrement moves n units from available to issued only when enough are
	// available. It reports whether the row was updated.
	Decrement(ctx context.Context, db *gorm.DB, key Key, n int, at time.Time) (bool, error)
	Increment(ctx context.Context, db *gorm.DB, key Key, n int, at time.Time) (bool, error)
	UpsertEntitlement(ctx context.Context, db *gorm.DB, entry *Entry, entitled int) error
}
