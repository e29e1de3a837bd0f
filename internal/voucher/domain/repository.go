package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	MayoristaID   snowflake.ID
	CustomerID    snowflake.ID
	InvoiceNumber string
	Status        Status
	AfterID       snowflake.ID
	Limit         int
}

// Repository mutations are compare-and-swap on (id, status) and report
// whether a row changed.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, voucher *Voucher) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Voucher, error)
	ListByInvoice(ctx context.Context, db *gorm.DB, invoiceNumber string) ([]*Voucher, error)
	ListByMaster(ctx context.Context, db *gorm.DB, master string) ([]*Voucher, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Voucher, error)

	MarkActive(ctx context.Context, db *gorm.DB, id snowflake.ID, master, item, userID string, at time.Time) (bool, error)
	MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, redeemInvoice, userID string, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, db *gorm.DB, id snowflake.ID, reason, userID string, replacementID snowflake.ID, at time.Time) (bool, error)
	ExpireCreatedBefore(ctx context.Context, db *gorm.DB, cutoff, at time.Time) (int64, error)
}
