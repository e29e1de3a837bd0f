package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	"gorm.io/gorm"
)

// SyncEntry is one row of the purchase-aggregation feed. Entitled is the
// total number of vouchers the key may ever issue.
type SyncEntry struct {
	MayoristaID snowflake.ID
	CustomerID  snowflake.ID
	Spec        catalogdomain.ProductSpec
	Entitled    int
	Source      string
}

type SyncResult struct {
	Applied int     `json:"applied"`
	Entries []Entry `json:"entries"`
}

// Ledger is the allocation ledger. Reserve and Release take the caller's
// transaction so the quota change commits together with voucher rows.
type Ledger interface {
	// ResolveKey prefers the customer row and falls back to the mayorista pool.
	ResolveKey(ctx context.Context, tx *gorm.DB, mayoristaID, customerID snowflake.ID, spec catalogdomain.ProductSpec) (Key, error)
	Reserve(ctx context.Context, tx *gorm.DB, key Key, n int) error
	Release(ctx context.Context, tx *gorm.DB, key Key, n int) error
	Query(ctx context.Context, key Key) (Balance, error)
	List(ctx context.Context, filter ListFilter) ([]Entry, error)
	Sync(ctx context.Context, entries []SyncEntry) (SyncResult, error)
}

var (
	ErrInsufficientAllocation = errors.New("insufficient_allocation")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidKey             = errors.New("invalid_allocation_key")
	ErrReleaseMismatch        = errors.New("allocation_release_mismatch")
)
