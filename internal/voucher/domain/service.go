package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bonos/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListRequest struct {
	MayoristaID   snowflake.ID
	CustomerID    snowflake.ID
	InvoiceNumber string
	Status        string
	Page          pagination.Pagination
}

type ListResponse struct {
	pagination.PageInfo
	Vouchers []Voucher `json:"vouchers"`
}

// Store owns every voucher row and state change. Methods taking tx run
// inside the caller's transaction; a nil tx uses the default connection.
type Store interface {
	Create(ctx context.Context, tx *gorm.DB, voucher *Voucher) error
	Get(ctx context.Context, tx *gorm.DB, id snowflake.ID) (Voucher, error)
	ListByInvoice(ctx context.Context, tx *gorm.DB, invoiceNumber string) ([]Voucher, error)
	ListByMaster(ctx context.Context, tx *gorm.DB, master string) ([]Voucher, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)

	Activate(ctx context.Context, tx *gorm.DB, id snowflake.ID, master, item, userID string) (Voucher, error)
	Redeem(ctx context.Context, tx *gorm.DB, id snowflake.ID, redeemInvoice, userID string) (Voucher, error)
	Reject(ctx context.Context, tx *gorm.DB, id snowflake.ID, reason, userID string, replacementID snowflake.ID) (Voucher, error)
	ExpireBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

var (
	ErrNotFound               = errors.New("not_found")
	ErrInvalidStateTransition = errors.New("invalid_state_transition")
	ErrInvalidVoucher         = errors.New("invalid_voucher")
	ErrMissingMasterItem      = errors.New("missing_master_or_item")
	ErrMissingRedeemInvoice   = errors.New("missing_redeem_invoice")
	ErrMissingRejectReason    = errors.New("missing_reject_reason")
	ErrInvalidStatus          = errors.New("invalid_status")
)
