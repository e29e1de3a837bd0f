package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/bonos/internal/allocation/domain"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
)

// Service coordinates every change to vouchers and allocations.
type Service interface {
	Issue(ctx context.Context, actor Actor, req IssueRequest) (IssueResult, error)
	// IssueBatch is all-or-nothing. When any line fails the result lists
	// every failing line and the error names the first failure.
	IssueBatch(ctx context.Context, actor Actor, req IssueBatchRequest) (IssueBatchResult, error)
	ActivateByInvoice(ctx context.Context, actor Actor, invoiceNumber string, items []ActivationRequest) (ActivateResult, error)
	ActivateByMaster(ctx context.Context, actor Actor, token string, items []ActivationRequest) (ActivateResult, error)
	RedeemBatch(ctx context.Context, actor Actor, items []RedemptionRequest) (RedeemResult, error)
	Reject(ctx context.Context, actor Actor, req RejectRequest) (RejectResult, error)
	Verify(ctx context.Context, actor Actor, token string) (VerifyResult, error)
	MintForInvoice(ctx context.Context, actor Actor, invoiceNumber string) (MintResult, error)
	MintForMaster(ctx context.Context, actor Actor, master string) (MintResult, error)
	ExpireBefore(ctx context.Context, actor Actor, cutoff time.Time) (ExpireResult, error)

	GetVoucher(ctx context.Context, actor Actor, id snowflake.ID) (voucherdomain.Voucher, error)
	ListVouchers(ctx context.Context, actor Actor, req voucherdomain.ListRequest) (voucherdomain.ListResponse, error)
	ListAllocations(ctx context.Context, actor Actor, query AllocationQuery) ([]allocationdomain.Entry, error)
	SyncAllocations(ctx context.Context, actor Actor, entries []allocationdomain.SyncEntry) (AllocationSyncResult, error)
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrVoucherNotInTarget = errors.New("voucher_not_in_target")
	ErrMasterMismatch     = errors.New("master_mismatch")
	ErrEmptyBatch         = errors.New("empty_batch")
)
