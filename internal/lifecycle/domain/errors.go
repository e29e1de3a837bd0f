package domain

import (
	"errors"

	allocationdomain "github.com/smallbiznis/bonos/internal/allocation/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	partnerdomain "github.com/smallbiznis/bonos/internal/partner/domain"
	qrtokendomain "github.com/smallbiznis/bonos/internal/qrtoken/domain"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
	"github.com/smallbiznis/bonos/pkg/db/pagination"
)

// Error kinds reported to callers.
const (
	KindInsufficientAllocation = "insufficient_allocation"
	KindInvalidStateTransition = "invalid_state_transition"
	KindInvalidToken           = "invalid_token"
	KindNotFound               = "not_found"
	KindUnauthorized           = "unauthorized"
	KindInvalidRequest         = "invalid_request"
	KindInternal               = "internal"
)

var kindTable = []struct {
	kind string
	errs []error
}{
	{KindInsufficientAllocation, []error{allocationdomain.ErrInsufficientAllocation}},
	{KindInvalidStateTransition, []error{voucherdomain.ErrInvalidStateTransition}},
	{KindInvalidToken, []error{qrtokendomain.ErrInvalidToken}},
	{KindNotFound, []error{
		ErrNotFound,
		ErrVoucherNotInTarget,
		voucherdomain.ErrNotFound,
		partnerdomain.ErrNotFound,
	}},
	{KindUnauthorized, []error{
		ErrUnauthorized,
		authorization.ErrForbidden,
		authorization.ErrInvalidActor,
	}},
	{KindInvalidRequest, []error{
		ErrInvalidRequest,
		ErrMasterMismatch,
		ErrEmptyBatch,
		catalogdomain.ErrInvalidSpec,
		catalogdomain.ErrNotEligible,
		catalogdomain.ErrInvalidRim,
		allocationdomain.ErrInvalidQuantity,
		allocationdomain.ErrInvalidKey,
		voucherdomain.ErrInvalidVoucher,
		voucherdomain.ErrMissingMasterItem,
		voucherdomain.ErrMissingRedeemInvoice,
		voucherdomain.ErrMissingRejectReason,
		voucherdomain.ErrInvalidStatus,
		qrtokendomain.ErrInvalidTarget,
		partnerdomain.ErrInvalidName,
		partnerdomain.ErrInvalidEmail,
		partnerdomain.ErrInvalidMayorista,
		pagination.ErrInvalidPageToken,
	}},
}

// Kind maps err to the error kind surfaced in result envelopes.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, row := range kindTable {
		for _, target := range row.errs {
			if errors.Is(err, target) {
				return row.kind
			}
		}
	}
	return KindInternal
}
