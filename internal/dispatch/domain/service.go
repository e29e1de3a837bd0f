package domain

import (
	"context"

	partnerdomain "github.com/smallbiznis/bonos/internal/partner/domain"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
)

// IssuedBatch is the committed outcome of one issuance call.
type IssuedBatch struct {
	InvoiceNumber string
	Customer      partnerdomain.Customer
	Partner       *partnerdomain.BusinessPartner
	Vouchers      []voucherdomain.Voucher
}

// Dispatcher delivers voucher cards after commit. It never fails the
// caller; problems come back as warnings.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch IssuedBatch) []string
}
