package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusActive   Status = "ACTIVE"
	StatusUsed     Status = "USED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// ParseStatus accepts any case and reports whether s names a status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusActive, StatusUsed, StatusRejected, StatusExpired:
		return st, true
	}
	return "", false
}

var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusExpired},
	StatusActive:  {StatusUsed, StatusRejected, StatusExpired},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Voucher struct {
	ID                   snowflake.ID  `json:"id"`
	MayoristaID          snowflake.ID  `json:"mayoristaId"`
	CustomerID           snowflake.ID  `json:"customerId"`
	Brand                string        `json:"brand"`
	Size                 string        `json:"size"`
	Design               string        `json:"design"`
	RimSize              string        `json:"rimSize,omitempty"`
	InvoiceNumber        string        `json:"invoiceNumber"`
	Status               Status        `json:"status"`
	Master               string        `json:"master,omitempty"`
	Item                 string        `json:"item,omitempty"`
	ActivatedByUserID    string        `json:"activatedByUserId,omitempty"`
	ActivatedAt          *time.Time    `json:"activatedAt,omitempty"`
	RedeemInvoice        string        `json:"redeemInvoice,omitempty"`
	RedeemedByUserID     string        `json:"redeemedByUserId,omitempty"`
	RedeemedAt           *time.Time    `json:"redeemedAt,omitempty"`
	RejectReason         string        `json:"rejectReason,omitempty"`
	RejectedByUserID     string        `json:"rejectedByUserId,omitempty"`
	RejectedAt           *time.Time    `json:"rejectedAt,omitempty"`
	ReplacementVoucherID *snowflake.ID `json:"replacementVoucherId,omitempty"`
	ReplacesVoucherID    *snowflake.ID `json:"replacesVoucherId,omitempty"`
	ExpiredAt            *time.Time    `json:"expiredAt,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

func (v Voucher) Spec() catalogdomain.ProductSpec {
	return catalogdomain.ProductSpec{Brand: v.Brand, Size: v.Size, Design: v.Design, RimSize: v.RimSize}
}
