package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/bonos/internal/allocation/domain"
	"github.com/smallbiznis/bonos/internal/authorization"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	partnerdomain "github.com/smallbiznis/bonos/internal/partner/domain"
	qrtokendomain "github.com/smallbiznis/bonos/internal/qrtoken/domain"
	voucherdomain "github.com/smallbiznis/bonos/internal/voucher/domain"
)

// Actor is the caller of every lifecycle operation. PartnerID, when set,
// is the organization the user belongs to: the mayorista for mayorista
// staff, the customer for retread-shop and customer users.
type Actor struct {
	Role      authorization.Role
	UserID    string
	PartnerID snowflake.ID
}

type IssueRequest struct {
	CustomerID    snowflake.ID
	Spec          catalogdomain.ProductSpec
	InvoiceNumber string
}

type BatchLine struct {
	Spec     catalogdomain.ProductSpec `json:"spec"`
	Quantity int                       `json:"quantity"`
}

type IssueBatchRequest struct {
	CustomerID    snowflake.ID
	InvoiceNumber string
	Items         []BatchLine
}

// LineFailure explains why one issuance line could not be satisfied.
type LineFailure struct {
	Line      int                       `json:"line"`
	Spec      catalogdomain.ProductSpec `json:"spec"`
	Requested int                       `json:"requested"`
	Available *int                      `json:"available,omitempty"`
	ErrorKind string                    `json:"errorKind"`
	Message   string                    `json:"message"`
}

type IssueResult struct {
	Voucher  voucherdomain.Voucher `json:"voucher"`
	Warnings []string              `json:"warnings,omitempty"`
}

type IssueBatchResult struct {
	Vouchers []voucherdomain.Voucher `json:"vouchers"`
	Failures []LineFailure           `json:"failures"`
	Warnings []string                `json:"warnings,omitempty"`
}

type ActivationRequest struct {
	VoucherID snowflake.ID `json:"voucherId"`
	Master    string       `json:"master"`
	Item      string       `json:"item"`
}

type RedemptionRequest struct {
	VoucherID     snowflake.ID `json:"voucherId"`
	RedeemInvoice string       `json:"redeemInvoice"`
}

type RejectRequest struct {
	VoucherID snowflake.ID
	Reason    string
}

// ItemResult is the outcome for one voucher of a batch call.
type ItemResult struct {
	VoucherID snowflake.ID           `json:"voucherId"`
	Success   bool                   `json:"success"`
	Voucher   *voucherdomain.Voucher `json:"voucher,omitempty"`
	ErrorKind string                 `json:"errorKind,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

type MasterToken struct {
	Master string `json:"master"`
	Token  string `json:"token"`
}

type ActivateResult struct {
	Items        []ItemResult  `json:"items"`
	MasterTokens []MasterToken `json:"masterTokens"`
	Warnings     []string      `json:"warnings,omitempty"`
}

type RedeemResult struct {
	Items []ItemResult `json:"items"`
}

type RejectResult struct {
	Rejected    voucherdomain.Voucher `json:"rejected"`
	Replacement voucherdomain.Voucher `json:"replacement"`
}

// VerifiedVoucher pairs a voucher with the actions the caller may take on it.
type VerifiedVoucher struct {
	voucherdomain.Voucher
	AllowedActions []string `json:"allowedActions"`
}

type VerifyResult struct {
	Kind            qrtokendomain.Kind             `json:"kind"`
	Value           string                         `json:"value"`
	Customer        *partnerdomain.Customer        `json:"customer,omitempty"`
	BusinessPartner *partnerdomain.BusinessPartner `json:"businessPartner,omitempty"`
	Vouchers        []VerifiedVoucher              `json:"vouchers"`
}

type MintResult struct {
	Kind  qrtokendomain.Kind `json:"kind"`
	Value string             `json:"value"`
	Token string             `json:"token"`
}

type ExpireResult struct {
	Cutoff  time.Time `json:"cutoff"`
	Expired int64     `json:"expired"`
}

type AllocationQuery struct {
	MayoristaID snowflake.ID
	CustomerID  *snowflake.ID
}

type AllocationSyncResult = allocationdomain.SyncResult

const (
	ActionActivate = "activate"
	ActionRedeem   = "redeem"
	ActionReject   = "reject"
)
