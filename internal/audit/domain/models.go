package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	TargetVoucher    = "voucher"
	TargetInvoice    = "invoice"
	TargetAllocation = "allocation"
	TargetQRToken    = "qr_token"
	TargetPartner    = "partner"
	TargetCustomer   = "customer"
)

// AuditLog is one recorded state change and the actor behind it.
type AuditLog struct {
	ID         snowflake.ID      `json:"id"`
	ActorRole  string            `json:"actorRole"`
	ActorID    string            `json:"actorId,omitempty"`
	PartnerID  *snowflake.ID     `json:"partnerId,omitempty"`
	Action     string            `json:"action"`
	TargetType string            `json:"targetType"`
	TargetID   string            `json:"targetId,omitempty"`
	RequestID  string            `json:"requestId,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Event is what callers record. Actor fields fall back to the request
// context when empty.
type Event struct {
	ActorRole  string
	ActorID    string
	PartnerID  snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	PartnerID  snowflake.ID
	StartAt    *time.Time
	EndAt      *time.Time
	BeforeID   snowflake.ID
	Limit      int
}
