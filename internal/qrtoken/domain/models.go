package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindInvoice Kind = "invoice"
	KindMaster  Kind = "master"
)

func (k Kind) Valid() bool {
	return k == KindInvoice || k == KindMaster
}

// Target is what a token resolves to.
type Target struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// Record is the registry row for a minted token. Only the hash is stored.
type Record struct {
	ID        snowflake.ID
	TokenID   string
	TokenHash string
	Kind      Kind
	Value     string
	CreatedAt time.Time
}
