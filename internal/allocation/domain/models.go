package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	"gorm.io/datatypes"
)

// PoolCustomerID marks a mayorista-wide allocation row shared by all its customers.
const PoolCustomerID snowflake.ID = 0

// Key addresses one allocation row.
type Key struct {
	MayoristaID snowflake.ID
	CustomerID  snowflake.ID
	Brand       string
	Size        string
	Design      string
}

// NewKey builds a key with the spec normalized.
func NewKey(mayoristaID, customerID snowflake.ID, spec catalogdomain.ProductSpec) Key {
	n := spec.Normalize()
	return Key{
		MayoristaID: mayoristaID,
		CustomerID:  customerID,
		Brand:       n.Brand,
		Size:        n.Size,
		Design:      n.Design,
	}
}

func (k Key) Spec() catalogdomain.ProductSpec {
	return catalogdomain.ProductSpec{Brand: k.Brand, Size: k.Size, Design: k.Design}
}

func (k Key) Pool() Key {
	k.CustomerID = PoolCustomerID
	return k
}

type Entry struct {
	ID             snowflake.ID      `json:"id"`
	MayoristaID    snowflake.ID      `json:"mayoristaId"`
	CustomerID     snowflake.ID      `json:"customerId"`
	Brand          string            `json:"brand"`
	Size           string            `json:"size"`
	Design         string            `json:"design"`
	AvailableCount int               `json:"availableCount"`
	IssuedCount    int               `json:"issuedCount"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

func (e Entry) Key() Key {
	return Key{
		MayoristaID: e.MayoristaID,
		CustomerID:  e.CustomerID,
		Brand:       e.Brand,
		Size:        e.Size,
		Design:      e.Design,
	}
}

type Balance struct {
	Available int `json:"available"`
	Issued    int `json:"issued"`
}
