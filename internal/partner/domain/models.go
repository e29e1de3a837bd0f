package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BusinessPartner is a mayorista: the wholesale account issuing vouchers.
type BusinessPartner struct {
	ID        snowflake.ID `json:"id"`
	Name      string       `json:"name"`
	LegalID   string       `json:"legalId"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Customer is a retread shop owned by a mayorista.
type Customer struct {
	ID          snowflake.ID `json:"id"`
	MayoristaID snowflake.ID `json:"mayoristaId"`
	Name        string       `json:"name"`
	LegalID     string       `json:"legalId"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
