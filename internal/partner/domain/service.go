package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// UpsertPartnerRequest mirrors an onboarding record. A zero ID creates a new partner.
type UpsertPartnerRequest struct {
	ID      snowflake.ID
	Name    string
	LegalID string
	Email   string
	Phone   string
}

type UpsertCustomerRequest struct {
	ID          snowflake.ID
	MayoristaID snowflake.ID
	Name        string
	LegalID     string
	Email       string
	Phone       string
}

type Service interface {
	UpsertPartner(context.Context, UpsertPartnerRequest) (BusinessPartner, error)
	GetPartner(context.Context, snowflake.ID) (BusinessPartner, error)
	UpsertCustomer(context.Context, UpsertCustomerRequest) (Customer, error)
	GetCustomer(context.Context, snowflake.ID) (Customer, error)
	ListCustomers(context.Context, snowflake.ID) ([]Customer, error)
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidMayorista = errors.New("invalid_mayorista")
	ErrNotFound         = errors.New("not_found")
)
