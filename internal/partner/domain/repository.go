package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	UpsertPartner(ctx context.Context, db *gorm.DB, partner *BusinessPartner) error
	FindPartnerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*BusinessPartner, error)
	UpsertCustomer(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindCustomerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	ListCustomers(ctx context.Context, db *gorm.DB, mayoristaID snowflake.ID) ([]*Customer, error)
}
