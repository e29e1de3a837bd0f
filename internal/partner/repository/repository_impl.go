package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bonos/internal/partner/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) UpsertPartner(ctx context.Context, db *gorm.DB, partner *domain.BusinessPartner) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO business_partners (id, name, legal_id, email, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			legal_id = excluded.legal_id,
			email = excluded.email,
			phone = excluded.phone,
			updated_at = excluded.updated_at`,
		partner.ID,
		partner.Name,
		partner.LegalID,
		partner.Email,
		partner.Phone,
		partner.CreatedAt,
		partner.UpdatedAt,
	).Error
}

func (r *repo) FindPartnerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.BusinessPartner, error) {
	var partner domain.BusinessPartner
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, legal_id, email, phone, created_at, updated_at
		 FROM business_partners WHERE id = ?`,
		id,
	).Scan(&partner).Error
	if err != nil {
		return nil, err
	}
	if partner.ID == 0 {
		return nil, nil
	}
	return &partner, nil
}

func (r *repo) UpsertCustomer(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, mayorista_id, name, legal_id, email, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			legal_id = excluded.legal_id,
			email = excluded.email,
			phone = excluded.phone,
			updated_at = excluded.updated_at`,
		customer.ID,
		customer.MayoristaID,
		customer.Name,
		customer.LegalID,
		customer.Email,
		customer.Phone,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindCustomerByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, mayorista_id, name, legal_id, email, phone, created_at, updated_at
		 FROM customers WHERE id = ?`,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) ListCustomers(ctx context.Context, db *gorm.DB, mayoristaID snowflake.ID) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, mayorista_id, name, legal_id, email, phone, created_at, updated_at
		 FROM customers WHERE mayorista_id = ?
		 ORDER BY name ASC, id ASC`,
		mayoristaID,
	).Scan(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}
