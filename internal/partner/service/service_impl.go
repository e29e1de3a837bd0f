package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/partner/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("partner.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) UpsertPartner(ctx context.Context, req domain.UpsertPartnerRequest) (domain.BusinessPartner, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.BusinessPartner{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.BusinessPartner{}, domain.ErrInvalidEmail
	}

	id := req.ID
	if id == 0 {
		id = s.genID.Generate()
	}
	now := s.clock.Now()
	partner := domain.BusinessPartner{
		ID:        id,
		Name:      name,
		LegalID:   strings.TrimSpace(req.LegalID),
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.UpsertPartner(ctx, s.db, &partner); err != nil {
		return domain.BusinessPartner{}, err
	}

	stored, err := s.repo.FindPartnerByID(ctx, s.db, id)
	if err != nil {
		return domain.BusinessPartner{}, err
	}
	if stored == nil {
		return domain.BusinessPartner{}, domain.ErrNotFound
	}
	return *stored, nil
}

func (s *Service) GetPartner(ctx context.Context, id snowflake.ID) (domain.BusinessPartner, error) {
	if id == 0 {
		return domain.BusinessPartner{}, domain.ErrNotFound
	}
	item, err := s.repo.FindPartnerByID(ctx, s.db, id)
	if err != nil {
		return domain.BusinessPartner{}, err
	}
	if item == nil {
		return domain.BusinessPartner{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) UpsertCustomer(ctx context.Context, req domain.UpsertCustomerRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}
	if req.MayoristaID == 0 {
		return domain.Customer{}, domain.ErrInvalidMayorista
	}

	partner, err := s.repo.FindPartnerByID(ctx, s.db, req.MayoristaID)
	if err != nil {
		return domain.Customer{}, err
	}
	if partner == nil {
		return domain.Customer{}, domain.ErrInvalidMayorista
	}

	id := req.ID
	if id == 0 {
		id = s.genID.Generate()
	}
	existing, err := s.repo.FindCustomerByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	// Ownership is fixed at creation.
	if existing != nil && existing.MayoristaID != req.MayoristaID {
		return domain.Customer{}, domain.ErrInvalidMayorista
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:          id,
		MayoristaID: req.MayoristaID,
		Name:        name,
		LegalID:     strings.TrimSpace(req.LegalID),
		Email:       email,
		Phone:       strings.TrimSpace(req.Phone),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil {
		customer.CreatedAt = existing.CreatedAt
	}
	if err := s.repo.UpsertCustomer(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

func (s *Service) GetCustomer(ctx context.Context, id snowflake.ID) (domain.Customer, error) {
	if id == 0 {
		return domain.Customer{}, domain.ErrNotFound
	}
	item, err := s.repo.FindCustomerByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListCustomers(ctx context.Context, mayoristaID snowflake.ID) ([]domain.Customer, error) {
	if mayoristaID == 0 {
		return nil, domain.ErrInvalidMayorista
	}
	items, err := s.repo.ListCustomers(ctx, s.db, mayoristaID)
	if err != nil {
		return nil, err
	}
	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}
	return customers, nil
}
