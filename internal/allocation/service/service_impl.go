package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bonos/internal/allocation/domain"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	"github.com/smallbiznis/bonos/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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

func New(p Params) domain.Ledger {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("allocation.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) ResolveKey(ctx context.Context, tx *gorm.DB, mayoristaID, customerID snowflake.ID, spec catalogdomain.ProductSpec) (domain.Key, error) {
	if mayoristaID == 0 || customerID == 0 || !spec.Valid() {
		return domain.Key{}, domain.ErrInvalidKey
	}
	key := domain.NewKey(mayoristaID, customerID, spec)

	entry, err := s.repo.FindByKey(ctx, s.conn(tx), key)
	if err != nil {
		return domain.Key{}, err
	}
	if entry != nil {
		return key, nil
	}

	pool, err := s.repo.FindByKey(ctx, s.conn(tx), key.Pool())
	if err != nil {
		return domain.Key{}, err
	}
	if pool != nil {
		return key.Pool(), nil
	}
	return key, nil
}

// Reserve is a single conditional UPDATE. Concurrent callers serialize on
// the row and the loser sees zero rows affected.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, key domain.Key, n int) error {
	if n <= 0 {
		return domain.ErrInvalidQuantity
	}
	ok, err := s.repo.Decrement(ctx, s.conn(tx), key, n, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		s.log.Info("allocation exhausted",
			zap.String("mayorista_id", key.MayoristaID.String()),
			zap.String("customer_id", key.CustomerID.String()),
			zap.String("spec", key.Spec().String()),
			zap.Int("requested", n),
		)
		return domain.ErrInsufficientAllocation
	}
	return nil
}

// Release returns reserved units. It only undoes reservations made in the
// same transaction; rejection never calls it.
func (s *Service) Release(ctx context.Context, tx *gorm.DB, key domain.Key, n int) error {
	if n <= 0 {
		return domain.ErrInvalidQuantity
	}
	ok, err := s.repo.Increment(ctx, s.conn(tx), key, n, s.clock.Now())
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrReleaseMismatch
	}
	return nil
}

func (s *Service) Query(ctx context.Context, key domain.Key) (domain.Balance, error) {
	entry, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return domain.Balance{}, err
	}
	if entry == nil {
		return domain.Balance{}, nil
	}
	return domain.Balance{Available: entry.AvailableCount, Issued: entry.IssuedCount}, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Entry, error) {
	if filter.MayoristaID == 0 {
		return nil, domain.ErrInvalidKey
	}
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return entries, nil
}

// Sync applies feed rows in one transaction. Available becomes the
// entitlement minus what was already issued, floored at zero.
func (s *Service) Sync(ctx context.Context, entries []domain.SyncEntry) (domain.SyncResult, error) {
	for i, item := range entries {
		if item.MayoristaID == 0 || !item.Spec.Valid() {
			return domain.SyncResult{}, fmt.Errorf("entries[%d]: %w", i, domain.ErrInvalidKey)
		}
		if item.Entitled < 0 {
			return domain.SyncResult{}, fmt.Errorf("entries[%d]: %w", i, domain.ErrInvalidQuantity)
		}
	}

	now := s.clock.Now()
	result := domain.SyncResult{Entries: make([]domain.Entry, 0, len(entries))}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range entries {
			key := domain.NewKey(item.MayoristaID, item.CustomerID, item.Spec)
			entry := domain.Entry{
				ID:          s.genID.Generate(),
				MayoristaID: key.MayoristaID,
				CustomerID:  key.CustomerID,
				Brand:       key.Brand,
				Size:        key.Size,
				Design:      key.Design,
				Metadata: datatypes.JSONMap{
					"source":   strings.TrimSpace(item.Source),
					"entitled": item.Entitled,
				},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.UpsertEntitlement(ctx, tx, &entry, item.Entitled); err != nil {
				return err
			}
			stored, err := s.repo.FindByKey(ctx, tx, key)
			if err != nil {
				return err
			}
			if stored != nil {
				result.Entries = append(result.Entries, *stored)
			}
			result.Applied++
		}
		return nil
	})
	if err != nil {
		return domain.SyncResult{}, err
	}

	s.log.Info("allocation feed applied", zap.Int("entries", result.Applied))
	return result, nil
}

func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}
