package service

import (
	"context"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/bonos/internal/catalog/domain"
	"github.com/smallbiznis/bonos/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Holder *config.CatalogConfigHolder
	Log    *zap.Logger
}

type Service struct {
	holder *config.CatalogConfigHolder
	log    *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		holder: p.Holder,
		log:    p.Log.Named("catalog.service"),
	}
}

// List returns the current catalog sorted by brand, size and design.
func (s *Service) List(ctx context.Context) []domain.Entry {
	raw := s.holder.Get().Entries
	entries := make([]domain.Entry, 0, len(raw))
	for _, item := range raw {
		entries = append(entries, toEntry(item))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Code < entries[j].Code
	})
	return entries
}

func (s *Service) Lookup(ctx context.Context, spec domain.ProductSpec) (domain.Entry, error) {
	if !spec.Valid() {
		return domain.Entry{}, domain.ErrInvalidSpec
	}
	spec = spec.Normalize()

	for _, item := range s.holder.Get().Entries {
		entry := toEntry(item)
		if !entry.Spec().SameKey(spec) {
			continue
		}
		if spec.RimSize != "" && !containsRim(entry.RimSizes, spec.RimSize) {
			return domain.Entry{}, domain.ErrInvalidRim
		}
		return entry, nil
	}

	s.log.Debug("product not in catalog", zap.String("spec", spec.String()))
	return domain.Entry{}, domain.ErrNotEligible
}

func toEntry(item config.CatalogEntry) domain.Entry {
	spec := domain.ProductSpec{Brand: item.Brand, Size: item.Size, Design: item.Design}.Normalize()
	rims := make([]string, 0, len(item.RimSizes))
	for _, rim := range item.RimSizes {
		if rim = strings.TrimSpace(rim); rim != "" {
			rims = append(rims, rim)
		}
	}
	return domain.Entry{
		Code:     ProductCode(spec),
		Brand:    spec.Brand,
		Size:     spec.Size,
		Design:   spec.Design,
		RimSizes: rims,
	}
}

// ProductCode renders a stable URL-safe code such as "haohua-15-ht1".
func ProductCode(spec domain.ProductSpec) string {
	n := spec.Normalize()
	return slug.Make(n.Brand + " " + n.Size + " " + n.Design)
}

func containsRim(rims []string, rim string) bool {
	for _, candidate := range rims {
		if strings.EqualFold(candidate, rim) {
			return true
		}
	}
	return false
}
