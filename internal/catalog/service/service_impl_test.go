package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/bonos/internal/catalog/domain"
	"github.com/smallbiznis/bonos/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService() domain.Service {
	holder := config.NewStaticCatalogConfigHolder(config.CatalogConfig{
		Entries: []config.CatalogEntry{
			{Brand: "haohua", Size: "15", Design: "ht1", RimSizes: []string{"22.5"}},
			{Brand: "HAOHUA", Size: "11", Design: "HD2"},
		},
	})
	return New(Params{Holder: holder, Log: zap.NewNop()})
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	svc := newTestService()

	entry, err := svc.Lookup(context.Background(), domain.ProductSpec{Brand: " Haohua ", Size: "15", Design: "HT1"})
	require.NoError(t, err)
	assert.Equal(t, "HAOHUA", entry.Brand)
	assert.Equal(t, "haohua-15-ht1", entry.Code)
}

func TestLookupValidatesRimSize(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Lookup(ctx, domain.ProductSpec{Brand: "HAOHUA", Size: "15", Design: "HT1", RimSize: "22.5"})
	assert.NoError(t, err)

	_, err = svc.Lookup(ctx, domain.ProductSpec{Brand: "HAOHUA", Size: "15", Design: "HT1", RimSize: "19.5"})
	assert.ErrorIs(t, err, domain.ErrInvalidRim)
}

func TestLookupRejectsUnknownAndIncompleteSpecs(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Lookup(ctx, domain.ProductSpec{Brand: "HAOHUA", Size: "15", Design: "XX9"})
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = svc.Lookup(ctx, domain.ProductSpec{Brand: "HAOHUA", Size: "15"})
	assert.ErrorIs(t, err, domain.ErrInvalidSpec)
}

func TestListIsSortedByCode(t *testing.T) {
	entries := newTestService().List(context.Background())
	require.Len(t, entries, 2)
	assert.Equal(t, "haohua-11-hd2", entries[0].Code)
	assert.Equal(t, "haohua-15-ht1", entries[1].Code)
}
