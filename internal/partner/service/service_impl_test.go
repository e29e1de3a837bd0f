package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/partner/domain"
	"github.com/smallbiznis/bonos/internal/partner/repository"
	"github.com/smallbiznis/bonos/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	db := testutil.OpenDB(t)
	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.MustNode(t),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestUpsertCustomerRequiresExistingMayorista(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertCustomer(ctx, domain.UpsertCustomerRequest{MayoristaID: 99, Name: "Reencauchadora Sur"})
	assert.ErrorIs(t, err, domain.ErrInvalidMayorista)

	partner, err := svc.UpsertPartner(ctx, domain.UpsertPartnerRequest{Name: "Llantas Norte", Email: "ventas@norte.example"})
	require.NoError(t, err)

	customer, err := svc.UpsertCustomer(ctx, domain.UpsertCustomerRequest{
		MayoristaID: partner.ID,
		Name:        "Reencauchadora Sur",
		LegalID:     "900123456",
	})
	require.NoError(t, err)
	assert.Equal(t, partner.ID, customer.MayoristaID)

	got, err := svc.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "900123456", got.LegalID)
}

func TestUpsertCustomerKeepsOwnership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.UpsertPartner(ctx, domain.UpsertPartnerRequest{Name: "A"})
	require.NoError(t, err)
	b, err := svc.UpsertPartner(ctx, domain.UpsertPartnerRequest{Name: "B"})
	require.NoError(t, err)

	customer, err := svc.UpsertCustomer(ctx, domain.UpsertCustomerRequest{MayoristaID: a.ID, Name: "Shop"})
	require.NoError(t, err)

	_, err = svc.UpsertCustomer(ctx, domain.UpsertCustomerRequest{ID: customer.ID, MayoristaID: b.ID, Name: "Shop"})
	assert.ErrorIs(t, err, domain.ErrInvalidMayorista)

	renamed, err := svc.UpsertCustomer(ctx, domain.UpsertCustomerRequest{ID: customer.ID, MayoristaID: a.ID, Name: "Shop Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Shop Renamed", renamed.Name)

	list, err := svc.ListCustomers(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Shop Renamed", list[0].Name)
}

func TestGetPartnerNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetPartner(context.Background(), 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertPartnerValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpsertPartner(ctx, domain.UpsertPartnerRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.UpsertPartner(ctx, domain.UpsertPartnerRequest{Name: "X", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}
