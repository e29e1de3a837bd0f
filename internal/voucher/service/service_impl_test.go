package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/testutil"
	"github.com/smallbiznis/bonos/internal/voucher/domain"
	"github.com/smallbiznis/bonos/internal/voucher/repository"
	"github.com/smallbiznis/bonos/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type storeFixture struct {
	db          *gorm.DB
	store       domain.Store
	node        *snowflake.Node
	clock       *clock.FakeClock
	mayoristaID snowflake.ID
	customerID  snowflake.ID
}

func setupStore(t *testing.T) storeFixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	f := storeFixture{
		db:          db,
		node:        node,
		clock:       fake,
		mayoristaID: node.Generate(),
		customerID:  node.Generate(),
	}
	testutil.SeedPartner(t, db, f.mayoristaID, "Norte")
	testutil.SeedCustomer(t, db, f.customerID, f.mayoristaID, "Sur")
	f.store = New(Params{DB: db, Log: zap.NewNop(), Clock: fake, Repo: repository.Provide()})
	return f
}

func (f storeFixture) newPending(t *testing.T, invoice string) domain.Voucher {
	t.Helper()
	v := domain.Voucher{
		ID:            f.node.Generate(),
		MayoristaID:   f.mayoristaID,
		CustomerID:    f.customerID,
		Brand:         "HAOHUA",
		Size:          "15",
		Design:        "HT1",
		InvoiceNumber: invoice,
		Status:        domain.StatusPending,
	}
	require.NoError(t, f.store.Create(context.Background(), nil, &v))
	return v
}

func TestCreateRejectsNonPendingVoucher(t *testing.T) {
	f := setupStore(t)
	v := domain.Voucher{
		ID:            f.node.Generate(),
		MayoristaID:   f.mayoristaID,
		CustomerID:    f.customerID,
		Brand:         "HAOHUA",
		Size:          "15",
		Design:        "HT1",
		InvoiceNumber: "FAC-1",
		Status:        domain.StatusActive,
	}
	assert.ErrorIs(t, f.store.Create(context.Background(), nil, &v), domain.ErrInvalidVoucher)

	v.Status = domain.StatusPending
	v.Master = "M1"
	assert.ErrorIs(t, f.store.Create(context.Background(), nil, &v), domain.ErrInvalidVoucher)
}

func TestActivateThenRedeem(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	v := f.newPending(t, "FAC-1001")

	_, err := f.store.Redeem(ctx, nil, v.ID, "RE-1", "shop-user")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	active, err := f.store.Activate(ctx, nil, v.ID, "M100", "IT01", "mayo-user")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, active.Status)
	assert.Equal(t, "M100", active.Master)
	assert.Equal(t, "IT01", active.Item)
	require.NotNil(t, active.ActivatedAt)

	used, err := f.store.Redeem(ctx, nil, v.ID, "RE-2002", "shop-user")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUsed, used.Status)
	assert.Equal(t, "RE-2002", used.RedeemInvoice)

	again, err := f.store.Redeem(ctx, nil, v.ID, "RE-2002", "shop-user")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.Equal(t, domain.StatusUsed, again.Status)
}

func TestActivateValidatesMasterAndItem(t *testing.T) {
	f := setupStore(t)
	v := f.newPending(t, "FAC-1")
	_, err := f.store.Activate(context.Background(), nil, v.ID, "M1", " ", "u")
	assert.ErrorIs(t, err, domain.ErrMissingMasterItem)
}

func TestTransitionOnUnknownVoucherIsNotFound(t *testing.T) {
	f := setupStore(t)
	_, err := f.store.Activate(context.Background(), nil, f.node.Generate(), "M1", "I1", "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConcurrentRedeemSucceedsOnce(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	v := f.newPending(t, "FAC-1")
	_, err := f.store.Activate(ctx, nil, v.ID, "M1", "I1", "u")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		used    int
		refused int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.store.Redeem(ctx, nil, v.ID, "RE-1", "shop")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				used++
			case errors.Is(err, domain.ErrInvalidStateTransition):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, used)
	assert.Equal(t, 1, refused)
}

func TestRejectLinksReplacement(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	v := f.newPending(t, "FAC-1")
	_, err := f.store.Activate(ctx, nil, v.ID, "M1", "I1", "u")
	require.NoError(t, err)

	replacementID := f.node.Generate()
	rejected, err := f.store.Reject(ctx, nil, v.ID, "Defective", "shop", replacementID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.ReplacementVoucherID)
	assert.Equal(t, replacementID, *rejected.ReplacementVoucherID)

	_, err = f.store.Reject(ctx, nil, v.ID, "Defective", "shop", f.node.Generate())
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestExpireBeforeOnlyTouchesOpenVouchers(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	pending := f.newPending(t, "FAC-1")
	active := f.newPending(t, "FAC-1")
	used := f.newPending(t, "FAC-1")
	_, err := f.store.Activate(ctx, nil, active.ID, "M1", "I1", "u")
	require.NoError(t, err)
	_, err = f.store.Activate(ctx, nil, used.ID, "M1", "I2", "u")
	require.NoError(t, err)
	_, err = f.store.Redeem(ctx, nil, used.ID, "RE-1", "shop")
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	fresh := f.newPending(t, "FAC-2")

	count, err := f.store.ExpireBefore(ctx, nil, f.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	for id, want := range map[snowflake.ID]domain.Status{
		pending.ID: domain.StatusExpired,
		active.ID:  domain.StatusExpired,
		used.ID:    domain.StatusUsed,
		fresh.ID:   domain.StatusPending,
	} {
		got, err := f.store.Get(ctx, nil, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status, id.String())
	}
}

func TestListPagesByID(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.newPending(t, "FAC-9")
	}

	first, err := f.store.List(ctx, domain.ListRequest{
		CustomerID: f.customerID,
		Status:     "pending",
		Page:       pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Vouchers, 2)
	require.True(t, first.HasMore)

	second, err := f.store.List(ctx, domain.ListRequest{
		CustomerID: f.customerID,
		Page:       pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Vouchers, 1)
	assert.False(t, second.HasMore)
	assert.Greater(t, second.Vouchers[0].ID, first.Vouchers[1].ID)

	_, err = f.store.List(ctx, domain.ListRequest{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestListByInvoiceAndMaster(t *testing.T) {
	f := setupStore(t)
	ctx := context.Background()
	a := f.newPending(t, "FAC-7")
	f.newPending(t, "FAC-7")
	f.newPending(t, "FAC-8")
	_, err := f.store.Activate(ctx, nil, a.ID, "M7", "I1", "u")
	require.NoError(t, err)

	byInvoice, err := f.store.ListByInvoice(ctx, nil, "FAC-7")
	require.NoError(t, err)
	assert.Len(t, byInvoice, 2)

	byMaster, err := f.store.ListByMaster(ctx, nil, "M7")
	require.NoError(t, err)
	require.Len(t, byMaster, 1)
	assert.Equal(t, a.ID, byMaster[0].ID)
}
