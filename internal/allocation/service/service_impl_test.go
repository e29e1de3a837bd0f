package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bonos/internal/allocation/domain"
	"github.com/smallbiznis/bonos/internal/allocation/repository"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var spec = catalogdomain.ProductSpec{Brand: "HAOHUA", Size: "15", Design: "HT1"}

type fixture struct {
	db          *gorm.DB
	ledger      domain.Ledger
	node        *snowflake.Node
	mayoristaID snowflake.ID
	customerID  snowflake.ID
}

func setupLedger(t *testing.T) fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	f := fixture{
		db:          db,
		node:        node,
		mayoristaID: node.Generate(),
		customerID:  node.Generate(),
	}
	testutil.SeedPartner(t, db, f.mayoristaID, "Norte")
	testutil.SeedCustomer(t, db, f.customerID, f.mayoristaID, "Sur")
	f.ledger = New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return f
}

func TestReserveDecrementsAndRefusesOverdraw(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	testutil.SeedAllocation(t, f.db, f.node.Generate(), f.mayoristaID, f.customerID, "HAOHUA", "15", "HT1", 2)

	key, err := f.ledger.ResolveKey(ctx, nil, f.mayoristaID, f.customerID, spec)
	require.NoError(t, err)
	assert.Equal(t, f.customerID, key.CustomerID)

	require.NoError(t, f.ledger.Reserve(ctx, nil, key, 2))
	assert.ErrorIs(t, f.ledger.Reserve(ctx, nil, key, 1), domain.ErrInsufficientAllocation)

	balance, err := f.ledger.Query(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.Balance{Available: 0, Issued: 2}, balance)
}

func TestReleaseRestoresReservedUnits(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	testutil.SeedAllocation(t, f.db, f.node.Generate(), f.mayoristaID, f.customerID, "HAOHUA", "15", "HT1", 3)
	key := domain.NewKey(f.mayoristaID, f.customerID, spec)

	require.NoError(t, f.ledger.Reserve(ctx, nil, key, 2))
	require.NoError(t, f.ledger.Release(ctx, nil, key, 2))
	assert.ErrorIs(t, f.ledger.Release(ctx, nil, key, 1), domain.ErrReleaseMismatch)

	balance, err := f.ledger.Query(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, balance.Available)
	assert.Equal(t, 0, balance.Issued)
}

func TestResolveKeyFallsBackToPool(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	testutil.SeedAllocation(t, f.db, f.node.Generate(), f.mayoristaID, domain.PoolCustomerID, "HAOHUA", "15", "HT1", 1)

	key, err := f.ledger.ResolveKey(ctx, nil, f.mayoristaID, f.customerID, catalogdomain.ProductSpec{Brand: "haohua", Size: "15", Design: "ht1"})
	require.NoError(t, err)
	assert.Equal(t, domain.PoolCustomerID, key.CustomerID)
	assert.Equal(t, "HAOHUA", key.Brand)
}

func TestReserveWithoutRowIsInsufficient(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	key, err := f.ledger.ResolveKey(ctx, nil, f.mayoristaID, f.customerID, spec)
	require.NoError(t, err)
	assert.ErrorIs(t, f.ledger.Reserve(ctx, nil, key, 1), domain.ErrInsufficientAllocation)
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	f := setupLedger(t)
	key := domain.NewKey(f.mayoristaID, f.customerID, spec)
	assert.ErrorIs(t, f.ledger.Reserve(context.Background(), nil, key, 0), domain.ErrInvalidQuantity)
}

// Goroutines serialize on the single sqlite connection; this checks the
// outcome of racing calls.
func TestConcurrentReservationsNeverExceedCapacity(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	const capacity = 5
	testutil.SeedAllocation(t, f.db, f.node.Generate(), f.mayoristaID, f.customerID, "HAOHUA", "15", "HT1", capacity)
	key := domain.NewKey(f.mayoristaID, f.customerID, spec)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		denied    int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.ledger.Reserve(ctx, nil, key, 1)
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				successes++
			case domain.ErrInsufficientAllocation:
				denied++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, successes)
	assert.Equal(t, 12-capacity, denied)

	balance, err := f.ledger.Query(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, balance.Available)
	assert.Equal(t, capacity, balance.Issued)
}

func TestSyncSubtractsIssuedFromEntitlement(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()

	res, err := f.ledger.Sync(ctx, []domain.SyncEntry{{
		MayoristaID: f.mayoristaID,
		CustomerID:  f.customerID,
		Spec:        spec,
		Entitled:    4,
		Source:      "purchases-2026-02",
	}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Applied)
	assert.Equal(t, 4, res.Entries[0].AvailableCount)

	key := domain.NewKey(f.mayoristaID, f.customerID, spec)
	require.NoError(t, f.ledger.Reserve(ctx, nil, key, 3))

	res, err = f.ledger.Sync(ctx, []domain.SyncEntry{{
		MayoristaID: f.mayoristaID,
		CustomerID:  f.customerID,
		Spec:        spec,
		Entitled:    6,
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entries[0].AvailableCount)
	assert.Equal(t, 3, res.Entries[0].IssuedCount)

	res, err = f.ledger.Sync(ctx, []domain.SyncEntry{{
		MayoristaID: f.mayoristaID,
		CustomerID:  f.customerID,
		Spec:        spec,
		Entitled:    1,
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Entries[0].AvailableCount)
}

func TestSyncRejectsInvalidRows(t *testing.T) {
	f := setupLedger(t)
	_, err := f.ledger.Sync(context.Background(), []domain.SyncEntry{{
		MayoristaID: f.mayoristaID,
		Spec:        spec,
		Entitled:    -1,
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}
