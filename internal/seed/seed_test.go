package seed

import (
	"context"
	"testing"

	"github.com/smallbiznis/bonos/internal/catalog/domain"
	"github.com/smallbiznis/bonos/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDemoDataIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.MustNode(t)
	entries := []domain.Entry{
		{Brand: "haohua", Size: "15", Design: "ht1"},
		{Brand: "HAOHUA", Size: "15", Design: "HD2"},
	}

	first, err := EnsureDemoData(context.Background(), db, node, entries, 10)
	require.NoError(t, err)
	assert.NotZero(t, first.MayoristaID)
	assert.NotZero(t, first.CustomerID)
	assert.Equal(t, 2, first.Allocations)

	second, err := EnsureDemoData(context.Background(), db, node, entries, 10)
	require.NoError(t, err)
	assert.Equal(t, first.MayoristaID, second.MayoristaID)
	assert.Equal(t, first.CustomerID, second.CustomerID)
	assert.Zero(t, second.Allocations)

	var available int
	require.NoError(t, db.Raw(
		`SELECT available_count FROM allocation_entries WHERE mayorista_id = ? AND customer_id = 0 AND design = ?`,
		first.MayoristaID, "HT1",
	).Scan(&available).Error)
	assert.Equal(t, 10, available)
}

func TestEnsureDemoDataRequiresDB(t *testing.T) {
	_, err := EnsureDemoData(context.Background(), nil, testutil.MustNode(t), nil, 0)
	assert.Error(t, err)
}
