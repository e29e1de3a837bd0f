package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpsertEntitlementSQLFollowsDialect(t *testing.T) {
	for _, dialect := range []string{"postgres", "sqlite"} {
		query := upsertEntitlementSQL(dialect)
		assert.Contains(t, query, "ON CONFLICT (mayorista_id, customer_id, brand, size, design)", dialect)
		assert.NotContains(t, query, "ON DUPLICATE KEY", dialect)
	}

	query := upsertEntitlementSQL("mysql")
	assert.Contains(t, query, "ON DUPLICATE KEY UPDATE")
	assert.NotContains(t, query, "ON CONFLICT")
	assert.NotContains(t, query, "excluded.")
	assert.Equal(t, 10+2, strings.Count(query, "?"))
	assert.Equal(t, strings.Count(upsertEntitlementSQL("postgres"), "?"), strings.Count(query, "?"))
}
