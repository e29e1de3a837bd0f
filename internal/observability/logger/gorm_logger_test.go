package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql       string
		operation string
		table     string
	}{
		{"SELECT id FROM vouchers WHERE id = ?", "SELECT", "vouchers"},
		{"INSERT INTO qr_tokens (token_hash) VALUES (?)", "INSERT", "qr_tokens"},
		{"UPDATE allocation_entries SET available_count = available_count - ?", "UPDATE", "allocation_entries"},
		{"DELETE FROM vouchers", "DELETE", "vouchers"},
		{"", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		operation, table := describeSQL(tc.sql)
		assert.Equal(t, tc.operation, operation, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}
