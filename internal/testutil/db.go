// Package testutil opens in-memory databases carrying the bonos schema.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE business_partners (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		legal_id TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE customers (
		id BIGINT PRIMARY KEY,
		mayorista_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		legal_id TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE allocation_entries (
		id BIGINT PRIMARY KEY,
		mayorista_id BIGINT NOT NULL,
		customer_id BIGINT NOT NULL DEFAULT 0,
		brand TEXT NOT NULL,
		size TEXT NOT NULL,
		design TEXT NOT NULL,
		available_count INTEGER NOT NULL DEFAULT 0 CHECK (available_count >= 0),
		issued_count INTEGER NOT NULL DEFAULT 0 CHECK (issued_count >= 0),
		metadata JSON,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (mayorista_id, customer_id, brand, size, design)
	)`,
	`CREATE TABLE vouchers (
		id BIGINT PRIMARY KEY,
		mayorista_id BIGINT NOT NULL,
		customer_id BIGINT NOT NULL,
		brand TEXT NOT NULL,
		size TEXT NOT NULL,
		design TEXT NOT NULL,
		rim_size TEXT NOT NULL DEFAULT '',
		invoice_number TEXT NOT NULL,
		status TEXT NOT NULL,
		master TEXT NOT NULL DEFAULT '',
		item TEXT NOT NULL DEFAULT '',
		activated_by_user_id TEXT NOT NULL DEFAULT '',
		activated_at DATETIME,
		redeem_invoice TEXT NOT NULL DEFAULT '',
		redeemed_by_user_id TEXT NOT NULL DEFAULT '',
		redeemed_at DATETIME,
		reject_reason TEXT NOT NULL DEFAULT '',
		rejected_by_user_id TEXT NOT NULL DEFAULT '',
		rejected_at DATETIME,
		replacement_voucher_id BIGINT,
		replaces_voucher_id BIGINT UNIQUE,
		expired_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX idx_vouchers_invoice ON vouchers (invoice_number)`,
	`CREATE INDEX idx_vouchers_master ON vouchers (master)`,
	`CREATE TABLE qr_tokens (
		id BIGINT PRIMARY KEY,
		token_id TEXT NOT NULL,
		token_hash TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE audit_logs (
		id BIGINT PRIMARY KEY,
		actor_role TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		partner_id BIGINT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL DEFAULT '',
		request_id TEXT NOT NULL DEFAULT '',
		metadata JSON,
		created_at DATETIME NOT NULL
	)`,
}

// OpenDB returns a single-connection in-memory database named after the test.
// Concurrent callers therefore run their transactions one after another: tests
// see the outcome of racing calls, not row-level contention on the
// conditional UPDATEs. Contention is only exercised against postgres.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_ = db.Exec("PRAGMA busy_timeout = 5000").Error
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

func MustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

// SeedPartner inserts a mayorista row.
func SeedPartner(t *testing.T, db *gorm.DB, id snowflake.ID, name string) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO business_partners (id, name, email, created_at, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, name, strings.ToLower(name)+"@example.com",
	).Error; err != nil {
		t.Fatalf("seed partner: %v", err)
	}
}

// SeedCustomer inserts a customer owned by mayoristaID.
func SeedCustomer(t *testing.T, db *gorm.DB, id, mayoristaID snowflake.ID, name string) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO customers (id, mayorista_id, name, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, mayoristaID, name, strings.ToLower(name)+"@example.com",
	).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
}

// SeedAllocation inserts an allocation row with the given available count.
func SeedAllocation(t *testing.T, db *gorm.DB, id, mayoristaID, customerID snowflake.ID, brand, size, design string, available int) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO allocation_entries (id, mayorista_id, customer_id, brand, size, design, available_count, issued_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, mayoristaID, customerID, brand, size, design, available,
	).Error; err != nil {
		t.Fatalf("seed allocation: %v", err)
	}
}
