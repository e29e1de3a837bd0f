package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	allocationdomain "github.com/smallbiznis/bonos/internal/allocation/domain"
	catalogdomain "github.com/smallbiznis/bonos/internal/catalog/domain"
	"gorm.io/gorm"
)

const (
	defaultMayoristaName  = "Llantas Demo"
	defaultMayoristaEmail = "mayorista@bonos.local"
	defaultCustomerName   = "Reencauche Demo"
	defaultCustomerEmail  = "reencauche@bonos.local"
	DefaultPoolSize       = 50
)

// Result identifies the seeded records so callers can print them.
type Result struct {
	MayoristaID snowflake.ID
	CustomerID  snowflake.ID
	Allocations int
}

// EnsureDemoData seeds one mayorista, one of its customers and a pool
// allocation of poolSize for every catalog entry. Existing rows are left as
// they are, so running it twice is harmless.
func EnsureDemoData(ctx context.Context, db *gorm.DB, node *snowflake.Node, entries []catalogdomain.Entry, poolSize int) (Result, error) {
	if db == nil {
		return Result{}, errors.New("seed database handle is required")
	}
	if node == nil {
		return Result{}, errors.New("seed id generator is required")
	}
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	var result Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mayoristaID, err := ensurePartnerTx(ctx, tx, node)
		if err != nil {
			return err
		}
		customerID, err := ensureCustomerTx(ctx, tx, node, mayoristaID)
		if err != nil {
			return err
		}
		created, err := ensurePoolAllocationsTx(ctx, tx, node, mayoristaID, entries, poolSize)
		if err != nil {
			return err
		}
		result = Result{MayoristaID: mayoristaID, CustomerID: customerID, Allocations: created}
		return nil
	})
	return result, err
}

func ensurePartnerTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (snowflake.ID, error) {
	var ids []int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT id FROM business_partners WHERE email = ? ORDER BY id LIMIT 1`,
		defaultMayoristaEmail,
	).Scan(&ids).Error; err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		return snowflake.ID(ids[0]), nil
	}

	id := node.Generate()
	now := time.Now().UTC()
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO business_partners (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, defaultMayoristaName, defaultMayoristaEmail, now, now,
	).Error
	return id, err
}

func ensureCustomerTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, mayoristaID snowflake.ID) (snowflake.ID, error) {
	var ids []int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT id FROM customers WHERE mayorista_id = ? AND email = ? ORDER BY id LIMIT 1`,
		mayoristaID, defaultCustomerEmail,
	).Scan(&ids).Error; err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		return snowflake.ID(ids[0]), nil
	}

	id := node.Generate()
	now := time.Now().UTC()
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO customers (id, mayorista_id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, mayoristaID, defaultCustomerName, defaultCustomerEmail, now, now,
	).Error
	return id, err
}

func ensurePoolAllocationsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, mayoristaID snowflake.ID, entries []catalogdomain.Entry, poolSize int) (int, error) {
	created := 0
	for _, entry := range entries {
		key := allocationdomain.NewKey(mayoristaID, allocationdomain.PoolCustomerID, entry.Spec())
		if strings.TrimSpace(key.Brand) == "" {
			continue
		}

		var count int64
		if err := tx.WithContext(ctx).Raw(
			`SELECT COUNT(*) FROM allocation_entries
			 WHERE mayorista_id = ? AND customer_id = ? AND brand = ? AND size = ? AND design = ?`,
			key.MayoristaID, key.CustomerID, key.Brand, key.Size, key.Design,
		).Scan(&count).Error; err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}

		now := time.Now().UTC()
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO allocation_entries (id, mayorista_id, customer_id, brand, size, design, available_count, issued_count, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			node.Generate(), key.MayoristaID, key.CustomerID, key.Brand, key.Size, key.Design, poolSize, now, now,
		).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
