package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/bonos/internal/allocation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const entryColumns = `id, mayorista_id, customer_id, brand, size, design,
	available_count, issued_count, metadata, created_at, updated_at`

const keyPredicate = `mayorista_id = ? AND customer_id = ? AND brand = ? AND size = ? AND design = ?`

func keyArgs(key domain.Key) []any {
	return []any{key.MayoristaID, key.CustomerID, key.Brand, key.Size, key.Design}
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key domain.Key) (*domain.Entry, error) {
	var entry domain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT `+entryColumns+` FROM allocation_entries WHERE `+keyPredicate,
		keyArgs(key)...,
	).Scan(&entry).Error
	if err != nil {
		return nil, err
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM allocation_entries WHERE mayorista_id = ?`
	args := []any{filter.MayoristaID}
	if filter.CustomerID != nil {
		query += ` AND customer_id = ?`
		args = append(args, *filter.CustomerID)
	}
	query += ` ORDER BY customer_id ASC, brand ASC, size ASC, design ASC`

	var entries []*domain.Entry
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) Decrement(ctx context.Context, db *gorm.DB, key domain.Key, n int, at time.Time) (bool, error) {
	args := append([]any{n, n, at}, keyArgs(key)...)
	args = append(args, n)
	res := db.WithContext(ctx).Exec(
		`UPDATE allocation_entries
		 SET available_count = available_count - ?, issued_count = issued_count + ?, updated_at = ?
		 WHERE `+keyPredicate+` AND available_count >= ?`,
		args...,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, key domain.Key, n int, at time.Time) (bool, error) {
	args := append([]any{n, n, at}, keyArgs(key)...)
	args = append(args, n)
	res := db.WithContext(ctx).Exec(
		`UPDATE allocation_entries
		 SET available_count = available_count + ?, issued_count = issued_count - ?, updated_at = ?
		 WHERE `+keyPredicate+` AND issued_count >= ?`,
		args...,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

const (
	upsertEntitlementInsert = `INSERT INTO allocation_entries (id, mayorista_id, customer_id, brand, size, design,
			available_count, issued_count, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`

	upsertEntitlementConflict = `
		 ON CONFLICT (mayorista_id, customer_id, brand, size, design) DO UPDATE SET
			available_count = CASE
				WHEN ? > allocation_entries.issued_count THEN ? - allocation_entries.issued_count
				ELSE 0
			END,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`

	// MySQL resolves bare column names in the update list to the existing row.
	upsertEntitlementDuplicateKey = `
		 ON DUPLICATE KEY UPDATE
			available_count = CASE
				WHEN ? > issued_count THEN ? - issued_count
				ELSE 0
			END,
			metadata = VALUES(metadata),
			updated_at = VALUES(updated_at)`
)

// upsertEntitlementSQL picks the upsert clause for the connected dialect.
// Postgres and sqlite share ON CONFLICT.
func upsertEntitlementSQL(dialect string) string {
	if dialect == "mysql" {
		return upsertEntitlementInsert + upsertEntitlementDuplicateKey
	}
	return upsertEntitlementInsert + upsertEntitlementConflict
}

func (r *repo) UpsertEntitlement(ctx context.Context, db *gorm.DB, entry *domain.Entry, entitled int) error {
	return db.WithContext(ctx).Exec(
		upsertEntitlementSQL(db.Dialector.Name()),
		entry.ID,
		entry.MayoristaID,
		entry.CustomerID,
		entry.Brand,
		entry.Size,
		entry.Design,
		entitled,
		entry.Metadata,
		entry.CreatedAt,
		entry.UpdatedAt,
		entitled,
		entitled,
	).Error
}
