package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bonos/internal/voucher/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const voucherColumns = `id, mayorista_id, customer_id, brand, size, design, rim_size,
	invoice_number, status, master, item,
	activated_by_user_id, activated_at,
	redeem_invoice, redeemed_by_user_id, redeemed_at,
	reject_reason, rejected_by_user_id, rejected_at,
	replacement_voucher_id, replaces_voucher_id,
	expired_at, created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, v *domain.Voucher) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vouchers (id, mayorista_id, customer_id, brand, size, design, rim_size,
			invoice_number, status, replaces_voucher_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID,
		v.MayoristaID,
		v.CustomerID,
		v.Brand,
		v.Size,
		v.Design,
		v.RimSize,
		v.InvoiceNumber,
		v.Status,
		v.ReplacesVoucherID,
		v.CreatedAt,
		v.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Voucher, error) {
	var v domain.Voucher
	err := db.WithContext(ctx).Raw(
		`SELECT `+voucherColumns+` FROM vouchers WHERE id = ?`,
		id,
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func (r *repo) ListByInvoice(ctx context.Context, db *gorm.DB, invoiceNumber string) ([]*domain.Voucher, error) {
	var items []*domain.Voucher
	err := db.WithContext(ctx).Raw(
		`SELECT `+voucherColumns+` FROM vouchers WHERE invoice_number = ? ORDER BY id ASC`,
		invoiceNumber,
	).Scan(&items).Error
	return items, err
}

func (r *repo) ListByMaster(ctx context.Context, db *gorm.DB, master string) ([]*domain.Voucher, error) {
	var items []*domain.Voucher
	err := db.WithContext(ctx).Raw(
		`SELECT `+voucherColumns+` FROM vouchers WHERE master = ? ORDER BY id ASC`,
		master,
	).Scan(&items).Error
	return items, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id > ?`
	args := []any{filter.AfterID}
	if filter.MayoristaID != 0 {
		query += ` AND mayorista_id = ?`
		args = append(args, filter.MayoristaID)
	}
	if filter.CustomerID != 0 {
		query += ` AND customer_id = ?`
		args = append(args, filter.CustomerID)
	}
	if filter.InvoiceNumber != "" {
		query += ` AND invoice_number = ?`
		args = append(args, filter.InvoiceNumber)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, filter.Limit)

	var items []*domain.Voucher
	err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error
	return items, err
}

func (r *repo) MarkActive(ctx context.Context, db *gorm.DB, id snowflake.ID, master, item, userID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE vouchers
		 SET status = ?, master = ?, item = ?, activated_by_user_id = ?, activated_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusActive, master, item, userID, at, at,
		id, domain.StatusPending,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repo) MarkUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, redeemInvoice, userID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE vouchers
		 SET status = ?, redeem_invoice = ?, redeemed_by_user_id = ?, redeemed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusUsed, redeemInvoice, userID, at, at,
		id, domain.StatusActive,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repo) MarkRejected(ctx context.Context, db *gorm.DB, id snowflake.ID, reason, userID string, replacementID snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE vouchers
		 SET status = ?, reject_reason = ?, rejected_by_user_id = ?, rejected_at = ?,
			replacement_voucher_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusRejected, reason, userID, at, replacementID, at,
		id, domain.StatusActive,
	)
	return res.RowsAffected == 1, res.Error
}

func (r *repo) ExpireCreatedBefore(ctx context.Context, db *gorm.DB, cutoff, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE vouchers
		 SET status = ?, expired_at = ?, updated_at = ?
		 WHERE status IN (?, ?) AND created_at < ?`,
		domain.StatusExpired, at, at,
		domain.StatusPending, domain.StatusActive, cutoff,
	)
	return res.RowsAffected, res.Error
}
