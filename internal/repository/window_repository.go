package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/marketplace-availability/internal/availability"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

const windowColumns = `id, vendor_id, date_start, date_end, time_start, time_end, created_at, updated_at`

// WindowRepo encapsulates database operations for availability_windows.
type WindowRepo struct {
	db *sql.DB
}

// NewWindowRepo constructs a WindowRepo given a DB handle.
func NewWindowRepo(db *sql.DB) *WindowRepo {
	return &WindowRepo{db: db}
}

// ListByVendor returns the vendor's windows without taking locks. Used for
// read-only endpoints.
func (r *WindowRepo) ListByVendor(ctx context.Context, vendorID uint64) ([]model.Window, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+windowColumns+` FROM availability_windows WHERE vendor_id = ? ORDER BY date_start, time_start, id`,
		vendorID)
	if err != nil {
		return nil, err
	}
	return scanWindows(rows)
}

// ListByVendorTx returns the vendor's windows and locks the rows until the
// transaction ends, so a concurrent writer cannot slip in between the
// overlap check and the write.
func (r *WindowRepo) ListByVendorTx(ctx context.Context, tx *sql.Tx, vendorID uint64) ([]model.Window, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+windowColumns+` FROM availability_windows WHERE vendor_id = ? ORDER BY date_start, time_start, id FOR UPDATE`,
		vendorID)
	if err != nil {
		return nil, err
	}
	return scanWindows(rows)
}

// CreateTx inserts w and populates its ID and timestamps.
func (r *WindowRepo) CreateTx(ctx context.Context, tx *sql.Tx, w *model.Window) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		`INSERT INTO availability_windows (vendor_id, date_start, date_end, time_start, time_end, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.VendorID, w.DateStart, w.DateEnd, w.TimeStart, w.TimeEnd, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID = uint64(id)
	w.CreatedAt = now
	w.UpdatedAt = now
	return nil
}

// UpdateTx overwrites the bounds of w and refreshes UpdatedAt. The vendor
// is part of the predicate so a window can never move between vendors.
func (r *WindowRepo) UpdateTx(ctx context.Context, tx *sql.Tx, w *model.Window) error {
	now := time.Now().UTC().Truncate(time.Second)
	_, err := tx.ExecContext(ctx,
		`UPDATE availability_windows
		    SET date_start = ?, date_end = ?, time_start = ?, time_end = ?, updated_at = ?
		  WHERE id = ? AND vendor_id = ?`,
		w.DateStart, w.DateEnd, w.TimeStart, w.TimeEnd, now, w.ID, w.VendorID)
	if err != nil {
		return err
	}
	w.UpdatedAt = now
	return nil
}

// DeleteTx removes a window by id. A missing row yields
// availability.ErrNotFound.
func (r *WindowRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM availability_windows WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return availability.ErrNotFound
	}
	return nil
}

func scanWindows(rows *sql.Rows) ([]model.Window, error) {
	defer rows.Close()
	var out []model.Window
	for rows.Next() {
		var w model.Window
		if err := rows.Scan(&w.ID, &w.VendorID, &w.DateStart, &w.DateEnd, &w.TimeStart, &w.TimeEnd, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
