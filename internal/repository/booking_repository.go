package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/marketplace-availability/internal/calendar"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

// BookingRepo reads the bookings table. Bookings are owned by the booking
// workflow; this service never writes them.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo given a DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// OccupyingDatesTx returns the distinct dates in [from, to] held by a
// non-terminal booking of the vendor, ascending. The rows are read with a
// shared lock so a booking cannot be cancelled or moved under the check.
// DISTINCT is applied in Go because MySQL rejects some locking reads with
// aggregation.
func (r *BookingRepo) OccupyingDatesTx(ctx context.Context, tx *sql.Tx, vendorID uint64, from, to calendar.Date) ([]calendar.Date, error) {
	terminal := model.TerminalBookingStatuses
	q := `SELECT booking_date FROM bookings
	       WHERE vendor_id = ? AND booking_date BETWEEN ? AND ?
	         AND status NOT IN (` + placeholders(len(terminal)) + `)
	       ORDER BY booking_date
	       LOCK IN SHARE MODE`
	args := make([]interface{}, 0, 3+len(terminal))
	args = append(args, vendorID, from, to)
	for _, s := range terminal {
		args = append(args, s)
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []calendar.Date
	for rows.Next() {
		var d calendar.Date
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].Equal(d) {
			continue
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
