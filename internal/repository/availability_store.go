package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/marketplace-availability/internal/availability"
	"github.com/iliyamo/marketplace-availability/internal/calendar"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

// AvailabilityStore adapts the window and booking repositories to
// availability.Store.
type AvailabilityStore struct {
	db       *sql.DB
	windows  *WindowRepo
	bookings *BookingRepo
}

// NewAvailabilityStore panics if any dependency is nil.
func NewAvailabilityStore(db *sql.DB, windows *WindowRepo, bookings *BookingRepo) *AvailabilityStore {
	if db == nil || windows == nil || bookings == nil {
		panic("nil dependency passed to NewAvailabilityStore")
	}
	return &AvailabilityStore{db: db, windows: windows, bookings: bookings}
}

// ReadWindows lists the vendor's windows without locking.
func (s *AvailabilityStore) ReadWindows(ctx context.Context, vendorID uint64) ([]model.Window, error) {
	ws, err := s.windows.ListByVendor(ctx, vendorID)
	return ws, classify(err)
}

// InTx begins a transaction, runs fn and commits when fn succeeds. Lock
// wait timeouts and deadlocks surface as availability.ErrTransient.
func (s *AvailabilityStore) InTx(ctx context.Context, fn func(ctx context.Context, tx availability.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(ctx, &sqlTx{tx: tx, windows: s.windows, bookings: s.bookings}); err != nil {
		return classify(err)
	}
	if err = tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// sqlTx binds the repositories to one *sql.Tx.
type sqlTx struct {
	tx       *sql.Tx
	windows  *WindowRepo
	bookings *BookingRepo
}

func (t *sqlTx) LoadWindows(ctx context.Context, vendorID uint64) ([]model.Window, error) {
	return t.windows.ListByVendorTx(ctx, t.tx, vendorID)
}

func (t *sqlTx) InsertWindow(ctx context.Context, w *model.Window) error {
	return t.windows.CreateTx(ctx, t.tx, w)
}

func (t *sqlTx) UpdateWindow(ctx context.Context, w *model.Window) error {
	return t.windows.UpdateTx(ctx, t.tx, w)
}

func (t *sqlTx) DeleteWindow(ctx context.Context, id uint64) error {
	return t.windows.DeleteTx(ctx, t.tx, id)
}

func (t *sqlTx) OccupyingDates(ctx context.Context, vendorID uint64, from, to calendar.Date) ([]calendar.Date, error) {
	return t.bookings.OccupyingDatesTx(ctx, t.tx, vendorID, from, to)
}

// classify maps contention errors from MySQL onto availability.ErrTransient
// and a window whose vendor_id has no users row onto
// availability.ErrUnknownVendor. Everything else is left untouched.
func classify(err error) error {
	if err == nil || errors.Is(err, availability.ErrTransient) {
		return err
	}
	if isContention(err) {
		return fmt.Errorf("%w: %v", availability.ErrTransient, err)
	}
	if isMissingParent(err) {
		return fmt.Errorf("%w: %v", availability.ErrUnknownVendor, err)
	}
	return err
}
