package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/marketplace-availability/internal/availability"
	"github.com/iliyamo/marketplace-availability/internal/calendar"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

func newStore(t *testing.T) (*AvailabilityStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAvailabilityStore(db, NewWindowRepo(db), NewBookingRepo(db)), mock
}

func TestOccupyingDatesExcludesTerminalAndDedupes(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT booking_date FROM bookings .* status NOT IN \(\?,\?,\?,\?\) .* LOCK IN SHARE MODE`).
		WithArgs(7, "2025-01-05", "2025-01-07",
			model.BookingCancelled, model.BookingCompleted, model.BookingRejected, model.BookingRefunded).
		WillReturnRows(sqlmock.NewRows([]string{"booking_date"}).
			AddRow(day("2025-01-05")).
			AddRow(day("2025-01-05")).
			AddRow(day("2025-01-07")))
	mock.ExpectCommit()

	var got []calendar.Date
	err := store.InTx(context.Background(), func(ctx context.Context, tx availability.Tx) error {
		var err error
		got, err = tx.OccupyingDates(ctx, 7, calendar.MustParseDate("2025-01-05"), calendar.MustParseDate("2025-01-07"))
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if len(got) != 2 || got[0].String() != "2025-01-05" || got[1].String() != "2025-01-07" {
		t.Fatalf("unexpected dates %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx availability.Tx) error {
		return availability.ErrOverlap
	})
	if !errors.Is(err, availability.ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInTxMapsDeadlockToTransient(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM availability_windows")).
		WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"})
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, tx availability.Tx) error {
		_, err := tx.LoadWindows(ctx, 7)
		return err
	})
	if !errors.Is(err, availability.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInTxMapsLockWaitTimeoutOnCommit(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})

	err := store.InTx(context.Background(), func(ctx context.Context, tx availability.Tx) error { return nil })
	if !errors.Is(err, availability.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
}

func TestInTxSplitCommitsBothWrites(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE availability_windows")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_windows")).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	left := model.Window{ID: 10, VendorID: 7,
		DateStart: calendar.MustParseDate("2025-01-01"), DateEnd: calendar.MustParseDate("2025-01-04"),
		TimeStart: calendar.MustParseClock("09:00"), TimeEnd: calendar.MustParseClock("17:00")}
	right := left
	right.ID = 0
	right.DateStart = calendar.MustParseDate("2025-01-08")
	right.DateEnd = calendar.MustParseDate("2025-01-10")

	err := store.InTx(context.Background(), func(ctx context.Context, tx availability.Tx) error {
		if err := tx.UpdateWindow(ctx, &left); err != nil {
			return err
		}
		return tx.InsertWindow(ctx, &right)
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if right.ID != 11 {
		t.Fatalf("expected new fragment id 11, got %d", right.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInTxInsertFailureRollsBackUpdate(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE availability_windows")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_windows")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	w := model.Window{ID: 10, VendorID: 7,
		DateStart: calendar.MustParseDate("2025-01-01"), DateEnd: calendar.MustParseDate("2025-01-04"),
		TimeStart: calendar.MustParseClock("09:00"), TimeEnd: calendar.MustParseClock("17:00")}
	err := store.InTx(context.Background(), func(ctx context.Context, tx availability.Tx) error {
		if err := tx.UpdateWindow(ctx, &w); err != nil {
			return err
		}
		n := w
		n.ID = 0
		return tx.InsertWindow(ctx, &n)
	})
	if err == nil || errors.Is(err, availability.ErrTransient) {
		t.Fatalf("expected plain infrastructure error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInTxMapsMissingVendorRowToUnknownVendor(t *testing.T) {
	store, mock := newStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_windows")).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails"})
	mock.ExpectRollback()

	w := model.Window{VendorID: 424242,
		DateStart: calendar.MustParseDate("2025-01-01"), DateEnd: calendar.MustParseDate("2025-01-04"),
		TimeStart: calendar.MustParseClock("09:00"), TimeEnd: calendar.MustParseClock("17:00")}
	err := store.InTx(context.Background(), func(ctx context.Context, tx availability.Tx) error {
		return tx.InsertWindow(ctx, &w)
	})
	if !errors.Is(err, availability.ErrUnknownVendor) || !errors.Is(err, availability.ErrNotFound) {
		t.Fatalf("expected ErrUnknownVendor, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
