package availability

import (
	"context"

	"github.com/iliyamo/marketplace-availability/internal/calendar"
	"github.com/iliyamo/marketplace-availability/internal/model"
)

// WindowStore is the persistence capability over availability windows.
type WindowStore interface {
	LoadWindows(ctx context.Context, vendorID uint64) ([]model.Window, error)
	// InsertWindow assigns ID and timestamps on w.
	InsertWindow(ctx context.Context, w *model.Window) error
	// UpdateWindow overwrites the bounds of w.ID and refreshes UpdatedAt.
	UpdateWindow(ctx context.Context, w *model.Window) error
	DeleteWindow(ctx context.Context, windowID uint64) error
}

// BookingOracle answers which days of a vendor are held by occupying
// bookings. Terminal bookings are never reported.
type BookingOracle interface {
	// OccupyingDates returns the distinct booking dates in [from, to],
	// ascending.
	OccupyingDates(ctx context.Context, vendorID uint64, from, to calendar.Date) ([]calendar.Date, error)
}

// Tx is a window store and booking oracle bound to one transaction, so
// both observe the same snapshot.
type Tx interface {
	WindowStore
	BookingOracle
}

// Store gives the service non-locking reads and transactional mutation.
type Store interface {
	ReadWindows(ctx context.Context, vendorID uint64) ([]model.Window, error)
	// InTx runs fn inside a single transaction, committing only when fn
	// returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// VendorDirectory answers whether an id belongs to a vendor account.
type VendorDirectory interface {
	VendorExists(ctx context.Context, vendorID uint64) (bool, error)
}

// Locker serialises mutations per key. Acquire must give up after a short
// bounded wait instead of queueing indefinitely.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ChangeKind names a committed mutation.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
	ChangeTrimmed ChangeKind = "trimmed"
	ChangeSplit   ChangeKind = "split"
)

// Change describes a committed mutation for downstream consumers.
type Change struct {
	Kind     ChangeKind
	VendorID uint64
	ActorID  uint64
	Mode     Mode
	WindowID uint64
	// Windows holds the windows as they exist after the change; empty for a
	// whole delete.
	Windows []model.Window
}

// Notifier receives committed changes. Failures never undo a mutation.
type Notifier interface {
	WindowsChanged(ctx context.Context, c Change) error
}
