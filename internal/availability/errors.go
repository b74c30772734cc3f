package availability

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/marketplace-availability/internal/calendar"
)

// Every rejection the service produces matches exactly one of these with
// errors.Is. Only ErrTransient is safe to retry.
var (
	// ErrInvalidRange is returned for inverted or malformed bounds and for
	// delete sub-ranges that fall outside the window.
	ErrInvalidRange = errors.New("invalid range")

	// ErrOverlap is returned when a window would intersect a sibling window
	// on both the date and the time axis.
	ErrOverlap = errors.New("overlapping slot exists")

	// ErrNotFound is returned when the window does not exist or belongs to
	// another vendor.
	ErrNotFound = errors.New("availability window not found")

	// ErrUnknownVendor is returned in elevated mode when the vendor id does
	// not name a vendor account. It also matches ErrNotFound.
	ErrUnknownVendor = fmt.Errorf("%w: no such vendor", ErrNotFound)

	// ErrForbidden is returned when the caller may not act on the vendor.
	ErrForbidden = errors.New("forbidden")

	// ErrBookingConflict is matched by *BookingConflictError.
	ErrBookingConflict = errors.New("booking conflict")

	// ErrTransient signals lock or transaction contention.
	ErrTransient = errors.New("vendor availability is busy, try again")
)

// BookingConflictError lists the dates of occupying bookings that the
// requested mutation would leave uncovered.
type BookingConflictError struct {
	Dates []calendar.Date
}

func (e *BookingConflictError) Error() string {
	if len(e.Dates) == 0 {
		return ErrBookingConflict.Error()
	}
	parts := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		parts[i] = d.String()
	}
	return "bookings exist on " + strings.Join(parts, ", ")
}

// Is lets errors.Is(err, ErrBookingConflict) match.
func (e *BookingConflictError) Is(target error) bool {
	return target == ErrBookingConflict
}

// ConflictDates extracts the blocking dates from err, if any.
func ConflictDates(err error) ([]calendar.Date, bool) {
	var bc *BookingConflictError
	if errors.As(err, &bc) {
		return bc.Dates, true
	}
	return nil, false
}
