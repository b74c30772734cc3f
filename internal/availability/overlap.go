// Package availability implements the vendor availability window manager:
// overlap evaluation, access checks and the create/edit/delete state
// transitions that keep windows consistent with existing bookings.
package availability

import (
	"fmt"

	"github.com/iliyamo/marketplace-availability/internal/model"
)

// Overlaps reports whether two windows intersect on both axes. Date ranges
// are closed; time ranges touch without overlapping, so 09:00-12:00 and
// 12:00-17:00 on the same days can coexist.
func Overlaps(a, b model.Bounds) bool {
	datesMeet := !a.DateStart.After(b.DateEnd) && !b.DateStart.After(a.DateEnd)
	timesMeet := a.TimeStart < b.TimeEnd && b.TimeStart < a.TimeEnd
	return datesMeet && timesMeet
}

// firstOverlap returns the first window in siblings that overlaps b,
// skipping the window with ID exclude (0 skips nothing).
func firstOverlap(siblings []model.Window, b model.Bounds, exclude uint64) (model.Window, bool) {
	for _, w := range siblings {
		if exclude != 0 && w.ID == exclude {
			continue
		}
		if Overlaps(w.Bounds(), b) {
			return w, true
		}
	}
	return model.Window{}, false
}

// ValidateBounds checks the per-window invariants.
func ValidateBounds(b model.Bounds) error {
	if b.DateStart.IsZero() || b.DateEnd.IsZero() {
		return fmt.Errorf("%w: date_start and date_end are required", ErrInvalidRange)
	}
	if b.DateStart.After(b.DateEnd) {
		return fmt.Errorf("%w: date_start %s is after date_end %s", ErrInvalidRange, b.DateStart, b.DateEnd)
	}
	if !b.TimeStart.Valid() || !b.TimeEnd.Valid() {
		return fmt.Errorf("%w: time of day out of range", ErrInvalidRange)
	}
	if b.TimeStart >= b.TimeEnd {
		return fmt.Errorf("%w: time_start %s must be before time_end %s", ErrInvalidRange, b.TimeStart, b.TimeEnd)
	}
	return nil
}
