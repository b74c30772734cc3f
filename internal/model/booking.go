package model

import (
	"strings"

	"github.com/iliyamo/marketplace-availability/internal/calendar"
)

// Booking statuses. The booking workflow lives outside this service; only
// the split between occupying and terminal matters here.
const (
	BookingPending    = "PENDING"
	BookingConfirmed  = "CONFIRMED"
	BookingAssigned   = "ASSIGNED"
	BookingInProgress = "IN_PROGRESS"
	BookingCancelled  = "CANCELLED"
	BookingCompleted  = "COMPLETED"
	BookingRejected   = "REJECTED"
	BookingRefunded   = "REFUNDED"
)

// TerminalBookingStatuses are ignored by every conflict check.
var TerminalBookingStatuses = []string{BookingCancelled, BookingCompleted, BookingRejected, BookingRefunded}

// Booking is the read-only projection of a row in the `bookings` table.
//
// Fields:
//
//	ID          – primary key identifier.
//	VendorID    – vendor the booking is placed with.
//	BookingDate – day of service.
//	Status      – workflow status (see constants above).
type Booking struct {
	ID          uint64        // bookings.id
	VendorID    uint64        // bookings.vendor_id
	BookingDate calendar.Date // bookings.booking_date
	Status      string        // bookings.status
}

// Occupying reports whether the booking still holds its date.
func (b Booking) Occupying() bool {
	return IsOccupyingStatus(b.Status)
}

// IsOccupyingStatus reports whether status is anything but terminal.
func IsOccupyingStatus(status string) bool {
	s := strings.ToUpper(strings.TrimSpace(status))
	for _, t := range TerminalBookingStatuses {
		if s == t {
			return false
		}
	}
	return true
}
