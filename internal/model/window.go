package model

import (
	"time"

	"github.com/iliyamo/marketplace-availability/internal/calendar"
)

// Window is a bookable availability window of a vendor: a closed date
// range crossed with a closed time-of-day range that applies to every
// date in the range.
//
// Fields:
//
//	ID        – primary key identifier, assigned on insert.
//	VendorID  – vendor that owns the window; never changes.
//	DateStart – first bookable day (inclusive).
//	DateEnd   – last bookable day (inclusive), never before DateStart.
//	TimeStart – daily opening time (inclusive).
//	TimeEnd   – daily closing time (inclusive), after TimeStart.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Window struct {
	ID        uint64         `json:"id"`         // availability_windows.id
	VendorID  uint64         `json:"vendor_id"`  // availability_windows.vendor_id
	DateStart calendar.Date  `json:"date_start"` // availability_windows.date_start
	DateEnd   calendar.Date  `json:"date_end"`   // availability_windows.date_end
	TimeStart calendar.Clock `json:"time_start"` // availability_windows.time_start
	TimeEnd   calendar.Clock `json:"time_end"`   // availability_windows.time_end
	CreatedAt time.Time      `json:"created_at"` // availability_windows.created_at
	UpdatedAt time.Time      `json:"updated_at"` // availability_windows.updated_at
}

// Bounds is the mutable part of a window.
type Bounds struct {
	DateStart calendar.Date  `json:"date_start"`
	DateEnd   calendar.Date  `json:"date_end"`
	TimeStart calendar.Clock `json:"time_start"`
	TimeEnd   calendar.Clock `json:"time_end"`
}

// Bounds returns the window's current date and time bounds.
func (w Window) Bounds() Bounds {
	return Bounds{DateStart: w.DateStart, DateEnd: w.DateEnd, TimeStart: w.TimeStart, TimeEnd: w.TimeEnd}
}

// WithBounds returns a copy of w carrying b.
func (w Window) WithBounds(b Bounds) Window {
	w.DateStart, w.DateEnd, w.TimeStart, w.TimeEnd = b.DateStart, b.DateEnd, b.TimeStart, b.TimeEnd
	return w
}

// Covers reports whether d falls inside the window's date range.
func (w Window) Covers(d calendar.Date) bool {
	return d.InRange(w.DateStart, w.DateEnd)
}
