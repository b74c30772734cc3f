package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Clock is a time of day as seconds since midnight, 0 through 86399.
type Clock int

const secondsPerDay = 24 * 60 * 60

// NewClock builds a Clock from hour, minute and second.
func NewClock(h, m, s int) (Clock, error) {
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, fmt.Errorf("invalid time %02d:%02d:%02d", h, m, s)
	}
	return Clock(h*3600 + m*60 + s), nil
}

// ParseClock accepts HH:MM or HH:MM:SS with nothing around it.
func ParseClock(s string) (Clock, error) {
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t.Hour(), t.Minute(), t.Second())
		}
	}
	return 0, fmt.Errorf("invalid time %q", s)
}

var clockLayouts = []string{"15:04", "15:04:05"}

// MustParseClock is ParseClock for literals in tests and fixtures.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 3600 }
func (c Clock) Minute() int { return int(c) % 3600 / 60 }
func (c Clock) Second() int { return int(c) % 60 }

// Valid reports whether c is inside a single day.
func (c Clock) Valid() bool { return c >= 0 && c < secondsPerDay }

// String renders HH:MM, or HH:MM:SS when seconds are set.
func (c Clock) String() string {
	if c.Second() != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
	}
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the clock as a TIME literal.
func (c Clock) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second()), nil
}

// Scan reads TIME columns, which the MySQL driver returns as bytes.
func (c *Clock) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("calendar: cannot scan %T into Clock", src)
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
