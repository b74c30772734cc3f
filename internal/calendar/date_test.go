package calendar

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAddDaysRollsOver(t *testing.T) {
	cases := []struct {
		from string
		n    int
		want string
	}{
		{"2024-01-31", 1, "2024-02-01"},
		{"2024-02-28", 1, "2024-02-29"},
		{"2023-02-28", 1, "2023-03-01"},
		{"2024-12-31", 1, "2025-01-01"},
		{"2025-01-01", -1, "2024-12-31"},
		{"2024-03-01", -1, "2024-02-29"},
		{"2024-01-10", 0, "2024-01-10"},
	}
	for _, tc := range cases {
		got := MustParseDate(tc.from).AddDays(tc.n)
		if got.String() != tc.want {
			t.Errorf("%s %+d: got %s, want %s", tc.from, tc.n, got, tc.want)
		}
	}
}

func TestCompareAndInRange(t *testing.T) {
	a := MustParseDate("2024-01-05")
	b := MustParseDate("2024-01-10")
	if !a.Before(b) || a.After(b) || a.Equal(b) {
		t.Fatal("ordering of 2024-01-05 and 2024-01-10 is wrong")
	}
	if !b.After(a) {
		t.Fatal("expected b after a")
	}
	if !a.InRange(a, b) || !b.InRange(a, b) {
		t.Fatal("range bounds must be inclusive")
	}
	if a.AddDays(-1).InRange(a, b) || b.AddDays(1).InRange(a, b) {
		t.Fatal("dates outside the range reported inside")
	}
	if MustParseDate("2023-12-31").Compare(MustParseDate("2024-01-01")) != -1 {
		t.Fatal("year must dominate comparison")
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "2024-13-01", "2024-02-30", "01/02/2024"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestDateJSONAndScan(t *testing.T) {
	d := MustParseDate("2024-02-29")
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-02-29"` {
		t.Fatalf("unexpected json %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil || !back.Equal(d) {
		t.Fatalf("unmarshal: %v %v", back, err)
	}

	var scanned Date
	if err := scanned.Scan(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)); err != nil || !scanned.Equal(d) {
		t.Fatalf("scan time.Time: %v %v", scanned, err)
	}
	if err := scanned.Scan([]byte("2024-03-01")); err != nil || scanned.String() != "2024-03-01" {
		t.Fatalf("scan bytes: %v %v", scanned, err)
	}
	if err := scanned.Scan(nil); err == nil {
		t.Fatal("expected error scanning NULL")
	}
}

func TestClockParseAndFormat(t *testing.T) {
	c, err := ParseClock("09:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Hour() != 9 || c.Minute() != 30 || c.String() != "09:30" {
		t.Fatalf("unexpected clock %v", c)
	}
	c2 := MustParseClock("17:00:15")
	if c2.String() != "17:00:15" {
		t.Fatalf("unexpected clock %v", c2)
	}
	v, _ := c.Value()
	if v != "09:30:00" {
		t.Fatalf("unexpected driver value %v", v)
	}
	for _, s := range []string{"24:00", "9", "10:60", "aa:bb", "09:00junk", "+9:5", " 9:0", "09:00 ", "09:00:00:00"} {
		if _, err := ParseClock(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
	var scanned Clock
	if err := scanned.Scan([]byte("11:00:00")); err != nil || scanned != MustParseClock("11:00") {
		t.Fatalf("scan: %v %v", scanned, err)
	}
}
