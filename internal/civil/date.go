// Package civil holds calendar dates and wall-clock times that carry no
// timezone, plus the week and month arithmetic used to bucket entries into
// reporting windows.
//
// A Date is always a valid Gregorian date between years 1 and 9999. Its
// canonical form is YYYY-MM-DD, which sorts lexicographically in the same
// order as chronologically.
package civil

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day and no zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a canonical YYYY-MM-DD string. Out-of-range fields are
// rejected, never clamped.
func ParseDate(s string) (Date, error) {
	if len(s) != len(dateLayout) {
		return Date{}, fmt.Errorf("civil: invalid date %q: want YYYY-MM-DD", s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("civil: invalid date %q: %w", s, err)
	}
	d := DateOf(t)
	if d.Year < 1 {
		return Date{}, fmt.Errorf("civil: invalid date %q: year out of range", s)
	}
	return d, nil
}

// MustParseDate is ParseDate for literals. It panics on malformed input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NormalizeDate extracts a Date from a stored value. It accepts a bare
// YYYY-MM-DD or any string that starts with one followed by 'T' or ' '
// (a DATE column scanned as a timestamp). ok is false for anything else.
func NormalizeDate(s string) (Date, bool) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		switch s[len(dateLayout)] {
		case 'T', ' ':
			s = s[:len(dateLayout)]
		default:
			return Date{}, false
		}
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, false
	}
	return d, true
}

// DateOf returns the date fields of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// NewDate normalises out-of-range month and day values the same way
// time.Date does, e.g. March 0 is the last day of February.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// IsValid reports whether d names a real calendar day in year 1 or later.
// Hand-built values such as February 30 are invalid rather than rolled over.
func (d Date) IsValid() bool {
	return d.Year >= 1 && NewDate(d.Year, d.Month, d.Day) == d
}

// IsZero reports whether d is the zero Date, used for "no date".
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// midnight anchors d at 00:00 UTC so calendar arithmetic never meets a DST
// transition.
func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.midnight().Weekday()
}

// AddDays returns d shifted by n calendar days. n may be negative.
func (d Date) AddDays(n int) Date {
	return NewDate(d.Year, d.Month, d.Day+n)
}

// DaysUntil returns the number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.midnight().Sub(d.midnight()).Hours() / 24)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
