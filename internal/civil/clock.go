package civil

import (
	"fmt"
	"strconv"
)

// Time is a 24-hour wall-clock time with minute precision and no date or
// zone. Canonical form is HH:MM, 00:00 through 23:59.
type Time struct {
	Hour   int
	Minute int
}

// ParseTime parses a canonical HH:MM string.
func ParseTime(s string) (Time, error) {
	if len(s) != 5 || s[2] != ':' {
		return Time{}, fmt.Errorf("civil: invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || !isDigits(s[:2]) {
		return Time{}, fmt.Errorf("civil: invalid time %q: bad hour", s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || !isDigits(s[3:]) {
		return Time{}, fmt.Errorf("civil: invalid time %q: bad minute", s)
	}
	t := Time{Hour: h, Minute: m}
	if !t.IsValid() {
		return Time{}, fmt.Errorf("civil: invalid time %q: out of range", s)
	}
	return t, nil
}

// MustParseTime is ParseTime for literals. It panics on malformed input.
func MustParseTime(s string) Time {
	t, err := ParseTime(s)
	if err != nil {
		panic(err)
	}
	return t
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsValid reports whether t is within 00:00..23:59.
func (t Time) IsValid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MarshalText implements encoding.TextMarshaler.
func (t Time) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Time) UnmarshalText(b []byte) error {
	parsed, err := ParseTime(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
