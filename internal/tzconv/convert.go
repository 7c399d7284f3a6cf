package tzconv

import (
	"fmt"
	"time"

	"github.com/msomdec/shift-clock/internal/civil"
	"github.com/msomdec/shift-clock/internal/domain"
)

// maxPasses bounds the offset iteration. One DST jump needs at most two
// lookups to settle for every real-world zone.
const maxPasses = 2

// InstantLayout is the canonical wire form of an instant.
const InstantLayout = "2006-01-02T15:04:05.000Z"

// FormatInstant renders t in UTC as YYYY-MM-DDTHH:MM:SS.sssZ.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}

// ParseInstant accepts any RFC 3339 timestamp (with or without fractional
// seconds or a numeric offset) and returns it in UTC, truncated to
// millisecond precision.
func ParseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid instant %q", domain.ErrInvalidInput, s)
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

// Converge solves local = instant + offset(instant) for instant, where base
// is the wall-clock reading expressed as if it were UTC. It starts from
// base itself and corrects by the offset found at the current guess, for at
// most maxPasses lookups.
//
// Wall-clock readings inside a DST gap or overlap get whichever instant the
// iteration lands on; no error is raised.
func Converge(base time.Time, offsetAt func(time.Time) int) time.Time {
	guess := base
	for i := 0; i < maxPasses; i++ {
		corrected := base.Add(-time.Duration(offsetAt(guess)) * time.Minute)
		if corrected.Equal(guess) {
			break
		}
		guess = corrected
	}
	return guess
}

// ToInstant converts a local date and wall-clock time in zone to a UTC
// instant.
func (r *Resolver) ToInstant(d civil.Date, t civil.Time, zone string) (time.Time, error) {
	if !t.IsValid() {
		return time.Time{}, fmt.Errorf("%w: invalid time %s", domain.ErrInvalidInput, t)
	}
	if d.IsZero() {
		return time.Time{}, fmt.Errorf("%w: missing date", domain.ErrInvalidInput)
	}
	if !d.IsValid() {
		return time.Time{}, fmt.Errorf("%w: invalid date %s", domain.ErrInvalidInput, d)
	}
	loc, err := r.Location(zone)
	if err != nil {
		return time.Time{}, err
	}
	base := time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, time.UTC)
	return Converge(base, func(at time.Time) int { return offsetMinutes(at, loc) }), nil
}

// ToLocal projects instant into zone and returns the local date and
// wall-clock time. Seconds are dropped.
func (r *Resolver) ToLocal(instant time.Time, zone string) (civil.Date, civil.Time, error) {
	loc, err := r.Location(zone)
	if err != nil {
		return civil.Date{}, civil.Time{}, err
	}
	l := instant.In(loc)
	return civil.DateOf(l), civil.Time{Hour: l.Hour(), Minute: l.Minute()}, nil
}

// ToLocalDate is ToLocal without the time of day.
func (r *Resolver) ToLocalDate(instant time.Time, zone string) (civil.Date, error) {
	d, _, err := r.ToLocal(instant, zone)
	return d, err
}

// Today returns the current local date in zone.
func (r *Resolver) Today(now time.Time, zone string) (civil.Date, error) {
	return r.ToLocalDate(now, zone)
}
