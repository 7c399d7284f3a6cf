// Package tzconv converts between civil date/time values in an IANA zone and
// UTC instants.
//
// The platform timezone database (time.LoadLocation, backed by the embedded
// time/tzdata when the host has none) is the only source of offset rules.
// Local-to-UTC conversion is solved by a short fixed-point iteration over
// the zone offset, see Converge.
package tzconv

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/maypok86/otter/v2"

	"github.com/msomdec/shift-clock/internal/domain"
)

// DefaultZone is the zone callers substitute when a user record has none.
const DefaultZone = "UTC"

// ErrInvalidZone is returned for zone names the timezone database does not
// recognise. It wraps domain.ErrInvalidInput.
var ErrInvalidZone = fmt.Errorf("%w: unknown time zone", domain.ErrInvalidInput)

// ZoneOrDefault returns zone, or DefaultZone when zone is blank.
func ZoneOrDefault(zone string) string {
	if strings.TrimSpace(zone) == "" {
		return DefaultZone
	}
	return zone
}

// Resolver looks up zones and answers offset questions. Loaded locations are
// cached by name; a Resolver is safe for concurrent use.
type Resolver struct {
	cache *otter.Cache[string, *time.Location]
}

// NewResolver creates a Resolver caching up to size zones. size <= 0 picks
// a default large enough for the whole IANA database.
func NewResolver(size int) *Resolver {
	if size <= 0 {
		size = 1024
	}
	return &Resolver{
		cache: otter.Must(&otter.Options[string, *time.Location]{
			MaximumSize: size,
		}),
	}
}

// Location returns the *time.Location for an IANA zone name.
//
// Empty names and "Local" are rejected: time.LoadLocation maps them to UTC
// and the host zone, which would hide a missing or ambient zone.
func (r *Resolver) Location(zone string) (*time.Location, error) {
	if zone == "" || zone == "Local" {
		return nil, fmt.Errorf("%w %q", ErrInvalidZone, zone)
	}
	if loc, ok := r.cache.GetIfPresent(zone); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrInvalidZone, zone)
	}
	r.cache.Set(zone, loc)
	return loc, nil
}

// Validate reports whether zone is a recognised zone name.
func (r *Resolver) Validate(zone string) error {
	_, err := r.Location(zone)
	return err
}

// OffsetMinutes returns the signed offset of zone at instant, in minutes,
// such that local wall-clock time = instant + offset.
func (r *Resolver) OffsetMinutes(instant time.Time, zone string) (int, error) {
	loc, err := r.Location(zone)
	if err != nil {
		return 0, err
	}
	return offsetMinutes(instant, loc), nil
}

// offsetMinutes reads the local calendar fields of instant in loc, treats
// them as if they were UTC and measures the distance back to instant.
func offsetMinutes(instant time.Time, loc *time.Location) int {
	instant = instant.Truncate(time.Second)
	l := instant.In(loc)
	asUTC := time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), 0, time.UTC)
	return int(asUTC.Sub(instant) / time.Minute)
}

// IsInvalidZone reports whether err came from an unrecognised zone.
func IsInvalidZone(err error) bool {
	return errors.Is(err, ErrInvalidZone)
}
