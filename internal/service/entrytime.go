package service

import (
	"math"
	"time"

	"github.com/msomdec/shift-clock/internal/civil"
	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

// EffectiveLocalDate returns the calendar day an entry is bucketed under.
//
// A well-formed stored StartLocalDate wins. Otherwise the start instant is
// projected into zone. ok is false when the entry has neither; such entries
// are left out of date-bucketed views. The zone is only consulted, and so
// only validated, when the fallback is needed.
func EffectiveLocalDate(tz *tzconv.Resolver, e *domain.Entry, zone string) (d civil.Date, ok bool, err error) {
	if d, ok := civil.NormalizeDate(e.StartLocalDate); ok {
		return d, true, nil
	}
	if e.StartUTC == nil {
		return civil.Date{}, false, nil
	}
	d, err = tz.ToLocalDate(*e.StartUTC, zone)
	if err != nil {
		return civil.Date{}, false, err
	}
	return d, true, nil
}

// EffectiveDurationMinutes returns the entry's duration in minutes, or nil
// when it is unknown (a running entry, or one with no instants and no
// explicit duration).
//
// An explicit DurationMin always wins, even zero and even when both
// instants are present. Otherwise the stop-start difference is rounded to
// the nearest minute and clamped at zero.
func EffectiveDurationMinutes(e *domain.Entry) *int {
	if e.DurationMin != nil {
		d := *e.DurationMin
		return &d
	}
	if e.StartUTC == nil || e.StopUTC == nil {
		return nil
	}
	m := int(math.Round(float64(e.StopUTC.Sub(*e.StartUTC)) / float64(time.Minute)))
	m = max(m, 0)
	return &m
}

// EntryView is an entry as the user sees it: instants projected into the
// user's zone together with the derived date and duration.
type EntryView struct {
	ID     int64
	Site   string
	Events []string
	Notes  string

	StartUTC *time.Time
	StopUTC  *time.Time

	// LocalDate is nil when the entry cannot be bucketed.
	LocalDate *civil.Date
	WeekStart *civil.Date
	// StartLocal and StopLocal are the wall-clock readings of the instants.
	StartLocal *civil.Time
	StopLocal  *civil.Time
	// StopLocalDate differs from LocalDate for entries crossing midnight.
	StopLocalDate *civil.Date

	DurationMin *int
	Active      bool
	Manual      bool
}

// NewEntryView projects e into zone.
func NewEntryView(tz *tzconv.Resolver, e *domain.Entry, zone string) (EntryView, error) {
	v := EntryView{
		ID:          e.ID,
		Site:        e.Site,
		Events:      e.Events,
		Notes:       e.Notes,
		StartUTC:    e.StartUTC,
		StopUTC:     e.StopUTC,
		DurationMin: EffectiveDurationMinutes(e),
		Active:      e.IsActive(),
		Manual:      e.IsManualDuration(),
	}
	if v.Events == nil {
		v.Events = []string{}
	}

	d, ok, err := EffectiveLocalDate(tz, e, zone)
	if err != nil {
		return EntryView{}, err
	}
	if ok {
		ws := civil.WeekStart(d)
		v.LocalDate = &d
		v.WeekStart = &ws
	}

	if e.StartUTC != nil {
		_, t, err := tz.ToLocal(*e.StartUTC, zone)
		if err != nil {
			return EntryView{}, err
		}
		v.StartLocal = &t
	}
	if e.StopUTC != nil {
		sd, t, err := tz.ToLocal(*e.StopUTC, zone)
		if err != nil {
			return EntryView{}, err
		}
		v.StopLocal = &t
		v.StopLocalDate = &sd
	}
	return v, nil
}
