package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msomdec/shift-clock/internal/civil"
	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	maxNotes         = 2000
)

// EntryService handles the time entry lifecycle: live start/stop, manual
// timed and duration entries, edits and the reporting views.
//
// Every civil date or time is read in the acting user's zone, with UTC
// standing in for a user that has none.
type EntryService struct {
	entries domain.EntryRepository
	events  *EventTypeService
	tz      *tzconv.Resolver
	now     func() time.Time
}

// NewEntryService creates a new EntryService.
func NewEntryService(entries domain.EntryRepository, events *EventTypeService, tz *tzconv.Resolver) *EntryService {
	return &EntryService{entries: entries, events: events, tz: tz, now: time.Now}
}

// WithClock replaces the wall clock used by Start and Stop.
func (s *EntryService) WithClock(now func() time.Time) *EntryService {
	s.now = now
	return s
}

// Zone returns the zone the user's civil values are read in.
func Zone(user *domain.User) string {
	return tzconv.ZoneOrDefault(user.TZ)
}

// EntryFields are the descriptive fields shared by every kind of entry.
type EntryFields struct {
	Site   string
	Events []string
	Notes  string
}

// TimeFields give an entry's start and stop either as RFC 3339 instants or
// as local readings in the user's zone. The two forms cannot be mixed for
// the same end. StopDate defaults to StartDate.
type TimeFields struct {
	StartUTC  string
	StopUTC   string
	StartDate string
	StartTime string
	StopDate  string
	StopTime  string
}

func (f TimeFields) empty() bool {
	return f == TimeFields{}
}

// DurationFields describe a manual duration entry.
type DurationFields struct {
	Date    string
	Hours   int
	Minutes int
}

// Start begins a live entry at the current instant. A user can have only
// one running entry; a second Start fails with ErrActiveEntryExists.
func (s *EntryService) Start(ctx context.Context, user *domain.User, in EntryFields) (*domain.Entry, error) {
	if err := s.cleanFields(ctx, &in); err != nil {
		return nil, err
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	day, err := s.tz.ToLocalDate(now, Zone(user))
	if err != nil {
		return nil, err
	}

	entry := &domain.Entry{
		UserID:         user.ID,
		Site:           in.Site,
		StartUTC:       &now,
		StartLocalDate: day.String(),
		Notes:          in.Notes,
		Events:         in.Events,
	}
	if err := s.entries.StartExclusive(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrActiveEntryExists) {
			return nil, err
		}
		return nil, fmt.Errorf("start entry: %w", err)
	}
	return entry, nil
}

// Stop ends the user's running entry at the current instant.
func (s *EntryService) Stop(ctx context.Context, user *domain.User) (*domain.Entry, error) {
	entry, err := s.entries.GetActiveByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoActiveEntry
		}
		return nil, fmt.Errorf("get active entry: %w", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	entry.StopUTC = &now
	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("stop entry: %w", err)
	}
	return entry, nil
}

// Active returns the user's running entry, or ErrNoActiveEntry.
func (s *EntryService) Active(ctx context.Context, user *domain.User) (*domain.Entry, error) {
	entry, err := s.entries.GetActiveByUser(ctx, user.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoActiveEntry
	}
	return entry, err
}

// CreateTimed records a completed entry with both a start and a stop.
func (s *EntryService) CreateTimed(ctx context.Context, user *domain.User, in EntryFields, times TimeFields) (*domain.Entry, error) {
	if err := s.cleanFields(ctx, &in); err != nil {
		return nil, err
	}
	zone := Zone(user)
	start, stop, err := s.resolveTimes(times, zone)
	if err != nil {
		return nil, err
	}
	if start == nil || stop == nil {
		return nil, fmt.Errorf("%w: start and stop are required", domain.ErrInvalidInput)
	}
	if !stop.After(*start) {
		return nil, fmt.Errorf("%w: stop must be after start", domain.ErrInvalidInput)
	}
	day, err := s.tz.ToLocalDate(*start, zone)
	if err != nil {
		return nil, err
	}

	entry := &domain.Entry{
		UserID:         user.ID,
		Site:           in.Site,
		StartUTC:       start,
		StopUTC:        stop,
		StartLocalDate: day.String(),
		Notes:          in.Notes,
		Events:         in.Events,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return entry, nil
}

// CreateDuration records a manual entry: a local date and a positive
// duration, with no instants.
func (s *EntryService) CreateDuration(ctx context.Context, user *domain.User, in EntryFields, dur DurationFields) (*domain.Entry, error) {
	if err := s.cleanFields(ctx, &in); err != nil {
		return nil, err
	}
	day, minutes, err := resolveDuration(dur)
	if err != nil {
		return nil, err
	}

	entry := &domain.Entry{
		UserID:         user.ID,
		Site:           in.Site,
		StartLocalDate: day.String(),
		DurationMin:    &minutes,
		Notes:          in.Notes,
		Events:         in.Events,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	return entry, nil
}

// EntryPatch holds optional changes to an entry. Times and Duration are
// mutually exclusive: setting Times turns the entry into a timed one and
// drops any explicit duration, setting Duration turns it into a manual one
// and drops its instants.
type EntryPatch struct {
	Site     *string
	Events   *[]string
	Notes    *string
	Times    *TimeFields
	Duration *DurationFields
}

// Update applies patch to one of the user's entries.
func (s *EntryService) Update(ctx context.Context, user *domain.User, id int64, patch EntryPatch) (*domain.Entry, error) {
	entry, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if patch.Times != nil && patch.Duration != nil {
		return nil, fmt.Errorf("%w: give either times or a duration, not both", domain.ErrInvalidInput)
	}

	fields := EntryFields{Site: entry.Site, Events: entry.Events, Notes: entry.Notes}
	if patch.Site != nil {
		fields.Site = *patch.Site
	}
	if patch.Events != nil {
		fields.Events = *patch.Events
	}
	if patch.Notes != nil {
		fields.Notes = *patch.Notes
	}
	if err := s.cleanFields(ctx, &fields); err != nil {
		return nil, err
	}
	entry.Site, entry.Events, entry.Notes = fields.Site, fields.Events, fields.Notes

	zone := Zone(user)
	switch {
	case patch.Times != nil:
		start, stop, err := s.resolveTimes(*patch.Times, zone)
		if err != nil {
			return nil, err
		}
		if start == nil {
			start = entry.StartUTC
		}
		if stop == nil {
			stop = entry.StopUTC
		}
		if start == nil {
			return nil, fmt.Errorf("%w: start is required", domain.ErrInvalidInput)
		}
		if stop != nil && !stop.After(*start) {
			return nil, fmt.Errorf("%w: stop must be after start", domain.ErrInvalidInput)
		}
		day, err := s.tz.ToLocalDate(*start, zone)
		if err != nil {
			return nil, err
		}
		entry.StartUTC, entry.StopUTC = start, stop
		entry.StartLocalDate = day.String()
		entry.DurationMin = nil

	case patch.Duration != nil:
		dur := *patch.Duration
		if dur.Date == "" {
			d, ok, err := EffectiveLocalDate(s.tz, entry, zone)
			if err != nil {
				return nil, err
			}
			if ok {
				dur.Date = d.String()
			}
		}
		day, minutes, err := resolveDuration(dur)
		if err != nil {
			return nil, err
		}
		entry.StartUTC, entry.StopUTC = nil, nil
		entry.StartLocalDate = day.String()
		entry.DurationMin = &minutes
	}

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return entry, nil
}

// Get returns one of the user's entries. Entries of other users are
// reported as not found.
func (s *EntryService) Get(ctx context.Context, user *domain.User, id int64) (*domain.Entry, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.UserID != user.ID {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

// Delete removes one of the user's entries.
func (s *EntryService) Delete(ctx context.Context, user *domain.User, id int64) error {
	if _, err := s.Get(ctx, user, id); err != nil {
		return err
	}
	return s.entries.Delete(ctx, id)
}

// ListRecent returns the user's newest entries. limit is clamped to
// [1, MaxListLimit]; zero or less selects DefaultListLimit.
func (s *EntryService) ListRecent(ctx context.Context, user *domain.User, limit int) ([]EntryView, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	entries, err := s.entries.ListByUser(ctx, user.ID, domain.EntryFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return s.views(entries, Zone(user))
}

// Recent returns the entries whose local date falls in the user's recent
// logs window, newest first. An empty scope selects the user's saved one.
func (s *EntryService) Recent(ctx context.Context, user *domain.User, scope string, now time.Time) (*Report, error) {
	if scope == "" {
		scope = user.RecentLogsScope
	}
	if scope == "" {
		scope = string(civil.DefaultPreset)
	}
	p, err := civil.ParsePreset(scope, civil.RecentScopes)
	if err != nil {
		return nil, invalid(err)
	}
	return s.report(ctx, user, SearchQuery{Preset: string(p)}, now)
}

// SearchQuery selects entries for a report. Begin and End, when set,
// override the matching bound of the preset window. Events match when an
// entry carries any of them, ignoring case.
type SearchQuery struct {
	Preset string
	Begin  string
	End    string
	Site   string
	Events []string
}

// Report is a filtered, bucketed set of entries.
type Report struct {
	Preset  civil.Preset
	Range   civil.Range
	Entries []EntryView
	Totals  civil.Totals
}

// Search runs q against the user's entries. An empty preset selects the
// user's saved default range.
func (s *EntryService) Search(ctx context.Context, user *domain.User, q SearchQuery, now time.Time) (*Report, error) {
	if q.Preset == "" {
		q.Preset = user.SearchDefaultRange
	}
	if q.Preset == "" {
		q.Preset = string(civil.DefaultPreset)
	}
	if _, err := civil.ParsePreset(q.Preset, civil.SearchPresets); err != nil {
		return nil, invalid(err)
	}
	if q.Site != "" && !domain.ValidSite(q.Site) {
		return nil, fmt.Errorf("%w: unknown site %q", domain.ErrInvalidInput, q.Site)
	}
	return s.report(ctx, user, q, now)
}

func (s *EntryService) report(ctx context.Context, user *domain.User, q SearchQuery, now time.Time) (*Report, error) {
	zone := Zone(user)
	today, err := s.tz.ToLocalDate(now, zone)
	if err != nil {
		return nil, err
	}

	entries, err := s.entries.ListByUser(ctx, user.ID, domain.EntryFilter{Site: q.Site})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	all, err := s.views(entries, zone)
	if err != nil {
		return nil, err
	}

	var earliest, latest civil.Date
	for _, v := range all {
		if v.LocalDate == nil {
			continue
		}
		if earliest.IsZero() || v.LocalDate.Before(earliest) {
			earliest = *v.LocalDate
		}
		if latest.IsZero() || v.LocalDate.After(latest) {
			latest = *v.LocalDate
		}
	}

	preset := civil.Preset(q.Preset)
	rng := civil.PresetRange(preset, today, earliest, latest)
	if q.Begin != "" {
		d, err := civil.ParseDate(q.Begin)
		if err != nil {
			return nil, invalid(err)
		}
		rng.Begin = d
	}
	if q.End != "" {
		d, err := civil.ParseDate(q.End)
		if err != nil {
			return nil, invalid(err)
		}
		rng.End = d
	}
	if !rng.Begin.IsZero() && !rng.End.IsZero() && rng.End.Before(rng.Begin) {
		return nil, fmt.Errorf("%w: end %s is before begin %s", domain.ErrInvalidInput, rng.End, rng.Begin)
	}

	wanted := make(map[string]bool, len(q.Events))
	for _, name := range q.Events {
		wanted[foldName(name)] = true
	}

	out := &Report{Preset: preset, Range: rng, Entries: []EntryView{}}
	var dated []civil.Dated
	for _, v := range all {
		if v.LocalDate == nil || !rng.Contains(*v.LocalDate) {
			continue
		}
		if len(wanted) > 0 && !hasAnyEvent(v.Events, wanted) {
			continue
		}
		out.Entries = append(out.Entries, v)
		minutes := 0
		if v.DurationMin != nil {
			minutes = *v.DurationMin
		}
		dated = append(dated, civil.Dated{Date: *v.LocalDate, Minutes: minutes})
	}
	out.Totals = civil.WeeklyTotals(dated)
	return out, nil
}

// View projects a single entry into the user's zone.
func (s *EntryService) View(user *domain.User, e *domain.Entry) (EntryView, error) {
	return NewEntryView(s.tz, e, Zone(user))
}

func (s *EntryService) views(entries []domain.Entry, zone string) ([]EntryView, error) {
	out := make([]EntryView, 0, len(entries))
	for i := range entries {
		v, err := NewEntryView(s.tz, &entries[i], zone)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// resolveTimes turns f into instants. Either result is nil when that end
// was not given.
func (s *EntryService) resolveTimes(f TimeFields, zone string) (start, stop *time.Time, err error) {
	if f.empty() {
		return nil, nil, fmt.Errorf("%w: no start or stop given", domain.ErrInvalidInput)
	}
	if f.StartUTC != "" && (f.StartDate != "" || f.StartTime != "") {
		return nil, nil, fmt.Errorf("%w: give start as an instant or as a local date and time, not both", domain.ErrInvalidInput)
	}
	if f.StopUTC != "" && (f.StopDate != "" || f.StopTime != "") {
		return nil, nil, fmt.Errorf("%w: give stop as an instant or as a local date and time, not both", domain.ErrInvalidInput)
	}

	switch {
	case f.StartUTC != "":
		t, err := tzconv.ParseInstant(f.StartUTC)
		if err != nil {
			return nil, nil, err
		}
		start = &t
	case f.StartTime != "":
		t, err := s.localInstant(f.StartDate, f.StartTime, zone)
		if err != nil {
			return nil, nil, err
		}
		start = &t
	case f.StartDate != "":
		return nil, nil, fmt.Errorf("%w: start time is required with a start date", domain.ErrInvalidInput)
	}

	switch {
	case f.StopUTC != "":
		t, err := tzconv.ParseInstant(f.StopUTC)
		if err != nil {
			return nil, nil, err
		}
		stop = &t
	case f.StopTime != "":
		date := f.StopDate
		if date == "" {
			date = f.StartDate
		}
		t, err := s.localInstant(date, f.StopTime, zone)
		if err != nil {
			return nil, nil, err
		}
		stop = &t
	case f.StopDate != "":
		return nil, nil, fmt.Errorf("%w: stop time is required with a stop date", domain.ErrInvalidInput)
	}
	return start, stop, nil
}

func (s *EntryService) localInstant(date, clock, zone string) (time.Time, error) {
	if date == "" {
		return time.Time{}, fmt.Errorf("%w: a date is required with a local time", domain.ErrInvalidInput)
	}
	d, err := civil.ParseDate(date)
	if err != nil {
		return time.Time{}, invalid(err)
	}
	t, err := civil.ParseTime(clock)
	if err != nil {
		return time.Time{}, invalid(err)
	}
	return s.tz.ToInstant(d, t, zone)
}

func resolveDuration(f DurationFields) (civil.Date, int, error) {
	if f.Date == "" {
		return civil.Date{}, 0, fmt.Errorf("%w: date is required", domain.ErrInvalidInput)
	}
	day, err := civil.ParseDate(f.Date)
	if err != nil {
		return civil.Date{}, 0, invalid(err)
	}
	if f.Hours < 0 || f.Minutes < 0 {
		return civil.Date{}, 0, fmt.Errorf("%w: duration cannot be negative", domain.ErrInvalidInput)
	}
	minutes := f.Hours*60 + f.Minutes
	if minutes == 0 {
		return civil.Date{}, 0, fmt.Errorf("%w: duration must be positive", domain.ErrInvalidInput)
	}
	return day, minutes, nil
}

// cleanFields validates the site, trims notes and maps event names onto
// active event types.
func (s *EntryService) cleanFields(ctx context.Context, f *EntryFields) error {
	if !domain.ValidSite(f.Site) {
		return fmt.Errorf("%w: site must be %q or %q", domain.ErrInvalidInput, domain.SiteClinic, domain.SiteRemote)
	}
	f.Notes = strings.TrimSpace(f.Notes)
	if len(f.Notes) > maxNotes {
		return fmt.Errorf("%w: notes must be at most %d characters", domain.ErrInvalidInput, maxNotes)
	}
	events, err := s.events.Canonicalize(ctx, f.Events)
	if err != nil {
		return err
	}
	f.Events = events
	return nil
}

func hasAnyEvent(events []string, wanted map[string]bool) bool {
	for _, e := range events {
		if wanted[foldName(e)] {
			return true
		}
	}
	return false
}

// invalid marks a parse failure from a lower layer as bad input.
func invalid(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}
