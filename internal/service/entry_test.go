package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/msomdec/shift-clock/internal/civil"
	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/repository/sqlstore"
	"github.com/msomdec/shift-clock/internal/service"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

// testNow is Wednesday 2025-10-29 21:31 in Los Angeles.
var testNow = time.Date(2025, 10, 30, 4, 31, 0, 0, time.UTC)

func newTestEntryService(t *testing.T) (*service.EntryService, *sqlstore.DB, *domain.User) {
	t.Helper()
	db := newTestDB(t)
	events := service.NewEventTypeService(db.EventTypes())
	if err := events.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	svc := service.NewEntryService(db.Entries(), events, tzconv.NewResolver(0)).
		WithClock(func() time.Time { return testNow })
	user := createUser(t, db, "clinician@example.com", domain.RoleUser, "America/Los_Angeles")
	return svc, db, user
}

func clinic(events ...string) service.EntryFields {
	return service.EntryFields{Site: domain.SiteClinic, Events: events}
}

func TestEntryService_StartStop(t *testing.T) {
	svc, _, user := newTestEntryService(t)
	ctx := context.Background()

	started, err := svc.Start(ctx, user, clinic("charting", "bogus"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !started.IsActive() {
		t.Fatal("expected started entry to be active")
	}
	if started.StartLocalDate != "2025-10-29" {
		t.Fatalf("expected local date 2025-10-29, got %q", started.StartLocalDate)
	}
	if diff := cmp.Diff([]string{"Charting"}, started.Events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.Start(ctx, user, clinic()); !errors.Is(err, domain.ErrActiveEntryExists) {
		t.Fatalf("expected ErrActiveEntryExists, got %v", err)
	}

	stopped, err := svc.Stop(ctx, user)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped.ID != started.ID || stopped.StopUTC == nil || stopped.IsActive() {
		t.Fatalf("unexpected stopped entry %+v", stopped)
	}
	if diff := cmp.Diff([]string{"Charting"}, stopped.Events); diff != "" {
		t.Fatalf("stop lost events (-want +got):\n%s", diff)
	}

	if _, err := svc.Stop(ctx, user); !errors.Is(err, domain.ErrNoActiveEntry) {
		t.Fatalf("expected ErrNoActiveEntry, got %v", err)
	}
	if _, err := svc.Active(ctx, user); !errors.Is(err, domain.ErrNoActiveEntry) {
		t.Fatalf("expected ErrNoActiveEntry from Active, got %v", err)
	}
}

func TestEntryService_Start_RejectsUnknownSite(t *testing.T) {
	svc, _, user := newTestEntryService(t)

	_, err := svc.Start(context.Background(), user, service.EntryFields{Site: "home"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEntryService_CreateTimed_LocalFields(t *testing.T) {
	svc, _, user := newTestEntryService(t)

	// The stop date differs from the start date: the shift crosses midnight.
	e, err := svc.CreateTimed(context.Background(), user, clinic(), service.TimeFields{
		StartDate: "2025-11-01",
		StartTime: "23:30",
		StopDate:  "2025-11-02",
		StopTime:  "00:30",
	})
	if err != nil {
		t.Fatalf("CreateTimed: %v", err)
	}
	if got := tzconv.FormatInstant(*e.StartUTC); got != "2025-11-02T06:30:00.000Z" {
		t.Fatalf("start = %s", got)
	}
	if got := tzconv.FormatInstant(*e.StopUTC); got != "2025-11-02T07:30:00.000Z" {
		t.Fatalf("stop = %s", got)
	}
	if e.StartLocalDate != "2025-11-01" {
		t.Fatalf("local date = %q", e.StartLocalDate)
	}

	v, err := svc.View(user, e)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.DurationMin == nil || *v.DurationMin != 60 {
		t.Fatalf("duration = %v, want 60", v.DurationMin)
	}
	if v.StopLocalDate == nil || v.StopLocalDate.String() != "2025-11-02" {
		t.Fatalf("stop local date = %v", v.StopLocalDate)
	}
}

func TestEntryService_CreateTimed_StopDateDefaultsToStartDate(t *testing.T) {
	svc, _, user := newTestEntryService(t)

	e, err := svc.CreateTimed(context.Background(), user, clinic(), service.TimeFields{
		StartDate: "2025-10-29",
		StartTime: "09:00",
		StopTime:  "17:15",
	})
	if err != nil {
		t.Fatalf("CreateTimed: %v", err)
	}
	if got := tzconv.FormatInstant(*e.StopUTC); got != "2025-10-30T00:15:00.000Z" {
		t.Fatalf("stop = %s", got)
	}
}

func TestEntryService_CreateTimed_Instants(t *testing.T) {
	svc, _, user := newTestEntryService(t)

	e, err := svc.CreateTimed(context.Background(), user, service.EntryFields{Site: domain.SiteRemote}, service.TimeFields{
		StartUTC: "2025-10-30T04:31:00Z",
		StopUTC:  "2025-10-30T05:01:29.999Z",
	})
	if err != nil {
		t.Fatalf("CreateTimed: %v", err)
	}
	if e.StartLocalDate != "2025-10-29" {
		t.Fatalf("local date = %q", e.StartLocalDate)
	}
	if got := service.EffectiveDurationMinutes(e); got == nil || *got != 30 {
		t.Fatalf("duration = %v, want 30", got)
	}
}

func TestEntryService_CreateTimed_Invalid(t *testing.T) {
	svc, _, user := newTestEntryService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		times service.TimeFields
	}{
		{"nothing", service.TimeFields{}},
		{"stop before start", service.TimeFields{StartDate: "2025-10-29", StartTime: "10:00", StopTime: "09:00"}},
		{"stop equals start", service.TimeFields{StartUTC: "2025-10-30T04:31:00Z", StopUTC: "2025-10-30T04:31:00Z"}},
		{"mixed start forms", service.TimeFields{StartUTC: "2025-10-30T04:31:00Z", StartDate: "2025-10-29", StartTime: "10:00", StopUTC: "2025-10-30T06:00:00Z"}},
		{"missing stop", service.TimeFields{StartDate: "2025-10-29", StartTime: "10:00"}},
		{"date without time", service.TimeFields{StartDate: "2025-10-29", StopTime: "11:00"}},
		{"bad time", service.TimeFields{StartDate: "2025-10-29", StartTime: "25:00", StopTime: "11:00"}},
		{"bad date", service.TimeFields{StartDate: "2025-02-30", StartTime: "10:00", StopTime: "11:00"}},
		{"bad instant", service.TimeFields{StartUTC: "yesterday", StopUTC: "2025-10-30T06:00:00Z"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := svc.CreateTimed(ctx, user, clinic(), c.times); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestEntryService_CreateDuration(t *testing.T) {
	svc, _, user := newTestEntryService(t)
	ctx := context.Background()

	e, err := svc.CreateDuration(ctx, user, clinic("Meeting"), service.DurationFields{Date: "2025-10-20", Hours: 1, Minutes: 30})
	if err != nil {
		t.Fatalf("CreateDuration: %v", err)
	}
	if !e.IsManualDuration() || e.DurationMin == nil || *e.DurationMin != 90 {
		t.Fatalf("unexpected manual entry %+v", e)
	}
	if e.IsActive() {
		t.Fatal("manual duration entry must not be active")
	}

	// A manual entry does not block a live start.
	if _, err := svc.Start(ctx, user, clinic()); err != nil {
		t.Fatalf("Start after manual entry: %v", err)
	}

	for _, dur := range []service.DurationFields{
		{Date: "2025-10-20"},
		{Date: "2025-10-20", Hours: -1, Minutes: 90},
		{Hours: 1},
		{Date: "10/20/2025", Hours: 1},
	} {
		if _, err := svc.CreateDuration(ctx, user, clinic(), dur); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("CreateDuration(%+v): expected ErrInvalidInput, got %v", dur, err)
		}
	}
}

func TestEntryService_Update(t *testing.T) {
	svc, _, user := newTestEntryService(t)
	ctx := context.Background()

	e, err := svc.CreateTimed(ctx, user, clinic("Charting"), service.TimeFields{
		StartDate: "2025-10-29", StartTime: "09:00", StopTime: "10:00",
	})
	if err != nil {
		t.Fatalf("CreateTimed: %v", err)
	}

	// Move only the stop; the start is kept.
	updated, err := svc.Update(ctx, user, e.ID, service.EntryPatch{
		Times: &service.TimeFields{StopUTC: "2025-10-29T18:00:00Z"},
	})
	if err != nil {
		t.Fatalf("Update stop: %v", err)
	}
	if !updated.StartUTC.Equal(*e.StartUTC) {
		t.Fatalf("start changed to %s", updated.StartUTC)
	}
	if got := service.EffectiveDurationMinutes(updated); got == nil || *got != 120 {
		t.Fatalf("duration = %v, want 120", got)
	}

	// Switch to a manual duration on the same day.
	updated, err = svc.Update(ctx, user, e.ID, service.EntryPatch{
		Duration: &service.DurationFields{Minutes: 45},
	})
	if err != nil {
		t.Fatalf("Update duration: %v", err)
	}
	if updated.StartUTC != nil || updated.StopUTC != nil {
		t.Fatal("expected instants to be cleared")
	}
	if updated.StartLocalDate != "2025-10-29" || *updated.DurationMin != 45 {
		t.Fatalf("unexpected manual entry %+v", updated)
	}

	notes := "  reviewed chart  "
	events := []string{"meeting"}
	updated, err = svc.Update(ctx, user, e.ID, service.EntryPatch{Notes: &notes, Events: &events})
	if err != nil {
		t.Fatalf("Update notes: %v", err)
	}
	if updated.Notes != "reviewed chart" {
		t.Fatalf("notes = %q", updated.Notes)
	}

	got, err := svc.Get(ctx, user, e.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if diff := cmp.Diff([]string{"Meeting"}, got.Events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	_, err = svc.Update(ctx, user, e.ID, service.EntryPatch{
		Times:    &service.TimeFields{StartUTC: "2025-10-29T16:00:00Z"},
		Duration: &service.DurationFields{Minutes: 10},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for both modes, got %v", err)
	}
}

func TestEntryService_OtherUsersEntriesAreHidden(t *testing.T) {
	svc, db, owner := newTestEntryService(t)
	ctx := context.Background()
	other := createUser(t, db, "other@example.com", domain.RoleUser, "UTC")

	e, err := svc.CreateDuration(ctx, owner, clinic(), service.DurationFields{Date: "2025-10-29", Hours: 1})
	if err != nil {
		t.Fatalf("CreateDuration: %v", err)
	}

	if _, err := svc.Get(ctx, other, e.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	notes := "x"
	if _, err := svc.Update(ctx, other, e.ID, service.EntryPatch{Notes: &notes}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, other, e.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete: expected ErrNotFound, got %v", err)
	}

	if err := svc.Delete(ctx, owner, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, owner, e.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after delete: expected ErrNotFound, got %v", err)
	}
}

func seedSearchEntries(t *testing.T, svc *service.EntryService, user *domain.User) {
	t.Helper()
	ctx := context.Background()
	manual := []struct {
		date    string
		minutes int
		site    string
		events  []string
	}{
		{"2025-10-29", 60, domain.SiteClinic, []string{"Charting"}},
		{"2025-10-20", 30, domain.SiteRemote, []string{"Meeting", "Charting"}},
		{"2025-10-18", 45, domain.SiteClinic, nil},
		{"2025-09-30", 15, domain.SiteClinic, []string{"Training"}},
	}
	for _, m := range manual {
		fields := service.EntryFields{Site: m.site, Events: m.events}
		if _, err := svc.CreateDuration(ctx, user, fields, service.DurationFields{Date: m.date, Minutes: m.minutes}); err != nil {
			t.Fatalf("CreateDuration(%s): %v", m.date, err)
		}
	}
	if _, err := svc.CreateTimed(ctx, user, service.EntryFields{Site: domain.SiteRemote, Events: []string{"Phone call"}}, service.TimeFields{
		StartDate: "2025-10-26", StartTime: "22:00", StopDate: "2025-10-27", StopTime: "00:20",
	}); err != nil {
		t.Fatalf("CreateTimed: %v", err)
	}
}

func reportDates(r *service.Report) []string {
	var out []string
	for _, v := range r.Entries {
		out = append(out, v.LocalDate.String())
	}
	return out
}

func TestEntryService_Search_DefaultPreset(t *testing.T) {
	svc, _, user := newTestEntryService(t)
	seedSearchEntries(t, svc, user)

	r, err := svc.Search(context.Background(), user, service.SearchQuery{}, testNow)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if r.Preset != civil.PresetWTDPrev {
		t.Fatalf("preset = %s", r.Preset)
	}
	if r.Range.Begin.String() != "2025-10-19" || r.Range.End.String() != "2025-10-29" {
		t.Fatalf("range = %s..%s", r.Range.Begin, r.Range.End)
	}
	if diff := cmp.Diff([]string{"2025-10-29", "2025-10-26", "2025-10-20"}, reportDates(r)); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	want := civil.Totals{
		Weeks: []civil.WeekTotal{
			{Start: civil.MustParseDate("2025-10-26"), End: civil.MustParseDate("2025-11-01"), Minutes: 200},
			{Start: civil.MustParseDate("2025-10-19"), End: civil.MustParseDate("2025-10-25"), Minutes: 30},
		},
		Overall: civil.WeekTotal{Start: civil.MustParseDate("2025-10-20"), End: civil.MustParseDate("2025-10-29"), Minutes: 230},
	}
	if diff := cmp.Diff(want, r.Totals); diff != "" {
		t.Fatalf("totals mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryService_Search_Filters(t *testing.T) {
	svc, _, user := newTestEntryService(t)
	seedSearchEntries(t, svc, user)
	ctx := context.Background()

	r, err := svc.Search(ctx, user, service.SearchQuery{Preset: "all_records", Events: []string{"CHARTING", "training"}}, testNow)
	if err != nil {
		t.Fatalf("Search events: %v", err)
	}
	if diff := cmp.Diff([]string{"2025-10-29", "2025-10-20", "2025-09-30"}, reportDates(r)); diff != "" {
		t.Fatalf("event filter mismatch (-want +got):\n%s", diff)
	}

	r, err = svc.Search(ctx, user, service.SearchQuery{Preset: "all_records", Site: domain.SiteRemote}, testNow)
	if err != nil {
		t.Fatalf("Search site: %v", err)
	}
	if diff := cmp.Diff([]string{"2025-10-26", "2025-10-20"}, reportDates(r)); diff != "" {
		t.Fatalf("site filter mismatch (-want +got):\n%s", diff)
	}

	r, err = svc.Search(ctx, user, service.SearchQuery{Preset: "prev_month"}, testNow)
	if err != nil {
		t.Fatalf("Search prev_month: %v", err)
	}
	if diff := cmp.Diff([]string{"2025-09-30"}, reportDates(r)); diff != "" {
		t.Fatalf("prev_month mismatch (-want +got):\n%s", diff)
	}

	r, err = svc.Search(ctx, user, service.SearchQuery{Preset: "wtd", Begin: "2025-10-18", End: "2025-10-20"}, testNow)
	if err != nil {
		t.Fatalf("Search explicit bounds: %v", err)
	}
	if diff := cmp.Diff([]string{"2025-10-20", "2025-10-18"}, reportDates(r)); diff != "" {
		t.Fatalf("explicit bounds mismatch (-want +got):\n%s", diff)
	}
}

func TestEntryService_Search_Invalid(t *testing.T) {
	svc, _, user := newTestEntryService(t)
	ctx := context.Background()

	for _, q := range []service.SearchQuery{
		{Preset: "fortnight"},
		{Site: "home"},
		{Begin: "2025-13-01"},
		{Begin: "2025-10-29", End: "2025-10-01"},
	} {
		if _, err := svc.Search(ctx, user, q, testNow); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("Search(%+v): expected ErrInvalidInput, got %v", q, err)
		}
	}
}

func TestEntryService_Recent(t *testing.T) {
	svc, _, user := newTestEntryService(t)
	seedSearchEntries(t, svc, user)
	ctx := context.Background()

	r, err := svc.Recent(ctx, user, "", testNow)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(r.Entries) != 3 {
		t.Fatalf("expected 3 entries in wtd_prev, got %v", reportDates(r))
	}

	r, err = svc.Recent(ctx, user, "mtd_prev", testNow)
	if err != nil {
		t.Fatalf("Recent mtd_prev: %v", err)
	}
	if len(r.Entries) != 5 {
		t.Fatalf("expected 5 entries in mtd_prev, got %v", reportDates(r))
	}

	if _, err := svc.Recent(ctx, user, "all_records", testNow); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for all_records, got %v", err)
	}
}

func TestEntryService_ListRecent(t *testing.T) {
	svc, _, user := newTestEntryService(t)
	seedSearchEntries(t, svc, user)

	views, err := svc.ListRecent(context.Background(), user, 2)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(views) != 2 || views[0].LocalDate.String() != "2025-10-29" {
		t.Fatalf("unexpected list %+v", views)
	}

	views, err = svc.ListRecent(context.Background(), user, 0)
	if err != nil {
		t.Fatalf("ListRecent default: %v", err)
	}
	if len(views) != 5 {
		t.Fatalf("expected all 5 entries, got %d", len(views))
	}
}
