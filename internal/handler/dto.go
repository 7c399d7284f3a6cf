package handler

import (
	"time"

	"github.com/msomdec/shift-clock/internal/civil"
	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/service"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

// UserDTO is the JSON representation of a user.
type UserDTO struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	TZ                 string `json:"tz"`
	Role               string `json:"role"`
	SearchDefaultRange string `json:"search_default_range"`
	RecentLogsScope    string `json:"recent_logs_scope"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:                 u.ID,
		Email:              u.Email,
		TZ:                 tzconv.ZoneOrDefault(u.TZ),
		Role:               u.Role,
		SearchDefaultRange: u.SearchDefaultRange,
		RecentLogsScope:    u.RecentLogsScope,
		CreatedAt:          u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          u.UpdatedAt.Format(time.RFC3339),
	}
}

// EventTypeDTO is the JSON representation of an event type.
type EventTypeDTO struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

func toEventTypeDTO(et *domain.EventType) EventTypeDTO {
	return EventTypeDTO{ID: et.ID, Name: et.Name, Active: et.Active}
}

// EntryDTO is the JSON representation of an entry projected into the
// user's zone. Instants use the YYYY-MM-DDTHH:MM:SS.sssZ form; civil values
// are YYYY-MM-DD and HH:MM.
type EntryDTO struct {
	ID            int64       `json:"id"`
	Site          string      `json:"site"`
	Events        []string    `json:"events"`
	Notes         string      `json:"notes"`
	StartUTC      *string     `json:"start_utc"`
	StopUTC       *string     `json:"stop_utc"`
	LocalDate     *civil.Date `json:"local_date"`
	WeekStart     *civil.Date `json:"week_start"`
	StartLocal    *civil.Time `json:"start_local"`
	StopLocal     *civil.Time `json:"stop_local"`
	StopLocalDate *civil.Date `json:"stop_local_date"`
	DurationMin   *int        `json:"duration_min"`
	Active        bool        `json:"active"`
	Manual        bool        `json:"manual"`
}

func toEntryDTO(v service.EntryView) EntryDTO {
	return EntryDTO{
		ID:            v.ID,
		Site:          v.Site,
		Events:        v.Events,
		Notes:         v.Notes,
		StartUTC:      instantOrNil(v.StartUTC),
		StopUTC:       instantOrNil(v.StopUTC),
		LocalDate:     v.LocalDate,
		WeekStart:     v.WeekStart,
		StartLocal:    v.StartLocal,
		StopLocal:     v.StopLocal,
		StopLocalDate: v.StopLocalDate,
		DurationMin:   v.DurationMin,
		Active:        v.Active,
		Manual:        v.Manual,
	}
}

func toEntryDTOs(views []service.EntryView) []EntryDTO {
	dtos := make([]EntryDTO, len(views))
	for i, v := range views {
		dtos[i] = toEntryDTO(v)
	}
	return dtos
}

func instantOrNil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := tzconv.FormatInstant(*t)
	return &s
}

func dateOrNil(d civil.Date) *civil.Date {
	if d.IsZero() {
		return nil
	}
	return &d
}

// WeekTotalDTO is the summed duration of one Sunday..Saturday week.
type WeekTotalDTO struct {
	Start   *civil.Date `json:"start"`
	End     *civil.Date `json:"end"`
	Minutes int         `json:"minutes"`
}

func toWeekTotalDTO(w civil.WeekTotal) WeekTotalDTO {
	return WeekTotalDTO{Start: dateOrNil(w.Start), End: dateOrNil(w.End), Minutes: w.Minutes}
}

// ReportDTO is the JSON representation of a search or recent-logs result.
type ReportDTO struct {
	Preset  string         `json:"preset"`
	Begin   *civil.Date    `json:"begin"`
	End     *civil.Date    `json:"end"`
	Entries []EntryDTO     `json:"entries"`
	Weeks   []WeekTotalDTO `json:"weeks"`
	Total   WeekTotalDTO   `json:"total"`
}

func toReportDTO(r *service.Report) ReportDTO {
	weeks := make([]WeekTotalDTO, len(r.Totals.Weeks))
	for i, w := range r.Totals.Weeks {
		weeks[i] = toWeekTotalDTO(w)
	}
	return ReportDTO{
		Preset:  string(r.Preset),
		Begin:   dateOrNil(r.Range.Begin),
		End:     dateOrNil(r.Range.End),
		Entries: toEntryDTOs(r.Entries),
		Weeks:   weeks,
		Total:   toWeekTotalDTO(r.Totals.Overall),
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	TZ       string `json:"tz" validate:"omitempty,ianazone"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type settingsRequest struct {
	TZ                 *string `json:"tz" validate:"omitempty,ianazone"`
	SearchDefaultRange *string `json:"search_default_range" validate:"omitempty,oneof=wtd wtd_prev prev_week all_weeks mtd mtd_prev prev_month all_months all_records"`
	RecentLogsScope    *string `json:"recent_logs_scope" validate:"omitempty,oneof=wtd wtd_prev mtd mtd_prev"`
}

type startRequest struct {
	Site   string   `json:"site" validate:"required,oneof=clinic remote"`
	Events []string `json:"events" validate:"max=50,dive,max=100"`
	Notes  string   `json:"notes" validate:"max=2000"`
}

func (r startRequest) fields() service.EntryFields {
	return service.EntryFields{Site: r.Site, Events: r.Events, Notes: r.Notes}
}

type timedRequest struct {
	startRequest
	StartUTC  string `json:"start_utc" validate:"omitempty,instant"`
	StopUTC   string `json:"stop_utc" validate:"omitempty,instant"`
	StartDate string `json:"start_date" validate:"omitempty,civildate"`
	StartTime string `json:"start_time" validate:"omitempty,civiltime"`
	StopDate  string `json:"stop_date" validate:"omitempty,civildate"`
	StopTime  string `json:"stop_time" validate:"omitempty,civiltime"`
}

func (r timedRequest) times() service.TimeFields {
	return service.TimeFields{
		StartUTC:  r.StartUTC,
		StopUTC:   r.StopUTC,
		StartDate: r.StartDate,
		StartTime: r.StartTime,
		StopDate:  r.StopDate,
		StopTime:  r.StopTime,
	}
}

type durationRequest struct {
	startRequest
	Date    string `json:"date" validate:"required,civildate"`
	Hours   int    `json:"hours" validate:"min=0,max=24"`
	Minutes int    `json:"minutes" validate:"min=0,max=1440"`
}

type entryPatchRequest struct {
	Site      *string   `json:"site" validate:"omitempty,oneof=clinic remote"`
	Events    *[]string `json:"events"`
	Notes     *string   `json:"notes" validate:"omitempty,max=2000"`
	StartUTC  *string   `json:"start_utc" validate:"omitempty,instant"`
	StopUTC   *string   `json:"stop_utc" validate:"omitempty,instant"`
	StartDate *string   `json:"start_date" validate:"omitempty,civildate"`
	StartTime *string   `json:"start_time" validate:"omitempty,civiltime"`
	StopDate  *string   `json:"stop_date" validate:"omitempty,civildate"`
	StopTime  *string   `json:"stop_time" validate:"omitempty,civiltime"`
	Date      *string   `json:"date" validate:"omitempty,civildate"`
	Hours     *int      `json:"hours" validate:"omitempty,min=0,max=24"`
	Minutes   *int      `json:"minutes" validate:"omitempty,min=0,max=1440"`
}

func (r entryPatchRequest) patch() service.EntryPatch {
	p := service.EntryPatch{Site: r.Site, Events: r.Events, Notes: r.Notes}
	if r.StartUTC != nil || r.StopUTC != nil || r.StartDate != nil || r.StartTime != nil || r.StopDate != nil || r.StopTime != nil {
		p.Times = &service.TimeFields{
			StartUTC:  deref(r.StartUTC),
			StopUTC:   deref(r.StopUTC),
			StartDate: deref(r.StartDate),
			StartTime: deref(r.StartTime),
			StopDate:  deref(r.StopDate),
			StopTime:  deref(r.StopTime),
		}
	}
	if r.Date != nil || r.Hours != nil || r.Minutes != nil {
		p.Duration = &service.DurationFields{Date: deref(r.Date)}
		if r.Hours != nil {
			p.Duration.Hours = *r.Hours
		}
		if r.Minutes != nil {
			p.Duration.Minutes = *r.Minutes
		}
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type eventTypeRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Active *bool  `json:"active"`
}

type eventTypePatchRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=100"`
	Active *bool   `json:"active"`
}
