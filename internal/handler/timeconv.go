package handler

import (
	"fmt"
	"net/http"

	"github.com/msomdec/shift-clock/internal/civil"
	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/service"
	"github.com/msomdec/shift-clock/internal/tzconv"
)

// TimeHandler exposes the civil time conversions so clients never do zone
// arithmetic themselves.
type TimeHandler struct {
	tz   *tzconv.Resolver
	bind *binder
}

// NewTimeHandler creates a new TimeHandler.
func NewTimeHandler(tz *tzconv.Resolver, bind *binder) *TimeHandler {
	return &TimeHandler{tz: tz, bind: bind}
}

type convertQuery struct {
	Date    string `json:"date" validate:"omitempty,civildate"`
	Time    string `json:"time" validate:"omitempty,civiltime"`
	Instant string `json:"instant" validate:"omitempty,instant"`
	TZ      string `json:"tz" validate:"omitempty,ianazone"`
}

type convertResponse struct {
	TZ            string     `json:"tz"`
	Instant       string     `json:"instant"`
	Date          civil.Date `json:"date"`
	Time          civil.Time `json:"time"`
	WeekStart     civil.Date `json:"week_start"`
	OffsetMinutes int        `json:"offset_minutes"`
}

// HandleConvert converts a local date and time to an instant, or an instant
// to a local date and time. tz defaults to the user's zone.
// GET /api/time/convert?date=2025-10-29&time=21:31&tz=America/Los_Angeles
// GET /api/time/convert?instant=2025-10-30T04:31:00Z
func (h *TimeHandler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := convertQuery{
		Date:    query.Get("date"),
		Time:    query.Get("time"),
		Instant: query.Get("instant"),
		TZ:      query.Get("tz"),
	}
	if err := h.bind.check(q); err != nil {
		writeServiceError(w, r, "convert time", err)
		return
	}
	zone := q.TZ
	if zone == "" {
		zone = service.Zone(UserFromContext(r.Context()))
	}

	resp := convertResponse{TZ: zone}
	var err error
	switch {
	case q.Instant != "" && q.Date == "" && q.Time == "":
		err = h.fromInstant(&resp, q.Instant)
	case q.Instant == "" && q.Date != "" && q.Time != "":
		err = h.fromLocal(&resp, q.Date, q.Time)
	default:
		writeError(w, http.StatusUnprocessableEntity, "Give either date and time, or instant.")
		return
	}
	if err != nil {
		writeServiceError(w, r, "convert time", err)
		return
	}
	resp.WeekStart = civil.WeekStart(resp.Date)
	writeJSON(w, http.StatusOK, resp)
}

func (h *TimeHandler) fromInstant(resp *convertResponse, instant string) error {
	at, err := tzconv.ParseInstant(instant)
	if err != nil {
		return err
	}
	resp.Instant = tzconv.FormatInstant(at)
	if resp.Date, resp.Time, err = h.tz.ToLocal(at, resp.TZ); err != nil {
		return err
	}
	resp.OffsetMinutes, err = h.tz.OffsetMinutes(at, resp.TZ)
	return err
}

func (h *TimeHandler) fromLocal(resp *convertResponse, date, clock string) error {
	var err error
	if resp.Date, err = civil.ParseDate(date); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if resp.Time, err = civil.ParseTime(clock); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	at, err := h.tz.ToInstant(resp.Date, resp.Time, resp.TZ)
	if err != nil {
		return err
	}
	resp.Instant = tzconv.FormatInstant(at)
	resp.OffsetMinutes, err = h.tz.OffsetMinutes(at, resp.TZ)
	return err
}
