package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/service"
)

// EntryHandler handles the time entry API.
type EntryHandler struct {
	entries *service.EntryService
	bind    *binder
	now     func() time.Time
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(entries *service.EntryService, bind *binder) *EntryHandler {
	return &EntryHandler{entries: entries, bind: bind, now: time.Now}
}

// HandleStart starts a live entry.
// POST /api/entries/start
// Request:  {"site":"clinic","events":["Charting"],"notes":"..."}
// Response: 201 {"entry": {...}}, 409 if an entry is already running
func (h *EntryHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := h.bind.decode(r, &req); err != nil {
		writeServiceError(w, r, "decode start", err)
		return
	}

	user := UserFromContext(r.Context())
	entry, err := h.entries.Start(r.Context(), user, req.fields())
	if err != nil {
		writeServiceError(w, r, "start entry", err)
		return
	}
	h.writeEntry(w, r, http.StatusCreated, user, entry)
}

// HandleStop stops the running entry.
// POST /api/entries/stop
// Response: {"entry": {...}}, 404 if nothing is running
func (h *EntryHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	entry, err := h.entries.Stop(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, "stop entry", err)
		return
	}
	h.writeEntry(w, r, http.StatusOK, user, entry)
}

// HandleActive returns the running entry, or {"entry": null}.
// GET /api/entries/active
func (h *EntryHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	entry, err := h.entries.Active(r.Context(), user)
	if errors.Is(err, domain.ErrNoActiveEntry) {
		writeJSON(w, http.StatusOK, map[string]any{"entry": nil})
		return
	}
	if err != nil {
		writeServiceError(w, r, "get active entry", err)
		return
	}
	h.writeEntry(w, r, http.StatusOK, user, entry)
}

// HandleCreate records a completed entry from instants or local readings.
// POST /api/entries
// Request:  {"site":"remote","start_date":"2025-10-29","start_time":"09:00","stop_time":"17:00"}
// or {"site":"remote","start_utc":"...","stop_utc":"..."}
// Response: 201 {"entry": {...}}
func (h *EntryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req timedRequest
	if err := h.bind.decode(r, &req); err != nil {
		writeServiceError(w, r, "decode entry", err)
		return
	}

	user := UserFromContext(r.Context())
	entry, err := h.entries.CreateTimed(r.Context(), user, req.fields(), req.times())
	if err != nil {
		writeServiceError(w, r, "create entry", err)
		return
	}
	h.writeEntry(w, r, http.StatusCreated, user, entry)
}

// HandleCreateDuration records a manual duration entry.
// POST /api/entries/duration
// Request:  {"site":"clinic","date":"2025-10-29","hours":1,"minutes":30}
// Response: 201 {"entry": {...}}
func (h *EntryHandler) HandleCreateDuration(w http.ResponseWriter, r *http.Request) {
	var req durationRequest
	if err := h.bind.decode(r, &req); err != nil {
		writeServiceError(w, r, "decode duration entry", err)
		return
	}

	user := UserFromContext(r.Context())
	entry, err := h.entries.CreateDuration(r.Context(), user, req.fields(), service.DurationFields{
		Date:    req.Date,
		Hours:   req.Hours,
		Minutes: req.Minutes,
	})
	if err != nil {
		writeServiceError(w, r, "create duration entry", err)
		return
	}
	h.writeEntry(w, r, http.StatusCreated, user, entry)
}

// HandleList returns the newest entries.
// GET /api/entries?limit=20
// Response: {"entries": [...]}
func (h *EntryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number.")
			return
		}
		limit = n
	}

	views, err := h.entries.ListRecent(r.Context(), UserFromContext(r.Context()), limit)
	if err != nil {
		writeServiceError(w, r, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": toEntryDTOs(views)})
}

// HandleRecent returns the entries in the recent-logs window.
// GET /api/entries/recent?scope=wtd_prev
// Response: {"preset":..., "begin":..., "end":..., "entries": [...], "weeks": [...], "total": {...}}
func (h *EntryHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	report, err := h.entries.Recent(r.Context(), UserFromContext(r.Context()), r.URL.Query().Get("scope"), h.now())
	if err != nil {
		writeServiceError(w, r, "recent entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// HandleSearch filters entries by local date range, site and events.
// GET /api/entries/search?preset=mtd&begin=2025-10-01&end=2025-10-31&site=clinic&events=Charting,Meeting
// events may also be repeated.
func (h *EntryHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var events []string
	for _, v := range q["events"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				events = append(events, name)
			}
		}
	}

	report, err := h.entries.Search(r.Context(), UserFromContext(r.Context()), service.SearchQuery{
		Preset: q.Get("preset"),
		Begin:  q.Get("begin"),
		End:    q.Get("end"),
		Site:   q.Get("site"),
		Events: events,
	}, h.now())
	if err != nil {
		writeServiceError(w, r, "search entries", err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// HandleGet returns one entry.
// GET /api/entries/{id}
func (h *EntryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	user := UserFromContext(r.Context())
	entry, err := h.entries.Get(r.Context(), user, id)
	if err != nil {
		writeServiceError(w, r, "get entry", err)
		return
	}
	h.writeEntry(w, r, http.StatusOK, user, entry)
}

// HandleUpdate edits an entry. Omitted fields keep their values.
// PATCH /api/entries/{id}
func (h *EntryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	var req entryPatchRequest
	if err := h.bind.decode(r, &req); err != nil {
		writeServiceError(w, r, "decode entry patch", err)
		return
	}

	user := UserFromContext(r.Context())
	entry, err := h.entries.Update(r.Context(), user, id, req.patch())
	if err != nil {
		writeServiceError(w, r, "update entry", err)
		return
	}
	h.writeEntry(w, r, http.StatusOK, user, entry)
}

// HandleDelete removes an entry.
// DELETE /api/entries/{id}
// Response: 204 No Content
func (h *EntryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if err := h.entries.Delete(r.Context(), UserFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntryHandler) writeEntry(w http.ResponseWriter, r *http.Request, status int, user *domain.User, entry *domain.Entry) {
	view, err := h.entries.View(user, entry)
	if err != nil {
		writeServiceError(w, r, "project entry", err)
		return
	}
	writeJSON(w, status, map[string]any{"entry": toEntryDTO(view)})
}

func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid entry ID.")
		return 0, false
	}
	return id, true
}
