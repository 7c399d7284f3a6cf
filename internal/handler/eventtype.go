package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/msomdec/shift-clock/internal/service"
)

// EventTypeHandler serves the event type catalogue.
type EventTypeHandler struct {
	types *service.EventTypeService
	bind  *binder
}

// NewEventTypeHandler creates a new EventTypeHandler.
func NewEventTypeHandler(types *service.EventTypeService, bind *binder) *EventTypeHandler {
	return &EventTypeHandler{types: types, bind: bind}
}

// HandleList returns active event types; ?all=1 includes inactive ones.
// GET /api/event-types
func (h *EventTypeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "1"
	types, err := h.types.List(r.Context(), all)
	if err != nil {
		writeServiceError(w, r, "list event types", err)
		return
	}
	dtos := make([]EventTypeDTO, len(types))
	for i := range types {
		dtos[i] = toEventTypeDTO(&types[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_types": dtos})
}

// HandleCreate adds an event type.
// POST /api/event-types
// Request:  {"name":"Supervision","active":true}
func (h *EventTypeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req eventTypeRequest
	if err := h.bind.decode(r, &req); err != nil {
		writeServiceError(w, r, "decode event type", err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	et, err := h.types.Create(r.Context(), UserFromContext(r.Context()), req.Name, active)
	if err != nil {
		writeServiceError(w, r, "create event type", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"event_type": toEventTypeDTO(et)})
}

// HandleUpdate renames or (de)activates an event type.
// PATCH /api/event-types/{id}
func (h *EventTypeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid event type ID.")
		return
	}
	var req eventTypePatchRequest
	if err := h.bind.decode(r, &req); err != nil {
		writeServiceError(w, r, "decode event type patch", err)
		return
	}

	et, err := h.types.Update(r.Context(), UserFromContext(r.Context()), id, service.EventTypePatch{
		Name:   req.Name,
		Active: req.Active,
	})
	if err != nil {
		writeServiceError(w, r, "update event type", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event_type": toEventTypeDTO(et)})
}

