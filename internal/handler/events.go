package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/session"
)

// EventHandler serves pickup games: listing, creating and joining them.
type EventHandler struct {
	session *session.Session
	logger  *slog.Logger
}

func NewEventHandler(s *session.Session, logger *slog.Logger) *EventHandler {
	return &EventHandler{session: s, logger: logger}
}

// createEventRequest is the "create game" form. scheduledAt is RFC 3339;
// the location fields are optional and default to the creator's city.
type createEventRequest struct {
	Title       string                `json:"title"`
	Sport       model.Sport           `json:"sport"`
	Description string                `json:"description"`
	Location    *eventLocationRequest `json:"location"`
	ScheduledAt time.Time             `json:"scheduledAt"`
	Capacity    int                   `json:"capacity"`
	MinLevel    model.ExperienceLevel `json:"minLevel"`
}

type eventLocationRequest struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// HandleList returns one of the event lists.
//
// HTTP: GET /api/events?filter=upcoming|mine|available
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	events, err := h.session.Events(userID, session.EventFilter(r.URL.Query().Get("filter")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleGet returns a single event.
//
// HTTP: GET /api/events/{id}
func (h *EventHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	ev, err := h.session.Event(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// HandleCreate schedules a game with the caller as its first player.
//
// HTTP: POST /api/events
// RESPONSE: 201 with the event
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req createEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	in := session.EventInput{
		Title:       req.Title,
		Sport:       req.Sport,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt,
		Capacity:    req.Capacity,
		MinLevel:    req.MinLevel,
	}
	if req.Location != nil {
		in.LocationName = req.Location.Name
		in.Latitude = req.Location.Latitude
		in.Longitude = req.Location.Longitude
	}

	ev, err := h.session.CreateEvent(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleJoin adds the caller to the roster.
//
// HTTP: POST /api/events/{id}/join
// RESPONSE: 200 with the updated event; 409 when full or already joined
func (h *EventHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	ev, err := h.session.JoinEvent(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
