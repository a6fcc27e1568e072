package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/imuii-id/imuii-portal/pkg/auth"
	"github.com/imuii-id/imuii-portal/pkg/services"
)

// EventsHandler serves the public event pages and the caller's events.
type EventsHandler struct {
	events  *services.EventService
	respond *Responder
	logger  *zap.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(events *services.EventService, respond *Responder, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{events: events, respond: respond, logger: logger}
}

// RegisterRoutes registers the events handler's routes on the given mux.
func (h *EventsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/events", authMiddleware.OptionalAuth(h.List))
	mux.HandleFunc("GET /api/events/mine", authMiddleware.RequireAuth(h.Mine))
	mux.HandleFunc("GET /api/events/{eid}", authMiddleware.OptionalAuth(h.Detail))
}

// List handles GET /api/events?status&q&page&limit
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, ok := pagination(r)
	if !ok {
		h.respond.Fail(w, http.StatusBadRequest, "invalid_pagination", "page and limit must be positive integers")
		return
	}
	result, err := h.events.List(r.Context(), services.EventListQuery{
		Status: r.URL.Query().Get("status"),
		Query:  r.URL.Query().Get("q"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.respond.Error(w, r, err, "list events")
		return
	}
	h.respond.JSON(w, http.StatusOK, result)
}

// Mine handles GET /api/events/mine
func (h *EventsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.Mine(r.Context())
	if err != nil {
		h.respond.Error(w, r, err, "list my events")
		return
	}
	h.respond.JSON(w, http.StatusOK, map[string]any{"events": events})
}

// Detail handles GET /api/events/{eid}
// Returns the event together with its registered projects.
func (h *EventsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(r, "eid")
	if !ok {
		h.respond.Fail(w, http.StatusBadRequest, "invalid_event_id", "Invalid event ID")
		return
	}
	detail, err := h.events.Detail(r.Context(), eventID)
	if err != nil {
		h.respond.Error(w, r, err, "get event")
		return
	}
	h.respond.JSON(w, http.StatusOK, detail)
}
