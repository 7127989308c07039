package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/thumbscroll/internal/store"
)

// maxEventsLimit bounds the limit query parameter.
const maxEventsLimit = 500

// EventsHandler serves the recorded gesture events.
type EventsHandler struct {
	store *store.Store
}

// NewEventsHandler creates a new EventsHandler with the given store.
func NewEventsHandler(s *store.Store) *EventsHandler {
	return &EventsHandler{store: s}
}

// ServeHTTP routes /api/events and /api/events/{id}.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/events"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, id)
}

type eventResponse struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	StartedAt  string `json:"started_at"`
	EndedAt    string `json:"ended_at,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Ticks      int64  `json:"ticks"`
	Open       bool   `json:"open"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

func toEventResponse(e *store.Event) eventResponse {
	resp := eventResponse{
		ID:         e.ID,
		Label:      e.Label.String(),
		StartedAt:  e.StartedAt.Format(time.RFC3339Nano),
		DurationMs: e.Duration().Milliseconds(),
		Ticks:      e.Ticks,
		Open:       e.Open(),
	}
	if e.EndedAt != nil {
		resp.EndedAt = e.EndedAt.Format(time.RFC3339Nano)
	}
	return resp
}

// list handles GET /api/events?limit=N.
func (h *EventsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventsLimit)
	}

	events, err := h.store.Events().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{
		Events: make([]eventResponse, 0, len(events)),
	}
	for _, e := range events {
		response.Events = append(response.Events, toEventResponse(e))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/events/{id}.
func (h *EventsHandler) get(w http.ResponseWriter, id string) {
	e, err := h.store.Events().Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(e))
}
