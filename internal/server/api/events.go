package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// EventHandler serves the gesture journal.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates a new EventHandler with the given store.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

type eventResponse struct {
	ID         int64  `json:"id"`
	SessionID  string `json:"session_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Hand       string `json:"hand,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

type listEventsResponse struct {
	Events []eventResponse `json:"events"`
}

func toEventResponse(e *store.Event) eventResponse {
	return eventResponse{
		ID:         e.ID,
		SessionID:  e.SessionID,
		Kind:       e.Kind,
		Name:       gesture.Kind(e.Kind).String(),
		Hand:       e.Hand,
		OccurredAt: formatTime(e.OccurredAt),
	}
}

// ServeHTTP handles GET /api/events. With ?session=ID it returns that
// session's events in order, otherwise the most recent events first.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		events []*store.Event
		err    error
	)
	if session := r.URL.Query().Get("session"); session != "" {
		events, err = h.store.Events().ListBySession(session)
	} else {
		limit, ok := queryLimit(r, defaultLimit, maxLimit)
		if !ok {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		events, err = h.store.Events().Recent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}

	response := listEventsResponse{Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		response.Events = append(response.Events, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, response)
}

// SessionHandler serves recorded sessions.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type sessionResponse struct {
	ID        string         `json:"id"`
	Camera    int            `json:"camera"`
	Tracking  string         `json:"tracking"`
	Frames    int            `json:"frames"`
	EndReason string         `json:"end_reason,omitempty"`
	StartedAt string         `json:"started_at"`
	EndedAt   string         `json:"ended_at,omitempty"`
	Gestures  map[string]int `json:"gestures,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Camera:    s.Camera,
		Tracking:  s.Tracking,
		Frames:    s.Frames,
		EndReason: s.EndReason,
		StartedAt: formatTime(s.StartedAt),
	}
	if s.EndedAt != nil {
		resp.EndedAt = formatTime(*s.EndedAt)
	}
	return resp
}

// ServeHTTP routes /api/sessions and /api/sessions/{id}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/sessions"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, r, id)
}

func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, defaultLimit, maxLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

// get returns one session with its gesture tally.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	counts, err := h.store.Events().CountByKind(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count gestures")
		return
	}

	resp := toSessionResponse(sess)
	resp.Gestures = counts
	writeJSON(w, http.StatusOK, resp)
}
