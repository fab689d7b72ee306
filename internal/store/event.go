package store

import (
	"database/sql"
	"time"
)

// Event is a journaled gesture.
type Event struct {
	ID         int64
	SessionID  string
	Kind       string
	Hand       string
	OccurredAt time.Time
}

// EventRepository provides access to journaled gestures.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create appends an event and sets its ID.
func (r *EventRepository) Create(e *Event) error {
	result, err := r.db.Exec(
		`INSERT INTO gesture_events (session_id, kind, hand, occurred_at) VALUES (?, ?, ?, ?)`,
		e.SessionID, e.Kind, e.Hand, e.OccurredAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// Recent returns the latest events first, at most limit of them.
func (r *EventRepository) Recent(limit int) ([]*Event, error) {
	return r.query(
		`SELECT id, session_id, kind, hand, occurred_at FROM gesture_events
		 ORDER BY occurred_at DESC, id DESC LIMIT ?`,
		limit,
	)
}

// ListBySession returns the events of one session in the order they happened.
func (r *EventRepository) ListBySession(sessionID string) ([]*Event, error) {
	return r.query(
		`SELECT id, session_id, kind, hand, occurred_at FROM gesture_events
		 WHERE session_id = ? ORDER BY occurred_at, id`,
		sessionID,
	)
}

// CountByKind tallies the events of one session per gesture kind.
func (r *EventRepository) CountByKind(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT kind, COUNT(*) FROM gesture_events WHERE session_id = ? GROUP BY kind`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func (r *EventRepository) query(q string, args ...any) ([]*Event, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Hand, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
