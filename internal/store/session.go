package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is one run of the capture loop.
type Session struct {
	ID        string
	Camera    int
	Tracking  string
	Frames    int
	EndReason string
	StartedAt time.Time
	EndedAt   *time.Time
}

// SessionRepository provides access to recorded sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. StartedAt defaults to now.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}
	if sess.Tracking == "" {
		sess.Tracking = "shared"
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, camera, tracking, frames, end_reason, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Camera, sess.Tracking, sess.Frames, sess.EndReason, sess.StartedAt,
	)
	return err
}

// End marks a session finished.
func (r *SessionRepository) End(id string, endedAt time.Time, frames int, reason string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, end_reason = ? WHERE id = ?`,
		endedAt, frames, reason, id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, camera, tracking, frames, end_reason, started_at, ended_at
		 FROM sessions WHERE id = ?`,
		id,
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sess, err
}

// List returns the most recent sessions first, at most limit of them.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, camera, tracking, frames, end_reason, started_at, ended_at
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime
	if err := row.Scan(&sess.ID, &sess.Camera, &sess.Tracking, &sess.Frames, &sess.EndReason, &sess.StartedAt, &ended); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
