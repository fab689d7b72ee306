package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Binding is a persisted key combination override for one gesture.
type Binding struct {
	Gesture   string
	Key       string
	Modifiers []string
	UpdatedAt time.Time
}

// BindingRepository provides CRUD operations for key bindings.
type BindingRepository struct {
	db *sql.DB
}

// Bindings returns the binding repository for this store.
func (s *Store) Bindings() *BindingRepository {
	return &BindingRepository{db: s.db}
}

// Upsert creates or replaces the binding for b.Gesture.
func (r *BindingRepository) Upsert(b *Binding) error {
	b.UpdatedAt = time.Now()

	mods := b.Modifiers
	if mods == nil {
		mods = []string{}
	}
	modsJSON, err := json.Marshal(mods)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO bindings (gesture, key, modifiers, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(gesture) DO UPDATE SET key = excluded.key, modifiers = excluded.modifiers, updated_at = excluded.updated_at`,
		b.Gesture, b.Key, string(modsJSON), b.UpdatedAt,
	)
	return err
}

// Get returns the binding for gesture.
func (r *BindingRepository) Get(gesture string) (*Binding, error) {
	row := r.db.QueryRow(
		`SELECT gesture, key, modifiers, updated_at FROM bindings WHERE gesture = ?`,
		gesture,
	)
	b, err := scanBinding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// List returns every stored binding ordered by gesture.
func (r *BindingRepository) List() ([]*Binding, error) {
	rows, err := r.db.Query(`SELECT gesture, key, modifiers, updated_at FROM bindings ORDER BY gesture`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []*Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

// Delete removes the override for gesture.
func (r *BindingRepository) Delete(gesture string) error {
	result, err := r.db.Exec(`DELETE FROM bindings WHERE gesture = ?`, gesture)
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

func scanBinding(row scanner) (*Binding, error) {
	b := &Binding{}
	var mods string
	if err := row.Scan(&b.Gesture, &b.Key, &mods, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(mods), &b.Modifiers); err != nil {
		return nil, err
	}
	return b, nil
}
