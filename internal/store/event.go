package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/thumbscroll/internal/gesture"
)

// DefaultListLimit caps List when no positive limit is given.
const DefaultListLimit = 50

// Event is one held gesture: when scrolling started and, once the gesture
// was released, when it stopped and how many scroll calls were issued.
type Event struct {
	ID        string        `json:"id"`
	Label     gesture.Label `json:"label"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
	Ticks     int64         `json:"ticks"`
}

// Open reports whether the gesture is still held.
func (e *Event) Open() bool {
	return e.EndedAt == nil
}

// Duration returns how long the gesture was held, or 0 if it is still open.
func (e *Event) Duration() time.Duration {
	if e.EndedAt == nil {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt)
}

// EventRepository records gesture episodes.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Start opens a new event for an active label.
func (r *EventRepository) Start(label gesture.Label, at time.Time) (*Event, error) {
	if !label.Active() {
		return nil, fmt.Errorf("start event: label %s is not active", label)
	}

	e := &Event{
		ID:        uuid.New().String(),
		Label:     label,
		StartedAt: at,
	}

	_, err := r.db.Exec(
		`INSERT INTO gesture_events (id, label, started_at) VALUES (?, ?, ?)`,
		e.ID, label.String(), at,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	return e, nil
}

// Finish closes an open event.
func (r *EventRepository) Finish(id string, at time.Time, ticks int64) error {
	result, err := r.db.Exec(
		`UPDATE gesture_events SET ended_at = ?, ticks = ? WHERE id = ? AND ended_at IS NULL`,
		at, ticks, id,
	)
	if err != nil {
		return fmt.Errorf("finish event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Get retrieves an event by its ID.
func (r *EventRepository) Get(id string) (*Event, error) {
	row := r.db.QueryRow(
		`SELECT id, label, started_at, ended_at, ticks FROM gesture_events WHERE id = ?`,
		id,
	)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return e, nil
}

// List returns the most recent events first.
func (r *EventRepository) List(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(
		`SELECT id, label, started_at, ended_at, ticks FROM gesture_events
		 ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*Event, error) {
	var (
		e     Event
		label string
		ended sql.NullTime
	)
	if err := s.Scan(&e.ID, &label, &e.StartedAt, &ended, &e.Ticks); err != nil {
		return nil, err
	}

	l, err := gesture.ParseLabel(label)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	e.Label = l
	if ended.Valid {
		t := ended.Time
		e.EndedAt = &t
	}

	return &e, nil
}
