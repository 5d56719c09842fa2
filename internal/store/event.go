package store

import (
	"database/sql"
	"fmt"

	"github.com/camda/countdown/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventColumns = `id, title, location, anchor, color, text_color,
	recurrence, interval_count, interval_unit, day_of_month, month, week_of_month, weekday,
	completed_through, notify, notify_minutes_before, pinned, created_at, updated_at`

func (s *EventStore) Create(e *model.Event) (*model.Event, error) {
	result, err := s.db.Exec(
		`INSERT INTO events (title, location, anchor, color, text_color,
		 recurrence, interval_count, interval_unit, day_of_month, month, week_of_month, weekday,
		 completed_through, notify, notify_minutes_before, pinned)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Location, e.Anchor, e.Color, e.TextColor,
		e.Recurrence, e.IntervalCount, e.IntervalUnit,
		nullInt(e.DayOfMonth), nullInt(e.Month), nullInt(e.WeekOfMonth), nullInt(e.Weekday),
		nullString(e.CompletedThrough), boolInt(e.Notify), e.NotifyMinutesBefore, boolInt(e.Pinned),
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return e, nil
}

func (s *EventStore) List() ([]model.Event, error) {
	rows, err := s.db.Query(`SELECT ` + eventColumns + ` FROM events ORDER BY anchor ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ListNotifiable returns events with notifications enabled, for the
// reminder scheduler's poll loop.
func (s *EventStore) ListNotifiable() ([]model.Event, error) {
	rows, err := s.db.Query(`SELECT ` + eventColumns + ` FROM events WHERE notify = 1`)
	if err != nil {
		return nil, fmt.Errorf("query notifiable events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(id int64, e *model.Event) (*model.Event, error) {
	_, err := s.db.Exec(
		`UPDATE events
		 SET title = ?, location = ?, anchor = ?, color = ?, text_color = ?,
		     recurrence = ?, interval_count = ?, interval_unit = ?,
		     day_of_month = ?, month = ?, week_of_month = ?, weekday = ?,
		     completed_through = ?, notify = ?, notify_minutes_before = ?, pinned = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.Title, e.Location, e.Anchor, e.Color, e.TextColor,
		e.Recurrence, e.IntervalCount, e.IntervalUnit,
		nullInt(e.DayOfMonth), nullInt(e.Month), nullInt(e.WeekOfMonth), nullInt(e.Weekday),
		nullString(e.CompletedThrough), boolInt(e.Notify), e.NotifyMinutesBefore, boolInt(e.Pinned),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// SetCompletedThrough records the completion checkpoint for a recurring
// event. A nil checkpoint clears it, returning the event to its anchor.
func (s *EventStore) SetCompletedThrough(id int64, checkpoint *string) (*model.Event, error) {
	_, err := s.db.Exec(
		`UPDATE events SET completed_through = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		nullString(checkpoint), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set completed through: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) SetPinned(id int64, pinned bool) (*model.Event, error) {
	_, err := s.db.Exec(
		`UPDATE events SET pinned = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolInt(pinned), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set pinned: %w", err)
	}
	return s.GetByID(id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	var dayOfMonth, month, weekOfMonth, weekday sql.NullInt64
	var completedThrough sql.NullString
	var notifyInt, pinnedInt int

	err := row.Scan(
		&e.ID, &e.Title, &e.Location, &e.Anchor, &e.Color, &e.TextColor,
		&e.Recurrence, &e.IntervalCount, &e.IntervalUnit,
		&dayOfMonth, &month, &weekOfMonth, &weekday,
		&completedThrough, &notifyInt, &e.NotifyMinutesBefore, &pinnedInt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.DayOfMonth = intPtr(dayOfMonth)
	e.Month = intPtr(month)
	e.WeekOfMonth = intPtr(weekOfMonth)
	e.Weekday = intPtr(weekday)
	if completedThrough.Valid {
		e.CompletedThrough = &completedThrough.String
	}
	e.Notify = notifyInt != 0
	e.Pinned = pinnedInt != 0

	return &e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
