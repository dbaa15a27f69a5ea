package data

import (
	"context"
	"database/sql"
	"time"
)

const EventTypeLike = "LIKE"

const (
	OperationAdd    = "ADD"
	OperationRemove = "REMOVE"
)

// Event is one entry of a user's activity feed.
type Event struct {
	ID        int64  `json:"event_id"`
	Timestamp int64  `json:"timestamp"`
	UserID    int64  `json:"user_id"`
	EventType string `json:"event_type"`
	Operation string `json:"operation"`
	EntityID  int64  `json:"entity_id"`
}

func NewLikeEvent(userID, filmID int64, operation string, at time.Time) Event {
	return Event{
		Timestamp: at.UnixMilli(),
		UserID:    userID,
		EventType: EventTypeLike,
		Operation: operation,
		EntityID:  filmID,
	}
}

type EventModel struct {
	DB *sql.DB
}

func NewEventModel(db *sql.DB) EventModel {
	return EventModel{DB: db}
}

func (m EventModel) Insert(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO events (created_at, user_id, event_type, operation, entity_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	args := []any{time.UnixMilli(event.Timestamp).UTC(), event.UserID, event.EventType, event.Operation, event.EntityID}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, args...).Scan(&event.ID)
	return mapWriteError(err)
}

func (m EventModel) GetForUser(ctx context.Context, userID int64) ([]Event, error) {
	query := `
		SELECT id, created_at, user_id, event_type, operation, entity_id
		FROM events
		WHERE user_id = $1
		ORDER BY id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			event     Event
			createdAt time.Time
		)
		err := rows.Scan(&event.ID, &createdAt, &event.UserID, &event.EventType, &event.Operation, &event.EntityID)
		if err != nil {
			return nil, err
		}
		event.Timestamp = createdAt.UnixMilli()
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
