package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/souzalb/tv-senai/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// appendOutbox records a change-feed event inside the caller's transaction so
// the event is never visible before the write it describes.
func appendOutbox(ctx context.Context, tx pgx.Tx, table, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, table_name, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), table, eventType, body, time.Now().UTC())
	return err
}

func (s *Store) ListOutboxEvents(ctx context.Context, after store.Offset, limit int) ([]store.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, table_name, event_type, payload, created_at
		FROM outbox_events
		WHERE (created_at, event_id) > ($1, $2)
		ORDER BY created_at ASC, event_id ASC
		LIMIT $3
	`, after.LastEventTime, after.LastEventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []store.OutboxEvent
	for rows.Next() {
		var event store.OutboxEvent
		if err := rows.Scan(&event.EventID, &event.Table, &event.Type, &event.Payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) GetOffset(ctx context.Context) (store.Offset, error) {
	var offset store.Offset
	row := s.pool.QueryRow(ctx, `
		SELECT last_event_time, last_event_id
		FROM realtime_offsets
		WHERE consumer = 'realtime'
	`)
	if err := row.Scan(&offset.LastEventTime, &offset.LastEventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Offset{}, nil
		}
		return store.Offset{}, err
	}
	return offset, nil
}

func (s *Store) UpdateOffset(ctx context.Context, offset store.Offset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO realtime_offsets (consumer, last_event_time, last_event_id)
		VALUES ('realtime', $1, $2)
		ON CONFLICT (consumer)
		DO UPDATE SET last_event_time = EXCLUDED.last_event_time, last_event_id = EXCLUDED.last_event_id
	`, offset.LastEventTime, offset.LastEventID)
	return err
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	var session store.Session
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, user_id, role, expires_at
		FROM sessions
		WHERE session_id = $1 AND expires_at > NOW()
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.UserID, &session.Role, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{}, err
	}
	return session, nil
}
