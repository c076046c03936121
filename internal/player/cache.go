package player

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/souzalb/tv-senai/internal/store"

	_ "modernc.org/sqlite"
)

// Cache persists the last good snapshot per display in a local SQLite file, so
// a restarted player can resume from its previous assignment before the first
// successful poll.
type Cache struct {
	db *sql.DB
}

func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			display_id TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			saved_at   TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Save(ctx context.Context, view store.PlayerView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO snapshots (display_id, payload, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT (display_id)
		DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
	`, view.Display.DisplayID, string(payload), time.Now().UTC())
	return err
}

func (c *Cache) Load(ctx context.Context, displayID string) (store.PlayerView, bool, error) {
	var payload string
	row := c.db.QueryRowContext(ctx, `
		SELECT payload
		FROM snapshots
		WHERE display_id = ?
	`, displayID)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.PlayerView{}, false, nil
		}
		return store.PlayerView{}, false, err
	}

	var view store.PlayerView
	if err := json.Unmarshal([]byte(payload), &view); err != nil {
		return store.PlayerView{}, false, err
	}
	return view, true, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
