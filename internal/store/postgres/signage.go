package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/souzalb/tv-senai/internal/models"
	"github.com/souzalb/tv-senai/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateDisplay(ctx context.Context, display models.Display) (models.Display, error) {
	if display.DisplayID == "" {
		display.DisplayID = uuid.NewString()
	}
	display.CreatedAt = time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Display{}, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO displays (display_id, name, location, width, height, orientation, assigned_playlist_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, display.DisplayID, display.Name, display.Location, display.Width, display.Height, display.Orientation, display.AssignedPlaylistID, display.CreatedAt)
	if err != nil {
		return models.Display{}, err
	}
	if err := appendOutbox(ctx, tx, "displays", "display.created", display); err != nil {
		return models.Display{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Display{}, err
	}
	return display, nil
}

func (s *Store) GetDisplay(ctx context.Context, displayID string) (models.Display, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT display_id, name, location, width, height, orientation, assigned_playlist_id, created_at
		FROM displays
		WHERE display_id = $1
	`, displayID)
	display, err := scanDisplay(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Display{}, false, nil
		}
		return models.Display{}, false, err
	}
	return display, true, nil
}

func (s *Store) UpdateDisplay(ctx context.Context, display models.Display) (models.Display, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Display{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE displays
		SET name = $1, location = $2, width = $3, height = $4, orientation = $5
		WHERE display_id = $6
	`, display.Name, display.Location, display.Width, display.Height, display.Orientation, display.DisplayID)
	if err != nil {
		return models.Display{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Display{}, store.ErrDisplayNotFound
	}
	if err := appendOutbox(ctx, tx, "displays", "display.updated", display); err != nil {
		return models.Display{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Display{}, err
	}
	return display, nil
}

func (s *Store) DeleteDisplay(ctx context.Context, displayID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM displays WHERE display_id = $1`, displayID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDisplayNotFound
	}
	if err := appendOutbox(ctx, tx, "displays", "display.deleted", map[string]string{"display_id": displayID}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListDisplays(ctx context.Context) ([]models.Display, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT display_id, name, location, width, height, orientation, assigned_playlist_id, created_at
		FROM displays
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var displays []models.Display
	for rows.Next() {
		display, err := scanDisplay(rows)
		if err != nil {
			return nil, err
		}
		displays = append(displays, display)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return displays, nil
}

func (s *Store) AssignPlaylist(ctx context.Context, displayID string, playlistID *string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if playlistID != nil {
		var exists bool
		row := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM playlists WHERE playlist_id = $1)`, *playlistID)
		if err := row.Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrPlaylistNotFound
		}
	}

	tag, err := tx.Exec(ctx, `
		UPDATE displays
		SET assigned_playlist_id = $1
		WHERE display_id = $2
	`, playlistID, displayID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrDisplayNotFound
	}
	payload := map[string]interface{}{"display_id": displayID, "playlist_id": playlistID}
	if err := appendOutbox(ctx, tx, "displays", "display.assigned", payload); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error) {
	if playlist.PlaylistID == "" {
		playlist.PlaylistID = uuid.NewString()
	}
	playlist.CreatedAt = time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Playlist{}, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO playlists (playlist_id, name, created_at)
		VALUES ($1, $2, $3)
	`, playlist.PlaylistID, playlist.Name, playlist.CreatedAt)
	if err != nil {
		return models.Playlist{}, err
	}
	if err := appendOutbox(ctx, tx, "playlists", "playlist.created", playlist); err != nil {
		return models.Playlist{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

func (s *Store) GetPlaylist(ctx context.Context, playlistID string) (models.Playlist, bool, error) {
	var playlist models.Playlist
	row := s.pool.QueryRow(ctx, `
		SELECT playlist_id, name, created_at
		FROM playlists
		WHERE playlist_id = $1
	`, playlistID)
	if err := row.Scan(&playlist.PlaylistID, &playlist.Name, &playlist.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Playlist{}, false, nil
		}
		return models.Playlist{}, false, err
	}

	slides, err := s.listSlides(ctx, playlistID)
	if err != nil {
		return models.Playlist{}, false, err
	}
	playlist.Slides = slides
	return playlist, true, nil
}

func (s *Store) UpdatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Playlist{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE playlists
		SET name = $1
		WHERE playlist_id = $2
	`, playlist.Name, playlist.PlaylistID)
	if err != nil {
		return models.Playlist{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Playlist{}, store.ErrPlaylistNotFound
	}
	if err := appendOutbox(ctx, tx, "playlists", "playlist.updated", playlist); err != nil {
		return models.Playlist{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

// DeletePlaylist removes the playlist and its slides. Display assignments are
// left in place; readers resolve a dangling assignment as unassigned.
func (s *Store) DeletePlaylist(ctx context.Context, playlistID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM playlists WHERE playlist_id = $1`, playlistID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrPlaylistNotFound
	}
	if err := appendOutbox(ctx, tx, "playlists", "playlist.deleted", map[string]string{"playlist_id": playlistID}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT playlist_id, name, created_at
		FROM playlists
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(&playlist.PlaylistID, &playlist.Name, &playlist.CreatedAt); err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range playlists {
		slides, err := s.listSlides(ctx, playlists[i].PlaylistID)
		if err != nil {
			return nil, err
		}
		playlists[i].Slides = slides
	}
	return playlists, nil
}

func (s *Store) CreateSlide(ctx context.Context, slide models.Slide) (models.Slide, error) {
	if slide.SlideID == "" {
		slide.SlideID = uuid.NewString()
	}
	if slide.SlideType == "" {
		slide.SlideType = models.SlideTypeImage
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Slide{}, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	row := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM playlists WHERE playlist_id = $1)`, slide.PlaylistID)
	if err := row.Scan(&exists); err != nil {
		return models.Slide{}, err
	}
	if !exists {
		return models.Slide{}, store.ErrPlaylistNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO slides (slide_id, playlist_id, slide_type, url, duration_seconds, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, slide.SlideID, slide.PlaylistID, slide.SlideType, slide.URL, slide.DurationSeconds, slide.SortOrder)
	if err != nil {
		return models.Slide{}, err
	}
	if err := appendOutbox(ctx, tx, "slides", "slide.created", slide); err != nil {
		return models.Slide{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Slide{}, err
	}
	return slide, nil
}

func (s *Store) UpdateSlide(ctx context.Context, slide models.Slide) (models.Slide, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Slide{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE slides
		SET url = $1, duration_seconds = $2, sort_order = $3
		WHERE slide_id = $4
	`, slide.URL, slide.DurationSeconds, slide.SortOrder, slide.SlideID)
	if err != nil {
		return models.Slide{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Slide{}, store.ErrSlideNotFound
	}
	if err := appendOutbox(ctx, tx, "slides", "slide.updated", slide); err != nil {
		return models.Slide{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Slide{}, err
	}
	return slide, nil
}

func (s *Store) DeleteSlide(ctx context.Context, slideID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM slides WHERE slide_id = $1`, slideID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrSlideNotFound
	}
	if err := appendOutbox(ctx, tx, "slides", "slide.deleted", map[string]string{"slide_id": slideID}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ResolvePlayerView(ctx context.Context, displayID string) (store.PlayerView, bool, error) {
	display, found, err := s.GetDisplay(ctx, displayID)
	if err != nil || !found {
		return store.PlayerView{}, false, err
	}

	view := store.PlayerView{Display: display}
	if display.AssignedPlaylistID == nil {
		return view, true, nil
	}

	playlist, found, err := s.GetPlaylist(ctx, *display.AssignedPlaylistID)
	if err != nil {
		return store.PlayerView{}, false, err
	}
	if found {
		view.Playlist = &playlist
	}
	return view, true, nil
}

func (s *Store) listSlides(ctx context.Context, playlistID string) ([]models.Slide, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT slide_id, playlist_id, slide_type, url, duration_seconds, sort_order
		FROM slides
		WHERE playlist_id = $1
		ORDER BY sort_order ASC, slide_id ASC
	`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slides []models.Slide
	for rows.Next() {
		var slide models.Slide
		if err := rows.Scan(&slide.SlideID, &slide.PlaylistID, &slide.SlideType, &slide.URL, &slide.DurationSeconds, &slide.SortOrder); err != nil {
			return nil, err
		}
		slides = append(slides, slide)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return slides, nil
}

type displayScanner interface {
	Scan(dest ...interface{}) error
}

func scanDisplay(row displayScanner) (models.Display, error) {
	var display models.Display
	err := row.Scan(&display.DisplayID, &display.Name, &display.Location, &display.Width, &display.Height, &display.Orientation, &display.AssignedPlaylistID, &display.CreatedAt)
	return display, err
}
