package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/souzalb/tv-senai/internal/models"
	"github.com/souzalb/tv-senai/internal/store"
)

type fakeSignageStore struct {
	createDisplay     func(ctx context.Context, display models.Display) (models.Display, error)
	getDisplay        func(ctx context.Context, displayID string) (models.Display, bool, error)
	updateDisplay     func(ctx context.Context, display models.Display) (models.Display, error)
	deleteDisplay     func(ctx context.Context, displayID string) error
	listDisplays      func(ctx context.Context) ([]models.Display, error)
	assignPlaylist    func(ctx context.Context, displayID string, playlistID *string) error
	createPlaylist    func(ctx context.Context, playlist models.Playlist) (models.Playlist, error)
	getPlaylist       func(ctx context.Context, playlistID string) (models.Playlist, bool, error)
	updatePlaylist    func(ctx context.Context, playlist models.Playlist) (models.Playlist, error)
	deletePlaylist    func(ctx context.Context, playlistID string) error
	listPlaylists     func(ctx context.Context) ([]models.Playlist, error)
	createSlide       func(ctx context.Context, slide models.Slide) (models.Slide, error)
	updateSlide       func(ctx context.Context, slide models.Slide) (models.Slide, error)
	deleteSlide       func(ctx context.Context, slideID string) error
	resolvePlayerView func(ctx context.Context, displayID string) (store.PlayerView, bool, error)
}

func (f *fakeSignageStore) CreateDisplay(ctx context.Context, display models.Display) (models.Display, error) {
	return f.createDisplay(ctx, display)
}

func (f *fakeSignageStore) GetDisplay(ctx context.Context, displayID string) (models.Display, bool, error) {
	return f.getDisplay(ctx, displayID)
}

func (f *fakeSignageStore) UpdateDisplay(ctx context.Context, display models.Display) (models.Display, error) {
	return f.updateDisplay(ctx, display)
}

func (f *fakeSignageStore) DeleteDisplay(ctx context.Context, displayID string) error {
	return f.deleteDisplay(ctx, displayID)
}

func (f *fakeSignageStore) ListDisplays(ctx context.Context) ([]models.Display, error) {
	return f.listDisplays(ctx)
}

func (f *fakeSignageStore) AssignPlaylist(ctx context.Context, displayID string, playlistID *string) error {
	return f.assignPlaylist(ctx, displayID, playlistID)
}

func (f *fakeSignageStore) CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error) {
	return f.createPlaylist(ctx, playlist)
}

func (f *fakeSignageStore) GetPlaylist(ctx context.Context, playlistID string) (models.Playlist, bool, error) {
	return f.getPlaylist(ctx, playlistID)
}

func (f *fakeSignageStore) UpdatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error) {
	return f.updatePlaylist(ctx, playlist)
}

func (f *fakeSignageStore) DeletePlaylist(ctx context.Context, playlistID string) error {
	return f.deletePlaylist(ctx, playlistID)
}

func (f *fakeSignageStore) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return f.listPlaylists(ctx)
}

func (f *fakeSignageStore) CreateSlide(ctx context.Context, slide models.Slide) (models.Slide, error) {
	return f.createSlide(ctx, slide)
}

func (f *fakeSignageStore) UpdateSlide(ctx context.Context, slide models.Slide) (models.Slide, error) {
	return f.updateSlide(ctx, slide)
}

func (f *fakeSignageStore) DeleteSlide(ctx context.Context, slideID string) error {
	return f.deleteSlide(ctx, slideID)
}

func (f *fakeSignageStore) ResolvePlayerView(ctx context.Context, displayID string) (store.PlayerView, bool, error) {
	return f.resolvePlayerView(ctx, displayID)
}

const testDisplayID = "5f2c1d2a-6a7e-4e34-9a24-1f6dd1e2b9c0"
const testPlaylistID = "7a9d3e1c-2b4f-4c68-8d12-9e0fa3b5c7d1"

func TestCreateDisplay(t *testing.T) {
	fake := &fakeSignageStore{
		createDisplay: func(ctx context.Context, display models.Display) (models.Display, error) {
			display.DisplayID = testDisplayID
			return display, nil
		},
	}
	handler := NewSignageHandler(fake)

	body := `{"name":"Lobby TV","location":"Building A","width":1920,"height":1080,"orientation":"landscape"}`
	req := httptest.NewRequest(http.MethodPost, "/api/displays", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var created models.Display
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.DisplayID != testDisplayID {
		t.Fatalf("DisplayID = %q, want %q", created.DisplayID, testDisplayID)
	}
	if created.Name != "Lobby TV" {
		t.Fatalf("Name = %q, want Lobby TV", created.Name)
	}
}

func TestCreateDisplayValidation(t *testing.T) {
	handler := NewSignageHandler(&fakeSignageStore{})

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"name":"","width":1920,"height":1080,"orientation":"landscape"}`},
		{"zero width", `{"name":"TV","width":0,"height":1080,"orientation":"landscape"}`},
		{"bad orientation", `{"name":"TV","width":1920,"height":1080,"orientation":"diagonal"}`},
		{"unknown field", `{"name":"TV","width":1920,"height":1080,"orientation":"landscape","extra":true}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/displays", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.Routes().ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestGetDisplayNotFound(t *testing.T) {
	fake := &fakeSignageStore{
		getDisplay: func(ctx context.Context, displayID string) (models.Display, bool, error) {
			return models.Display{}, false, nil
		},
	}
	handler := NewSignageHandler(fake)

	req := httptest.NewRequest(http.MethodGet, "/api/displays/"+testDisplayID, nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "not_found" {
		t.Fatalf("error code = %q, want not_found", body.Error.Code)
	}
}

func TestDisplayIDMustBeUUID(t *testing.T) {
	handler := NewSignageHandler(&fakeSignageStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/displays/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAssignPlaylist(t *testing.T) {
	var gotDisplayID string
	var gotPlaylistID *string
	fake := &fakeSignageStore{
		assignPlaylist: func(ctx context.Context, displayID string, playlistID *string) error {
			gotDisplayID = displayID
			gotPlaylistID = playlistID
			return nil
		},
	}
	handler := NewSignageHandler(fake)

	body := `{"playlist_id":"` + testPlaylistID + `"}`
	req := httptest.NewRequest(http.MethodPut, "/api/displays/"+testDisplayID+"/playlist", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusNoContent, rec.Body.String())
	}
	if gotDisplayID != testDisplayID {
		t.Fatalf("displayID = %q, want %q", gotDisplayID, testDisplayID)
	}
	if gotPlaylistID == nil || *gotPlaylistID != testPlaylistID {
		t.Fatalf("playlistID = %v, want %q", gotPlaylistID, testPlaylistID)
	}
}

func TestUnassignPlaylist(t *testing.T) {
	var gotPlaylistID *string
	called := false
	fake := &fakeSignageStore{
		assignPlaylist: func(ctx context.Context, displayID string, playlistID *string) error {
			called = true
			gotPlaylistID = playlistID
			return nil
		},
	}
	handler := NewSignageHandler(fake)

	req := httptest.NewRequest(http.MethodPut, "/api/displays/"+testDisplayID+"/playlist", strings.NewReader(`{"playlist_id":null}`))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if !called {
		t.Fatal("AssignPlaylist was not called")
	}
	if gotPlaylistID != nil {
		t.Fatalf("playlistID = %q, want nil", *gotPlaylistID)
	}
}

func TestAssignMissingPlaylist(t *testing.T) {
	fake := &fakeSignageStore{
		assignPlaylist: func(ctx context.Context, displayID string, playlistID *string) error {
			return store.ErrPlaylistNotFound
		},
	}
	handler := NewSignageHandler(fake)

	body := `{"playlist_id":"` + testPlaylistID + `"}`
	req := httptest.NewRequest(http.MethodPut, "/api/displays/"+testDisplayID+"/playlist", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreateSlideValidation(t *testing.T) {
	handler := NewSignageHandler(&fakeSignageStore{})

	tests := []struct {
		name string
		body string
	}{
		{"missing url", `{"url":"","duration_seconds":10}`},
		{"zero duration", `{"url":"https://cdn.example.com/a.png","duration_seconds":0}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/playlists/"+testPlaylistID+"/slides", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.Routes().ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestPlayerViewUnassigned(t *testing.T) {
	fake := &fakeSignageStore{
		resolvePlayerView: func(ctx context.Context, displayID string) (store.PlayerView, bool, error) {
			return store.PlayerView{Display: models.Display{DisplayID: displayID, Name: "Lobby TV"}}, true, nil
		},
	}
	handler := NewSignageHandler(fake)

	req := httptest.NewRequest(http.MethodGet, "/api/player/displays/"+testDisplayID, nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var view store.PlayerView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.Playlist != nil {
		t.Fatalf("Playlist = %+v, want nil", view.Playlist)
	}
}

func TestPlayerViewNotFound(t *testing.T) {
	fake := &fakeSignageStore{
		resolvePlayerView: func(ctx context.Context, displayID string) (store.PlayerView, bool, error) {
			return store.PlayerView{}, false, nil
		},
	}
	handler := NewSignageHandler(fake)

	req := httptest.NewRequest(http.MethodGet, "/api/player/displays/"+testDisplayID, nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
