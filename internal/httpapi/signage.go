package httpapi

import (
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"strings"

	"github.com/souzalb/tv-senai/internal/models"
	"github.com/souzalb/tv-senai/internal/store"
)

type SignageHandler struct {
	store store.SignageStore
}

func NewSignageHandler(store store.SignageStore) *SignageHandler {
	return &SignageHandler{store: store}
}

func (h *SignageHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/api/displays", h.handleDisplays)
	mux.HandleFunc("/api/displays/", h.handleDisplayByID)
	mux.HandleFunc("/api/playlists", h.handlePlaylists)
	mux.HandleFunc("/api/playlists/", h.handlePlaylistByID)
	mux.HandleFunc("/api/slides/", h.handleSlideByID)
	mux.HandleFunc("/api/player/displays/", h.handlePlayerDisplay)
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type displayRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Orientation string `json:"orientation"`
}

func (r displayRequest) validate() (string, bool) {
	if strings.TrimSpace(r.Name) == "" {
		return "name is required", false
	}
	if r.Width <= 0 || r.Height <= 0 {
		return "width and height must be positive", false
	}
	if r.Orientation != models.OrientationLandscape && r.Orientation != models.OrientationPortrait {
		return "orientation must be landscape or portrait", false
	}
	return "", true
}

func (h *SignageHandler) handleDisplays(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		displays, err := h.store.ListDisplays(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, displays)
	case http.MethodPost:
		var req displayRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if message, ok := req.validate(); !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", message)
			return
		}
		display, err := h.store.CreateDisplay(r.Context(), models.Display{
			Name:        strings.TrimSpace(req.Name),
			Location:    strings.TrimSpace(req.Location),
			Width:       req.Width,
			Height:      req.Height,
			Orientation: req.Orientation,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusCreated, display)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *SignageHandler) handleDisplayByID(w http.ResponseWriter, r *http.Request) {
	displayID, action, ok := splitIDPath(w, r.URL.Path, "/api/displays/")
	if !ok {
		return
	}

	if action == "playlist" {
		h.handleAssignPlaylist(w, r, displayID)
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		display, found, err := h.store.GetDisplay(r.Context(), displayID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "not_found", "display not found")
			return
		}
		writeJSON(w, http.StatusOK, display)
	case http.MethodPut:
		var req displayRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if message, ok := req.validate(); !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", message)
			return
		}
		display, err := h.store.UpdateDisplay(r.Context(), models.Display{
			DisplayID:   displayID,
			Name:        strings.TrimSpace(req.Name),
			Location:    strings.TrimSpace(req.Location),
			Width:       req.Width,
			Height:      req.Height,
			Orientation: req.Orientation,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, display)
	case http.MethodDelete:
		if err := h.store.DeleteDisplay(r.Context(), displayID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *SignageHandler) handleAssignPlaylist(w http.ResponseWriter, r *http.Request, displayID string) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		PlaylistID *string `json:"playlist_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PlaylistID != nil && !isValidUUID(*req.PlaylistID) {
		writeError(w, http.StatusBadRequest, "invalid_request", "playlist_id must be a UUID or null")
		return
	}
	if err := h.store.AssignPlaylist(r.Context(), displayID, req.PlaylistID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SignageHandler) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		playlists, err := h.store.ListPlaylists(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, playlists)
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		playlist, err := h.store.CreatePlaylist(r.Context(), models.Playlist{Name: strings.TrimSpace(req.Name)})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusCreated, playlist)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type slideRequest struct {
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds"`
	SortOrder       int    `json:"sort_order"`
}

func (r slideRequest) validate() (string, bool) {
	if strings.TrimSpace(r.URL) == "" {
		return "url is required", false
	}
	if r.DurationSeconds < 1 {
		return "duration_seconds must be at least 1", false
	}
	return "", true
}

func (h *SignageHandler) handlePlaylistByID(w http.ResponseWriter, r *http.Request) {
	playlistID, action, ok := splitIDPath(w, r.URL.Path, "/api/playlists/")
	if !ok {
		return
	}

	if action == "slides" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req slideRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if message, ok := req.validate(); !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", message)
			return
		}
		slide, err := h.store.CreateSlide(r.Context(), models.Slide{
			PlaylistID:      playlistID,
			SlideType:       models.SlideTypeImage,
			URL:             strings.TrimSpace(req.URL),
			DurationSeconds: req.DurationSeconds,
			SortOrder:       req.SortOrder,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, slide)
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		playlist, found, err := h.store.GetPlaylist(r.Context(), playlistID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "not_found", "playlist not found")
			return
		}
		writeJSON(w, http.StatusOK, playlist)
	case http.MethodPut:
		var req struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		playlist, err := h.store.UpdatePlaylist(r.Context(), models.Playlist{PlaylistID: playlistID, Name: strings.TrimSpace(req.Name)})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, playlist)
	case http.MethodDelete:
		if err := h.store.DeletePlaylist(r.Context(), playlistID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *SignageHandler) handleSlideByID(w http.ResponseWriter, r *http.Request) {
	slideID, action, ok := splitIDPath(w, r.URL.Path, "/api/slides/")
	if !ok {
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req slideRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if message, ok := req.validate(); !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", message)
			return
		}
		slide, err := h.store.UpdateSlide(r.Context(), models.Slide{
			SlideID:         slideID,
			URL:             strings.TrimSpace(req.URL),
			DurationSeconds: req.DurationSeconds,
			SortOrder:       req.SortOrder,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, slide)
	case http.MethodDelete:
		if err := h.store.DeleteSlide(r.Context(), slideID); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *SignageHandler) handlePlayerDisplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	displayID, action, ok := splitIDPath(w, r.URL.Path, "/api/player/displays/")
	if !ok {
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	view, found, err := h.store.ResolvePlayerView(r.Context(), displayID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "display not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// splitIDPath extracts "{uuid}" or "{uuid}/{action}" after the prefix.
func splitIDPath(w http.ResponseWriter, path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	id = parts[0]
	if len(parts) == 2 {
		action = parts[1]
	}
	if !isValidUUID(id) {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a UUID")
		return "", "", false
	}
	return id, action, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrDisplayNotFound),
		errors.Is(err, store.ErrPlaylistNotFound),
		errors.Is(err, store.ErrSlideNotFound),
		errors.Is(err, store.ErrTicketNotFound),
		errors.Is(err, store.ErrServiceTypeNotFound),
		errors.Is(err, store.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrServiceTypeInUse):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, store.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
