package models

import "time"

const (
	OrientationLandscape = "landscape"
	OrientationPortrait  = "portrait"
)

const SlideTypeImage = "image"

type Display struct {
	DisplayID          string    `json:"display_id"`
	Name               string    `json:"name"`
	Location           string    `json:"location"`
	Width              int       `json:"width"`
	Height             int       `json:"height"`
	Orientation        string    `json:"orientation"`
	AssignedPlaylistID *string   `json:"assigned_playlist_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

type Playlist struct {
	PlaylistID string    `json:"playlist_id"`
	Name       string    `json:"name"`
	Slides     []Slide   `json:"slides,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Slide struct {
	SlideID         string `json:"slide_id"`
	PlaylistID      string `json:"playlist_id"`
	SlideType       string `json:"slide_type"`
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds"`
	SortOrder       int    `json:"sort_order"`
}
