package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/souzalb/tv-senai/internal/models"
)

// PlayerView is the resolved snapshot a display player runs from. Playlist is
// nil when the display is unassigned or its assignment points at a playlist
// that no longer exists.
type PlayerView struct {
	Display  models.Display   `json:"display"`
	Playlist *models.Playlist `json:"playlist,omitempty"`
}

type SignageStore interface {
	CreateDisplay(ctx context.Context, display models.Display) (models.Display, error)
	GetDisplay(ctx context.Context, displayID string) (models.Display, bool, error)
	UpdateDisplay(ctx context.Context, display models.Display) (models.Display, error)
	DeleteDisplay(ctx context.Context, displayID string) error
	ListDisplays(ctx context.Context) ([]models.Display, error)
	AssignPlaylist(ctx context.Context, displayID string, playlistID *string) error

	CreatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error)
	GetPlaylist(ctx context.Context, playlistID string) (models.Playlist, bool, error)
	UpdatePlaylist(ctx context.Context, playlist models.Playlist) (models.Playlist, error)
	DeletePlaylist(ctx context.Context, playlistID string) error
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)

	CreateSlide(ctx context.Context, slide models.Slide) (models.Slide, error)
	UpdateSlide(ctx context.Context, slide models.Slide) (models.Slide, error)
	DeleteSlide(ctx context.Context, slideID string) error

	ResolvePlayerView(ctx context.Context, displayID string) (PlayerView, bool, error)
}

type CreateTicketInput struct {
	ServiceTypeID string
	CreatedAt     time.Time
}

type TicketActionInput struct {
	TicketID        string
	AttendantUserID string
	OccurredAt      time.Time
}

type TicketQuery struct {
	From            time.Time
	To              time.Time
	ServiceTypeID   string
	AttendantUserID string
	Search          string
}

type TicketStore interface {
	CreateTicket(ctx context.Context, input CreateTicketInput) (models.Ticket, error)
	CallTicket(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	CompleteTicket(ctx context.Context, input TicketActionInput) (models.Ticket, error)
	ListTickets(ctx context.Context, query TicketQuery) ([]models.Ticket, error)

	CreateServiceType(ctx context.Context, serviceType models.ServiceType) (models.ServiceType, error)
	DeleteServiceType(ctx context.Context, serviceTypeID string) error
	ListServiceTypes(ctx context.Context) ([]models.ServiceType, error)

	ListProfiles(ctx context.Context) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
}

type Session struct {
	SessionID string
	UserID    string
	Role      string
	ExpiresAt time.Time
}

type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (Session, error)
}

// OutboxEvent is one row of the change feed. Every write appends an event so
// connected clients can re-fetch the affected table.
type OutboxEvent struct {
	EventID   string          `json:"event_id"`
	Table     string          `json:"table"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type Offset struct {
	LastEventTime time.Time
	LastEventID   string
}

type OutboxStore interface {
	ListOutboxEvents(ctx context.Context, after Offset, limit int) ([]OutboxEvent, error)
	GetOffset(ctx context.Context) (Offset, error)
	UpdateOffset(ctx context.Context, offset Offset) error
}
