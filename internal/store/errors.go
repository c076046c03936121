package store

import "errors"

var (
	ErrDisplayNotFound     = errors.New("display not found")
	ErrPlaylistNotFound    = errors.New("playlist not found")
	ErrSlideNotFound       = errors.New("slide not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrServiceTypeNotFound = errors.New("service type not found")
	ErrServiceTypeInUse    = errors.New("service type has tickets")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidState        = errors.New("invalid ticket state")
)
