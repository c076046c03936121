package models

import "time"

const (
	StatusWaiting   = "waiting"
	StatusCalled    = "called"
	StatusCompleted = "completed"
)

const (
	RoleAttendant  = "attendant"
	RoleSuperAdmin = "super_admin"
	RoleViewer     = "viewer"
)

type Ticket struct {
	TicketID        string     `json:"ticket_id"`
	Number          string     `json:"number"`
	Status          string     `json:"status"`
	ServiceTypeID   string     `json:"service_type_id"`
	AttendantUserID *string    `json:"attendant_user_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CalledAt        *time.Time `json:"called_at,omitempty"`
}

type ServiceType struct {
	ServiceTypeID string `json:"service_type_id"`
	Name          string `json:"name"`
	Prefix        string `json:"prefix"`
}

type Profile struct {
	ProfileID string `json:"profile_id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	DeskInfo  string `json:"desk_info,omitempty"`
}
