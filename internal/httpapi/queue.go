package httpapi

import (
	"context"
	"encoding/csv"
	"expvar"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/souzalb/tv-senai/internal/announce"
	"github.com/souzalb/tv-senai/internal/metrics"
	"github.com/souzalb/tv-senai/internal/models"
	"github.com/souzalb/tv-senai/internal/store"
)

const dateLayout = "2006-01-02"

// EventPublisher fans ticket events out to the announcer. Publishing is
// best-effort: a broker outage must not fail the ticket write.
type EventPublisher interface {
	Publish(ctx context.Context, event announce.Event) error
}

type QueueHandler struct {
	store     store.TicketStore
	publisher EventPublisher
}

type QueueOptions struct {
	Publisher EventPublisher
}

func NewQueueHandler(store store.TicketStore, opts QueueOptions) *QueueHandler {
	return &QueueHandler{store: store, publisher: opts.Publisher}
}

func (h *QueueHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/api/tickets", h.handleTickets)
	mux.HandleFunc("/api/tickets/", h.handleTicketActions)
	mux.HandleFunc("/api/service-types", h.handleServiceTypes)
	mux.HandleFunc("/api/service-types/", h.handleServiceTypeByID)
	mux.HandleFunc("/api/profiles", h.handleProfiles)
	mux.HandleFunc("/api/profiles/", h.handleProfileByID)
	mux.HandleFunc("/api/metrics", h.handleMetrics)
	mux.HandleFunc("/api/history/export", h.handleExport)
	return mux
}

func (h *QueueHandler) handleTickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			ServiceTypeID string `json:"service_type_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if !isValidUUID(req.ServiceTypeID) {
			writeError(w, http.StatusBadRequest, "invalid_request", "service_type_id must be a UUID")
			return
		}
		ticket, err := h.store.CreateTicket(r.Context(), store.CreateTicketInput{ServiceTypeID: req.ServiceTypeID})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		h.publish(r.Context(), "ticket.created", ticket, "")
		writeJSON(w, http.StatusCreated, ticket)
	case http.MethodGet:
		// Full attendance history is restricted to super admins.
		if _, ok := requireSuperAdmin(w, r); !ok {
			return
		}
		tickets, err := h.store.ListTickets(r.Context(), store.TicketQuery{
			Search: strings.TrimSpace(r.URL.Query().Get("q")),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, tickets)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *QueueHandler) handleTicketActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ticketID, action, ok := splitIDPath(w, r.URL.Path, "/api/tickets/")
	if !ok {
		return
	}
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	switch action {
	case "call":
		ticket, err := h.store.CallTicket(r.Context(), store.TicketActionInput{
			TicketID:        ticketID,
			AttendantUserID: session.UserID,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		h.publish(r.Context(), "ticket.called", ticket, session.UserID)
		writeJSON(w, http.StatusOK, ticket)
	case "complete":
		ticket, err := h.store.CompleteTicket(r.Context(), store.TicketActionInput{
			TicketID:        ticketID,
			AttendantUserID: session.UserID,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		h.publish(r.Context(), "ticket.completed", ticket, session.UserID)
		writeJSON(w, http.StatusOK, ticket)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown action")
	}
}

func (h *QueueHandler) handleServiceTypes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		serviceTypes, err := h.store.ListServiceTypes(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, serviceTypes)
	case http.MethodPost:
		var req struct {
			Name   string `json:"name"`
			Prefix string `json:"prefix"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
			return
		}
		serviceType, err := h.store.CreateServiceType(r.Context(), models.ServiceType{
			Name:   strings.TrimSpace(req.Name),
			Prefix: strings.ToUpper(strings.TrimSpace(req.Prefix)),
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		writeJSON(w, http.StatusCreated, serviceType)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *QueueHandler) handleServiceTypeByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	serviceTypeID, action, ok := splitIDPath(w, r.URL.Path, "/api/service-types/")
	if !ok {
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}
	if err := h.store.DeleteServiceType(r.Context(), serviceTypeID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QueueHandler) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *QueueHandler) handleProfileByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireSuperAdmin(w, r); !ok {
		return
	}
	profileID, action, ok := splitIDPath(w, r.URL.Path, "/api/profiles/")
	if !ok {
		return
	}
	if action != "" {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Role     string `json:"role"`
		DeskInfo string `json:"desk_info"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Role != models.RoleAttendant && req.Role != models.RoleSuperAdmin && req.Role != models.RoleViewer {
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown role")
		return
	}
	profile, err := h.store.UpdateProfile(r.Context(), models.Profile{
		ProfileID: profileID,
		Name:      strings.TrimSpace(req.Name),
		Role:      req.Role,
		DeskInfo:  strings.TrimSpace(req.DeskInfo),
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleMetrics computes the dashboard snapshot. The whole ticket collection is
// fetched and the aggregation runs in memory, so filters cost nothing extra.
func (h *QueueHandler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	now := time.Now()
	from := now.AddDate(0, 0, -6)
	to := now
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "to must be YYYY-MM-DD")
			return
		}
		to = parsed
	}

	serviceFilter := strings.TrimSpace(query.Get("service_type_id"))
	if serviceFilter != "" && serviceFilter != metrics.FilterAll && !isValidUUID(serviceFilter) {
		writeError(w, http.StatusBadRequest, "invalid_request", "service_type_id must be a UUID or \"all\"")
		return
	}
	attendantFilter := strings.TrimSpace(query.Get("attendant_id"))
	if attendantFilter != "" && attendantFilter != metrics.FilterAll && !isValidUUID(attendantFilter) {
		writeError(w, http.StatusBadRequest, "invalid_request", "attendant_id must be a UUID or \"all\"")
		return
	}

	tickets, err := h.store.ListTickets(r.Context(), store.TicketQuery{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	serviceTypes, err := h.store.ListServiceTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	snapshot := metrics.Compute(metrics.Params{
		Tickets:       tickets,
		ServiceTypes:  serviceTypes,
		Profiles:      profiles,
		From:          from,
		To:            to,
		ServiceTypeID: serviceFilter,
		AttendantID:   attendantFilter,
		ViewerRole:    session.Role,
		ViewerID:      session.UserID,
	})
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *QueueHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireSuperAdmin(w, r); !ok {
		return
	}

	tickets, err := h.store.ListTickets(r.Context(), store.TicketQuery{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=history.csv")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"ticket_id", "number", "status", "service_type_id", "attendant_user_id", "created_at", "called_at"})
	for _, ticket := range tickets {
		attendant := ""
		if ticket.AttendantUserID != nil {
			attendant = *ticket.AttendantUserID
		}
		calledAt := ""
		if ticket.CalledAt != nil {
			calledAt = ticket.CalledAt.Format(time.RFC3339)
		}
		_ = writer.Write([]string{
			ticket.TicketID,
			ticket.Number,
			ticket.Status,
			ticket.ServiceTypeID,
			attendant,
			ticket.CreatedAt.Format(time.RFC3339),
			calledAt,
		})
	}
	writer.Flush()
}

// publish emits a ticket event enriched with display names for the announcer.
func (h *QueueHandler) publish(ctx context.Context, eventType string, ticket models.Ticket, attendantID string) {
	if h.publisher == nil {
		return
	}
	event := announce.Event{
		Type:       eventType,
		TicketID:   ticket.TicketID,
		Number:     ticket.Number,
		OccurredAt: time.Now().UTC(),
	}
	if serviceTypes, err := h.store.ListServiceTypes(ctx); err == nil {
		for _, serviceType := range serviceTypes {
			if serviceType.ServiceTypeID == ticket.ServiceTypeID {
				event.ServiceName = serviceType.Name
				break
			}
		}
	}
	if attendantID != "" {
		if profiles, err := h.store.ListProfiles(ctx); err == nil {
			for _, profile := range profiles {
				if profile.ProfileID == attendantID {
					event.AttendantName = profile.Name
					event.DeskInfo = profile.DeskInfo
					break
				}
			}
		}
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		log.Printf("publish %s error: %v", eventType, err)
	}
}
