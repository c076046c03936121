package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/souzalb/tv-senai/internal/models"
	"github.com/souzalb/tv-senai/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Ticket{}, err
	}
	defer tx.Rollback(ctx)

	var prefix string
	row := tx.QueryRow(ctx, `
		SELECT prefix
		FROM service_types
		WHERE service_type_id = $1
		FOR UPDATE
	`, input.ServiceTypeID)
	if err := row.Scan(&prefix); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrServiceTypeNotFound
		}
		return models.Ticket{}, err
	}

	// Daily per-service sequence. The service-type row lock above serializes
	// concurrent creates for the same service.
	var sequence int
	row = tx.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM tickets
		WHERE service_type_id = $1 AND created_at::date = $2::date
	`, input.ServiceTypeID, createdAt)
	if err := row.Scan(&sequence); err != nil {
		return models.Ticket{}, err
	}

	ticket := models.Ticket{
		TicketID:      uuid.NewString(),
		Number:        fmt.Sprintf("%s-%03d", prefix, sequence+1),
		Status:        models.StatusWaiting,
		ServiceTypeID: input.ServiceTypeID,
		CreatedAt:     createdAt,
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (ticket_id, number, status, service_type_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ticket.TicketID, ticket.Number, ticket.Status, ticket.ServiceTypeID, ticket.CreatedAt)
	if err != nil {
		return models.Ticket{}, err
	}
	if err := appendOutbox(ctx, tx, "tickets", "ticket.created", ticket); err != nil {
		return models.Ticket{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) CallTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return s.applyTicketAction(ctx, "call", input)
}

func (s *Store) CompleteTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return s.applyTicketAction(ctx, "complete", input)
}

func (s *Store) applyTicketAction(ctx context.Context, action string, input store.TicketActionInput) (models.Ticket, error) {
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Ticket{}, err
	}
	defer tx.Rollback(ctx)

	var ticket models.Ticket
	row := tx.QueryRow(ctx, `
		SELECT ticket_id, number, status, service_type_id, attendant_user_id, created_at, called_at
		FROM tickets
		WHERE ticket_id = $1
		FOR UPDATE
	`, input.TicketID)
	if err := row.Scan(&ticket.TicketID, &ticket.Number, &ticket.Status, &ticket.ServiceTypeID, &ticket.AttendantUserID, &ticket.CreatedAt, &ticket.CalledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, store.ErrTicketNotFound
		}
		return models.Ticket{}, err
	}
	if !store.ValidTransition(action, ticket.Status) {
		return models.Ticket{}, store.ErrInvalidState
	}

	eventType := "ticket.completed"
	switch action {
	case "call":
		eventType = "ticket.called"
		ticket.Status = models.StatusCalled
		ticket.CalledAt = &occurredAt
		if input.AttendantUserID != "" {
			attendant := input.AttendantUserID
			ticket.AttendantUserID = &attendant
		}
		_, err = tx.Exec(ctx, `
			UPDATE tickets
			SET status = $1, called_at = $2, attendant_user_id = $3
			WHERE ticket_id = $4
		`, ticket.Status, ticket.CalledAt, ticket.AttendantUserID, ticket.TicketID)
	case "complete":
		ticket.Status = models.StatusCompleted
		_, err = tx.Exec(ctx, `
			UPDATE tickets
			SET status = $1
			WHERE ticket_id = $2
		`, ticket.Status, ticket.TicketID)
	}
	if err != nil {
		return models.Ticket{}, err
	}
	if err := appendOutbox(ctx, tx, "tickets", eventType, ticket); err != nil {
		return models.Ticket{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	return ticket, nil
}

func (s *Store) ListTickets(ctx context.Context, query store.TicketQuery) ([]models.Ticket, error) {
	clauses := []string{"1=1"}
	args := []interface{}{}

	if !query.From.IsZero() {
		args = append(args, query.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !query.To.IsZero() {
		args = append(args, query.To)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if query.ServiceTypeID != "" {
		args = append(args, query.ServiceTypeID)
		clauses = append(clauses, fmt.Sprintf("service_type_id = $%d", len(args)))
	}
	if query.AttendantUserID != "" {
		args = append(args, query.AttendantUserID)
		clauses = append(clauses, fmt.Sprintf("attendant_user_id = $%d", len(args)))
	}
	if query.Search != "" {
		args = append(args, "%"+query.Search+"%")
		clauses = append(clauses, fmt.Sprintf("number ILIKE $%d", len(args)))
	}

	sql := `
		SELECT ticket_id, number, status, service_type_id, attendant_user_id, created_at, called_at
		FROM tickets
		WHERE ` + strings.Join(clauses, " AND ") + `
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var ticket models.Ticket
		if err := rows.Scan(&ticket.TicketID, &ticket.Number, &ticket.Status, &ticket.ServiceTypeID, &ticket.AttendantUserID, &ticket.CreatedAt, &ticket.CalledAt); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) CreateServiceType(ctx context.Context, serviceType models.ServiceType) (models.ServiceType, error) {
	if serviceType.ServiceTypeID == "" {
		serviceType.ServiceTypeID = uuid.NewString()
	}
	if serviceType.Prefix == "" && serviceType.Name != "" {
		serviceType.Prefix = strings.ToUpper(serviceType.Name[:1])
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.ServiceType{}, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO service_types (service_type_id, name, prefix)
		VALUES ($1, $2, $3)
	`, serviceType.ServiceTypeID, serviceType.Name, serviceType.Prefix)
	if err != nil {
		return models.ServiceType{}, err
	}
	if err := appendOutbox(ctx, tx, "service_types", "service_type.created", serviceType); err != nil {
		return models.ServiceType{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.ServiceType{}, err
	}
	return serviceType, nil
}

func (s *Store) DeleteServiceType(ctx context.Context, serviceTypeID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var count int
	row := tx.QueryRow(ctx, `SELECT COUNT(1) FROM tickets WHERE service_type_id = $1`, serviceTypeID)
	if err := row.Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return store.ErrServiceTypeInUse
	}

	tag, err := tx.Exec(ctx, `DELETE FROM service_types WHERE service_type_id = $1`, serviceTypeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrServiceTypeNotFound
	}
	if err := appendOutbox(ctx, tx, "service_types", "service_type.deleted", map[string]string{"service_type_id": serviceTypeID}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListServiceTypes(ctx context.Context) ([]models.ServiceType, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT service_type_id, name, prefix
		FROM service_types
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var serviceTypes []models.ServiceType
	for rows.Next() {
		var serviceType models.ServiceType
		if err := rows.Scan(&serviceType.ServiceTypeID, &serviceType.Name, &serviceType.Prefix); err != nil {
			return nil, err
		}
		serviceTypes = append(serviceTypes, serviceType)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return serviceTypes, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT profile_id, name, role, desk_info
		FROM profiles
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var profile models.Profile
		if err := rows.Scan(&profile.ProfileID, &profile.Name, &profile.Role, &profile.DeskInfo); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (s *Store) UpdateProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles
		SET name = $1, role = $2, desk_info = $3
		WHERE profile_id = $4
	`, profile.Name, profile.Role, profile.DeskInfo, profile.ProfileID)
	if err != nil {
		return models.Profile{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Profile{}, store.ErrProfileNotFound
	}
	return profile, nil
}
