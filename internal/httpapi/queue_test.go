package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/souzalb/tv-senai/internal/announce"
	"github.com/souzalb/tv-senai/internal/metrics"
	"github.com/souzalb/tv-senai/internal/models"
	"github.com/souzalb/tv-senai/internal/store"
)

type fakeTicketStore struct {
	createTicket      func(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error)
	callTicket        func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error)
	completeTicket    func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error)
	listTickets       func(ctx context.Context, query store.TicketQuery) ([]models.Ticket, error)
	createServiceType func(ctx context.Context, serviceType models.ServiceType) (models.ServiceType, error)
	deleteServiceType func(ctx context.Context, serviceTypeID string) error
	listServiceTypes  func(ctx context.Context) ([]models.ServiceType, error)
	listProfiles      func(ctx context.Context) ([]models.Profile, error)
	updateProfile     func(ctx context.Context, profile models.Profile) (models.Profile, error)
}

func (f *fakeTicketStore) CreateTicket(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
	return f.createTicket(ctx, input)
}

func (f *fakeTicketStore) CallTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return f.callTicket(ctx, input)
}

func (f *fakeTicketStore) CompleteTicket(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	return f.completeTicket(ctx, input)
}

func (f *fakeTicketStore) ListTickets(ctx context.Context, query store.TicketQuery) ([]models.Ticket, error) {
	return f.listTickets(ctx, query)
}

func (f *fakeTicketStore) CreateServiceType(ctx context.Context, serviceType models.ServiceType) (models.ServiceType, error) {
	return f.createServiceType(ctx, serviceType)
}

func (f *fakeTicketStore) DeleteServiceType(ctx context.Context, serviceTypeID string) error {
	return f.deleteServiceType(ctx, serviceTypeID)
}

func (f *fakeTicketStore) ListServiceTypes(ctx context.Context) ([]models.ServiceType, error) {
	if f.listServiceTypes == nil {
		return nil, nil
	}
	return f.listServiceTypes(ctx)
}

func (f *fakeTicketStore) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	if f.listProfiles == nil {
		return nil, nil
	}
	return f.listProfiles(ctx)
}

func (f *fakeTicketStore) UpdateProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	return f.updateProfile(ctx, profile)
}

type fakePublisher struct {
	events []announce.Event
}

func (p *fakePublisher) Publish(ctx context.Context, event announce.Event) error {
	p.events = append(p.events, event)
	return nil
}

const (
	testTicketID      = "0c9d7f3e-1a2b-4c5d-8e6f-7a8b9c0d1e2f"
	testServiceTypeID = "3e4f5a6b-7c8d-4e9f-a0b1-c2d3e4f5a6b7"
	testAttendantID   = "9a8b7c6d-5e4f-4a3b-92c1-d0e1f2a3b4c5"
)

func withSession(r *http.Request, role, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), authContextKey{}, authInfo{Session: store.Session{
		SessionID: "sess-1",
		UserID:    userID,
		Role:      role,
	}})
	return r.WithContext(ctx)
}

func TestCreateTicketPublishesEvent(t *testing.T) {
	fake := &fakeTicketStore{
		createTicket: func(ctx context.Context, input store.CreateTicketInput) (models.Ticket, error) {
			return models.Ticket{
				TicketID:      testTicketID,
				Number:        "G-001",
				Status:        models.StatusWaiting,
				ServiceTypeID: input.ServiceTypeID,
				CreatedAt:     time.Now(),
			}, nil
		},
		listServiceTypes: func(ctx context.Context) ([]models.ServiceType, error) {
			return []models.ServiceType{{ServiceTypeID: testServiceTypeID, Name: "General", Prefix: "G"}}, nil
		},
	}
	publisher := &fakePublisher{}
	handler := NewQueueHandler(fake, QueueOptions{Publisher: publisher})

	body := `{"service_type_id":"` + testServiceTypeID + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tickets", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.events))
	}
	event := publisher.events[0]
	if event.Type != "ticket.created" {
		t.Fatalf("event type = %q, want ticket.created", event.Type)
	}
	if event.Number != "G-001" {
		t.Fatalf("event number = %q, want G-001", event.Number)
	}
	if event.ServiceName != "General" {
		t.Fatalf("event service = %q, want General", event.ServiceName)
	}
}

func TestCallTicketUsesSessionAttendant(t *testing.T) {
	var gotInput store.TicketActionInput
	fake := &fakeTicketStore{
		callTicket: func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
			gotInput = input
			attendant := input.AttendantUserID
			now := time.Now()
			return models.Ticket{
				TicketID:        input.TicketID,
				Number:          "G-002",
				Status:          models.StatusCalled,
				ServiceTypeID:   testServiceTypeID,
				AttendantUserID: &attendant,
				CreatedAt:       now.Add(-time.Minute),
				CalledAt:        &now,
			}, nil
		},
		listProfiles: func(ctx context.Context) ([]models.Profile, error) {
			return []models.Profile{{ProfileID: testAttendantID, Name: "Ana", Role: models.RoleAttendant, DeskInfo: "Desk 3"}}, nil
		},
	}
	publisher := &fakePublisher{}
	handler := NewQueueHandler(fake, QueueOptions{Publisher: publisher})

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/"+testTicketID+"/call", nil)
	req = withSession(req, models.RoleAttendant, testAttendantID)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotInput.AttendantUserID != testAttendantID {
		t.Fatalf("attendant = %q, want %q", gotInput.AttendantUserID, testAttendantID)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.events))
	}
	if publisher.events[0].DeskInfo != "Desk 3" {
		t.Fatalf("desk = %q, want Desk 3", publisher.events[0].DeskInfo)
	}
}

func TestCallTicketRequiresSession(t *testing.T) {
	handler := NewQueueHandler(&fakeTicketStore{}, QueueOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/"+testTicketID+"/call", nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestCompleteTicketInvalidState(t *testing.T) {
	fake := &fakeTicketStore{
		completeTicket: func(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
			return models.Ticket{}, store.ErrInvalidState
		},
	}
	handler := NewQueueHandler(fake, QueueOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/tickets/"+testTicketID+"/complete", nil)
	req = withSession(req, models.RoleAttendant, testAttendantID)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestTicketHistoryRequiresSuperAdmin(t *testing.T) {
	fake := &fakeTicketStore{
		listTickets: func(ctx context.Context, query store.TicketQuery) ([]models.Ticket, error) {
			return nil, nil
		},
	}
	handler := NewQueueHandler(fake, QueueOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	req = withSession(req, models.RoleAttendant, testAttendantID)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestDeleteServiceTypeInUse(t *testing.T) {
	fake := &fakeTicketStore{
		deleteServiceType: func(ctx context.Context, serviceTypeID string) error {
			return store.ErrServiceTypeInUse
		},
	}
	handler := NewQueueHandler(fake, QueueOptions{})

	req := httptest.NewRequest(http.MethodDelete, "/api/service-types/"+testServiceTypeID, nil)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestUpdateProfileRequiresSuperAdmin(t *testing.T) {
	handler := NewQueueHandler(&fakeTicketStore{}, QueueOptions{})

	body := `{"name":"Ana","role":"attendant","desk_info":"Desk 1"}`
	req := httptest.NewRequest(http.MethodPut, "/api/profiles/"+testAttendantID, strings.NewReader(body))
	req = withSession(req, models.RoleAttendant, testAttendantID)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestUpdateProfileRejectsUnknownRole(t *testing.T) {
	handler := NewQueueHandler(&fakeTicketStore{}, QueueOptions{})

	body := `{"name":"Ana","role":"owner","desk_info":""}`
	req := httptest.NewRequest(http.MethodPut, "/api/profiles/"+testAttendantID, strings.NewReader(body))
	req = withSession(req, models.RoleSuperAdmin, testAttendantID)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestStatsRestrictsAttendantView(t *testing.T) {
	otherAttendant := "1f2e3d4c-5b6a-4978-8695-a4b3c2d1e0f9"
	now := time.Now()
	calledNow := now
	fake := &fakeTicketStore{
		listTickets: func(ctx context.Context, query store.TicketQuery) ([]models.Ticket, error) {
			mine := testAttendantID
			other := otherAttendant
			return []models.Ticket{
				{TicketID: "t1", Number: "G-001", Status: models.StatusCompleted, ServiceTypeID: testServiceTypeID, AttendantUserID: &mine, CreatedAt: now.Add(-10 * time.Minute), CalledAt: &calledNow},
				{TicketID: "t2", Number: "G-002", Status: models.StatusCompleted, ServiceTypeID: testServiceTypeID, AttendantUserID: &other, CreatedAt: now.Add(-10 * time.Minute), CalledAt: &calledNow},
			}, nil
		},
		listServiceTypes: func(ctx context.Context) ([]models.ServiceType, error) {
			return []models.ServiceType{{ServiceTypeID: testServiceTypeID, Name: "General", Prefix: "G"}}, nil
		},
		listProfiles: func(ctx context.Context) ([]models.Profile, error) {
			return []models.Profile{
				{ProfileID: testAttendantID, Name: "Ana", Role: models.RoleAttendant},
				{ProfileID: otherAttendant, Name: "Bia", Role: models.RoleAttendant},
			}, nil
		},
	}
	handler := NewQueueHandler(fake, QueueOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	req = withSession(req, models.RoleAttendant, testAttendantID)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var snapshot metrics.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.TotalHandled != 1 {
		t.Fatalf("TotalHandled = %d, want 1 (only own tickets)", snapshot.TotalHandled)
	}
}

func TestStatsRejectsBadDate(t *testing.T) {
	handler := NewQueueHandler(&fakeTicketStore{}, QueueOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/metrics?from=20-01-2026", nil)
	req = withSession(req, models.RoleSuperAdmin, testAttendantID)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestExportCSV(t *testing.T) {
	now := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	called := now.Add(5 * time.Minute)
	attendant := testAttendantID
	fake := &fakeTicketStore{
		listTickets: func(ctx context.Context, query store.TicketQuery) ([]models.Ticket, error) {
			return []models.Ticket{
				{TicketID: testTicketID, Number: "G-001", Status: models.StatusCompleted, ServiceTypeID: testServiceTypeID, AttendantUserID: &attendant, CreatedAt: now, CalledAt: &called},
			}, nil
		},
	}
	handler := NewQueueHandler(fake, QueueOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/history/export", nil)
	req = withSession(req, models.RoleSuperAdmin, testAttendantID)
	rec := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Fatalf("Content-Type = %q, want text/csv", got)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want 2", len(lines))
	}
	if !strings.Contains(lines[1], "G-001") {
		t.Fatalf("row missing ticket number: %q", lines[1])
	}
}

func TestAuthMiddleware(t *testing.T) {
	sessions := &fakeSessionStore{
		getSession: func(ctx context.Context, sessionID string) (store.Session, error) {
			if sessionID != "valid-session" {
				return store.Session{}, store.ErrSessionNotFound
			}
			return store.Session{SessionID: sessionID, UserID: testAttendantID, Role: models.RoleAttendant}, nil
		},
	}
	var gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session, ok := sessionFromContext(r.Context()); ok {
			gotRole = session.Role
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(sessions, next)

	req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	req.Header.Set("Authorization", "Bearer valid-session")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotRole != models.RoleAttendant {
		t.Fatalf("role = %q, want %q", gotRole, models.RoleAttendant)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/player/displays/"+testDisplayID, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("player endpoint: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

type fakeSessionStore struct {
	getSession func(ctx context.Context, sessionID string) (store.Session, error)
}

func (f *fakeSessionStore) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	return f.getSession(ctx, sessionID)
}
