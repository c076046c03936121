// Package announce turns ticket events into call-panel announcements.
package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event is the wire shape published by the queue service on every ticket
// status change.
type Event struct {
	Type          string    `json:"type"`
	TicketID      string    `json:"ticket_id"`
	Number        string    `json:"number"`
	ServiceName   string    `json:"service_name,omitempty"`
	AttendantName string    `json:"attendant_name,omitempty"`
	DeskInfo      string    `json:"desk_info,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Provider interface {
	Announce(ctx context.Context, message string) error
}

type LogProvider struct{}

func (LogProvider) Announce(ctx context.Context, message string) error {
	log.Printf("announce: %s", message)
	return nil
}

// WebhookProvider posts announcements to an external panel endpoint.
type WebhookProvider struct {
	URL    string
	Client *http.Client
}

func (p WebhookProvider) Announce(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}

type Worker struct {
	provider    Provider
	maxAttempts int
}

type Config struct {
	Provider    Provider
	MaxAttempts int
}

func New(cfg Config) *Worker {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	provider := cfg.Provider
	if provider == nil {
		provider = LogProvider{}
	}
	return &Worker{provider: provider, maxAttempts: maxAttempts}
}

// Run consumes deliveries until the channel closes or the context ends.
// Handled messages are acked; messages that fail every attempt are dropped
// with a nack so they do not wedge the queue.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, open := <-deliveries:
			if !open {
				return nil
			}
			if err := w.Handle(ctx, delivery.Body); err != nil {
				log.Printf("announce handle error: %v", err)
				_ = delivery.Nack(false, false)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return err
	}

	template := templateForEvent(event.Type)
	if template == "" {
		return nil
	}
	message := renderTemplate(template, event)

	var err error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if err = w.provider.Announce(ctx, message); err == nil {
			return nil
		}
		log.Printf("announce attempt %d/%d failed: %v", attempt, w.maxAttempts, err)
	}
	return err
}

func templateForEvent(eventType string) string {
	switch eventType {
	case "ticket.called":
		return "Ticket {number}, please proceed to {desk}"
	case "ticket.created":
		return "Ticket {number} registered for {service}"
	default:
		return ""
	}
}

func renderTemplate(template string, event Event) string {
	result := template
	result = strings.ReplaceAll(result, "{number}", event.Number)
	result = strings.ReplaceAll(result, "{service}", event.ServiceName)
	result = strings.ReplaceAll(result, "{attendant}", event.AttendantName)
	result = strings.ReplaceAll(result, "{desk}", deskOrFallback(event))
	return result
}

func deskOrFallback(event Event) string {
	if event.DeskInfo != "" {
		return event.DeskInfo
	}
	if event.AttendantName != "" {
		return event.AttendantName
	}
	return "the service desk"
}
