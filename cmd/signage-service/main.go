package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/souzalb/tv-senai/internal/config"
	"github.com/souzalb/tv-senai/internal/httpapi"
	"github.com/souzalb/tv-senai/internal/hub"
	"github.com/souzalb/tv-senai/internal/store"
	"github.com/souzalb/tv-senai/internal/store/postgres"
	"github.com/souzalb/tv-senai/internal/telemetry"
)

type eventEnvelope struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

const zeroUUID = "00000000-0000-0000-0000-000000000000"

func main() {
	cfg := config.LoadSignage()
	shutdownTelemetry := telemetry.Setup("signage-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	db := postgres.NewStore(pool)
	h := hub.New()
	handler := httpapi.NewSignageHandler(db)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute: cfg.RateLimitPerMinute,
		IPBurst:     cfg.RateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler.Routes())
	mux.Handle("/realtime/", sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		serveRealtime(db, h, session)
	}))

	chain := httpapi.AuthMiddleware(db, mux)
	chain = httpapi.LoggingMiddleware(limiter.Middleware(chain))
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(chain, "signage-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("signage-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	go pollOutbox(db, h, cfg.PollInterval, cfg.BatchSize)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// serveRealtime authenticates the socket, then relays hub messages until the
// peer goes away. Subscription updates arrive as JSON frames.
func serveRealtime(sessions store.SessionStore, h *hub.Hub, session sockjs.Session) {
	sessionID := sessionIDFromSocket(session)
	if sessionID == "" {
		_ = session.Close(4001, "missing session")
		return
	}
	if _, err := sessions.GetSession(context.Background(), sessionID); err != nil {
		_ = session.Close(4002, "invalid session")
		return
	}

	client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
	h.Register(client)
	defer h.Unregister(client)

	go func() {
		for msg := range client.Send {
			_ = session.Send(string(msg))
		}
	}()

	for {
		msg, err := session.Recv()
		if err != nil {
			return
		}
		parsed, ok := hub.ParseSubscribe([]byte(msg))
		if !ok {
			continue
		}
		if parsed.Action == "unsubscribe" {
			h.UpdateSubscription(client, hub.Subscription{})
		} else {
			h.UpdateSubscription(client, hub.Subscription{Table: parsed.Table})
		}
	}
}

func sessionIDFromSocket(session sockjs.Session) string {
	req := session.Request()
	if req == nil {
		return ""
	}
	return httpapi.SessionIDFromRequest(req)
}

// pollOutbox tails the outbox and fans events out to subscribed sockets. The
// CAS guard keeps a slow batch from overlapping with the next tick.
func pollOutbox(db *postgres.Store, h *hub.Hub, interval time.Duration, batchSize int) {
	offset, err := db.GetOffset(context.Background())
	if err != nil {
		log.Printf("load offset error: %v", err)
	}
	if offset.LastEventTime.IsZero() {
		offset.LastEventTime = time.Unix(0, 0).UTC()
	}
	if offset.LastEventID == "" {
		offset.LastEventID = zeroUUID
	}
	if interval <= 0 {
		interval = time.Second
	}
	var running int32

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		events, err := db.ListOutboxEvents(ctx, offset, batchSize)
		cancel()
		if err == nil {
			for _, event := range events {
				offset.LastEventTime = event.CreatedAt
				offset.LastEventID = event.EventID
				env := eventEnvelope{Type: event.Type, Table: event.Table, Payload: event.Payload, CreatedAt: event.CreatedAt}
				payload, _ := json.Marshal(env)
				h.Broadcast(payload, event.Table)
			}
			if len(events) > 0 {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := db.UpdateOffset(ctx, offset); err != nil {
					log.Printf("update offset error: %v", err)
				}
				cancel()
			}
		}
		atomic.StoreInt32(&running, 0)
	}
}
