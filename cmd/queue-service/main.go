package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/souzalb/tv-senai/internal/announce"
	"github.com/souzalb/tv-senai/internal/config"
	"github.com/souzalb/tv-senai/internal/httpapi"
	"github.com/souzalb/tv-senai/internal/mq"
	"github.com/souzalb/tv-senai/internal/store/postgres"
	"github.com/souzalb/tv-senai/internal/telemetry"
)

// mqPublisher adapts the broker client to the handler's publisher interface.
type mqPublisher struct {
	client *mq.Client
}

func (p mqPublisher) Publish(ctx context.Context, event announce.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, body)
}

func main() {
	cfg := config.LoadQueue()
	shutdownTelemetry := telemetry.Setup("queue-service")
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

	var publisher httpapi.EventPublisher
	if cfg.MQURL != "" {
		client, err := mq.Dial(cfg.MQURL)
		if err != nil {
			log.Fatalf("mq connect: %v", err)
		}
		defer client.Close()
		if err := client.DeclareTopology(); err != nil {
			log.Fatalf("mq topology: %v", err)
		}
		publisher = mqPublisher{client: client}
	}

	handler := httpapi.NewQueueHandler(db, httpapi.QueueOptions{Publisher: publisher})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute: cfg.RateLimitPerMinute,
		IPBurst:     cfg.RateLimitBurst,
	})

	chain := httpapi.AuthMiddleware(db, handler.Routes())
	chain = httpapi.LoggingMiddleware(limiter.Middleware(chain))
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(chain, "queue-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("queue-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
