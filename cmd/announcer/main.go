package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/souzalb/tv-senai/internal/announce"
	"github.com/souzalb/tv-senai/internal/config"
	"github.com/souzalb/tv-senai/internal/mq"
)

func main() {
	cfg := config.LoadAnnouncer()
	if cfg.MQURL == "" {
		log.Fatal("MQ_URL is required")
	}

	client, err := mq.Dial(cfg.MQURL)
	if err != nil {
		log.Fatalf("mq connect: %v", err)
	}
	defer client.Close()
	if err := client.DeclareTopology(); err != nil {
		log.Fatalf("mq topology: %v", err)
	}

	var provider announce.Provider
	if cfg.WebhookURL != "" {
		provider = announce.WebhookProvider{
			URL:    cfg.WebhookURL,
			Client: &http.Client{Timeout: 10 * time.Second},
		}
	}
	worker := announce.New(announce.Config{
		Provider:    provider,
		MaxAttempts: cfg.MaxAttempts,
	})

	deliveries, err := client.Consume(mq.AnnouncerQueue, "announcer", cfg.Prefetch)
	if err != nil {
		log.Fatalf("mq consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("announcer consuming %s", mq.AnnouncerQueue)
	if err := worker.Run(ctx, deliveries); err != nil && err != context.Canceled {
		log.Printf("worker stopped: %v", err)
	}
}
