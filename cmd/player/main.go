package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/souzalb/tv-senai/internal/config"
	"github.com/souzalb/tv-senai/internal/player"
)

func main() {
	cfg := config.LoadPlayer()
	if cfg.ServerURL == "" {
		log.Fatal("PLAYER_SERVER_URL is required")
	}
	if cfg.DisplayID == "" {
		log.Fatal("PLAYER_DISPLAY_ID is required")
	}

	cache, err := player.OpenCache(cfg.CachePath)
	if err != nil {
		log.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	runner := player.NewRunner(player.RunnerOptions{
		DisplayID:    cfg.DisplayID,
		Source:       player.NewClient(cfg.ServerURL),
		Cache:        cache,
		PollInterval: cfg.PollInterval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("player starting display=%s server=%s", cfg.DisplayID, cfg.ServerURL)
	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("player stopped: %v", err)
	}
}
