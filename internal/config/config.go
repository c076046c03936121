package config

import (
	"os"
	"strconv"
	"time"
)

// Signage configures the admin API binary: CRUD surface, realtime endpoint
// and the outbox poll loop live in the same process.
type Signage struct {
	Port               string
	DatabaseURL        string
	PollInterval       time.Duration
	BatchSize          int
	RateLimitPerMinute int
	RateLimitBurst     int
}

func LoadSignage() Signage {
	port := os.Getenv("SIGNAGE_PORT")
	if port == "" {
		port = "8080"
	}

	return Signage{
		Port:               port,
		DatabaseURL:        os.Getenv("DB_DSN"),
		PollInterval:       readDurationSeconds("SIGNAGE_POLL_SECONDS", 1),
		BatchSize:          readInt("SIGNAGE_BATCH_SIZE", 100),
		RateLimitPerMinute: readInt("SIGNAGE_RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     readInt("SIGNAGE_RATE_LIMIT_BURST", 30),
	}
}

type Queue struct {
	Port               string
	DatabaseURL        string
	MQURL              string
	RateLimitPerMinute int
	RateLimitBurst     int
}

func LoadQueue() Queue {
	port := os.Getenv("QUEUE_PORT")
	if port == "" {
		port = "8081"
	}

	return Queue{
		Port:               port,
		DatabaseURL:        os.Getenv("DB_DSN"),
		MQURL:              os.Getenv("MQ_URL"),
		RateLimitPerMinute: readInt("QUEUE_RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     readInt("QUEUE_RATE_LIMIT_BURST", 30),
	}
}

type Announcer struct {
	MQURL       string
	WebhookURL  string
	MaxAttempts int
	Prefetch    int
}

func LoadAnnouncer() Announcer {
	return Announcer{
		MQURL:       os.Getenv("MQ_URL"),
		WebhookURL:  os.Getenv("ANNOUNCER_WEBHOOK_URL"),
		MaxAttempts: readInt("ANNOUNCER_MAX_ATTEMPTS", 3),
		Prefetch:    readInt("ANNOUNCER_PREFETCH", 8),
	}
}

type Player struct {
	ServerURL    string
	DisplayID    string
	CachePath    string
	PollInterval time.Duration
}

func LoadPlayer() Player {
	cachePath := os.Getenv("PLAYER_CACHE_PATH")
	if cachePath == "" {
		cachePath = "player-cache.db"
	}

	return Player{
		ServerURL:    os.Getenv("PLAYER_SERVER_URL"),
		DisplayID:    os.Getenv("PLAYER_DISPLAY_ID"),
		CachePath:    cachePath,
		PollInterval: readDurationSeconds("PLAYER_POLL_SECONDS", 10),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
