package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Digest scheduler. Cadence 0 disables the scheduler entirely:
	// no background goroutine is started.
	DigestCadenceMinutes int
	DigestProbeURL       string
	DigestProbeTimeout   time.Duration

	// Outbound messenger
	MessengerDriver  string // "webhook" or "sendgrid"
	MessengerTimeout time.Duration
	SendgridAPIKey   string
	DigestFromEmail  string
	DigestFromName   string

	// Maximum outbound digest sends per second
	SendRatePerSec int
}

func Load() (*Config, error) {
	// Local development convenience: a .env file in the working directory is
	// loaded first, real environment variables win.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	driver := getEnv("MESSENGER_DRIVER", "webhook")
	if driver != "webhook" && driver != "sendgrid" {
		return nil, fmt.Errorf("MESSENGER_DRIVER must be webhook or sendgrid, got %q", driver)
	}
	if driver == "sendgrid" && os.Getenv("SENDGRID_API_KEY") == "" {
		return nil, fmt.Errorf("SENDGRID_API_KEY is required when MESSENGER_DRIVER=sendgrid")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		DigestCadenceMinutes: getInt("DIGEST_CADENCE_MINUTES", 0),
		DigestProbeURL:       getEnv("DIGEST_PROBE_URL", ""),
		DigestProbeTimeout:   getDuration("DIGEST_PROBE_TIMEOUT", 5*time.Second),

		MessengerDriver:  driver,
		MessengerTimeout: getDuration("MESSENGER_TIMEOUT", 10*time.Second),
		SendgridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		DigestFromEmail:  getEnv("DIGEST_FROM_EMAIL", "digest@quizhive.local"),
		DigestFromName:   getEnv("DIGEST_FROM_NAME", "QuizHive Digest"),

		SendRatePerSec: getInt("SEND_RATE_PER_SEC", 10),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
