package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Identity captures configuration for the identity service.
type Identity struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	JWTSigningKey string
	TokenTTL      time.Duration
	ConfirmTTL    time.Duration
}

// Profile captures configuration for the profile service.
type Profile struct {
	Addr         string
	DatabaseURL  string
	KafkaBrokers []string
	KafkaGroup   string
	MaxAttempts  int
	RetryBackoff time.Duration
}

// IdentityFromEnv builds identity config from environment variables so main
// stays lean.
func IdentityFromEnv() Identity {
	return Identity{
		Addr:          envOr("ACCORD_IDENTITY_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("IDENTITY_DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		KafkaBrokers:  brokers(),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:      envDuration("ACCESS_TOKEN_TTL", time.Hour),
		ConfirmTTL:    envDuration("EMAIL_CONFIRM_TTL", 24*time.Hour),
	}
}

// ProfileFromEnv builds profile config from environment variables.
func ProfileFromEnv() Profile {
	return Profile{
		Addr:         envOr("ACCORD_PROFILE_ADDR", ":8081"),
		DatabaseURL:  os.Getenv("PROFILE_DATABASE_URL"),
		KafkaBrokers: brokers(),
		KafkaGroup:   envOr("KAFKA_CONSUMER_GROUP", "profile-service"),
		MaxAttempts:  envInt("CONSUMER_MAX_ATTEMPTS", 5),
		RetryBackoff: envDuration("CONSUMER_RETRY_BACKOFF", 500*time.Millisecond),
	}
}

func brokers() []string {
	raw := envOr("KAFKA_BROKERS", "localhost:9092")
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
