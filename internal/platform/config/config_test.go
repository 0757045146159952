package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfileFromEnv_Defaults(t *testing.T) {
	cfg := ProfileFromEnv()
	assert.Equal(t, ":8081", cfg.Addr)
	assert.Equal(t, "profile-service", cfg.KafkaGroup)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
}

func TestProfileFromEnv_Overrides(t *testing.T) {
	t.Setenv("ACCORD_PROFILE_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("KAFKA_CONSUMER_GROUP", "profile-eu")
	t.Setenv("CONSUMER_MAX_ATTEMPTS", "3")
	t.Setenv("CONSUMER_RETRY_BACKOFF", "2s")

	cfg := ProfileFromEnv()
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "profile-eu", cfg.KafkaGroup)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff)
}

func TestEnvInt_RejectsGarbage(t *testing.T) {
	t.Setenv("CONSUMER_MAX_ATTEMPTS", "zero")
	assert.Equal(t, 5, ProfileFromEnv().MaxAttempts)

	t.Setenv("CONSUMER_MAX_ATTEMPTS", "-1")
	assert.Equal(t, 5, ProfileFromEnv().MaxAttempts)
}

func TestIdentityFromEnv_Defaults(t *testing.T) {
	cfg := IdentityFromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.ConfirmTTL)
}
