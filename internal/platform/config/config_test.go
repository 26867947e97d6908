package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("GRADER_MODE", "static")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "card-events", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Grader.Timeout)
	assert.Equal(t, int64(10<<20), cfg.Cards.MaxImageBytes)
	assert.Equal(t, 5*time.Minute, cfg.Cards.CacheTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CARDLEDGER_ADDR", ":9090")
	t.Setenv("GRADER_MODE", "HTTP")
	t.Setenv("GRADER_URL", "http://grader:5000/grade")
	t.Setenv("GRADER_TIMEOUT", "2s")
	t.Setenv("GRADER_REQUIRED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, GraderModeHTTP, cfg.Grader.Mode)
	assert.Equal(t, 2*time.Second, cfg.Grader.Timeout)
	assert.True(t, cfg.Grader.Required)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSAllowedOrigins)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("GRADER_MODE", "http")
	t.Setenv("GRADER_URL", "")
	t.Setenv("GRADER_TIMEOUT", "soon")
	t.Setenv("MAX_IMAGE_BYTES", "-1")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRADER_URL is required")
	assert.Contains(t, err.Error(), "GRADER_TIMEOUT")
	assert.Contains(t, err.Error(), "MAX_IMAGE_BYTES must be positive")
}
