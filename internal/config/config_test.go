package config

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 120*time.Minute, cfg.Auth.TTL)
	assert.Equal(t, "user", cfg.Tables.Users)
	assert.Equal(t, "sf_idempotency", cfg.Tables.Idempotency)
	assert.Equal(t, 3*time.Second, cfg.Timeouts.Store)
	assert.Equal(t, 48*time.Hour, cfg.ReservationTTL)
	assert.Equal(t, []string{"/api/auth/register", "/api/auth/login", "/health", "/metrics"}, cfg.PublicRoutes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("JWT_TTL", "15m")
	t.Setenv("USERS_QUEUE_URL", "http://localhost:4566/000000000000/users.fifo")
	t.Setenv("PUBLIC_ROUTES", "/api/auth,/docs")
	t.Setenv("RUN_LOCAL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Auth.TTL)
	assert.Equal(t, "http://localhost:4566/000000000000/users.fifo", cfg.Queues.Users)
	assert.Equal(t, []string{"/api/auth", "/docs"}, cfg.PublicRoutes)
	assert.True(t, cfg.RunLocal)
}

func TestLoadRejectsMissingOrShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "short")
	_, err = Load()
	require.Error(t, err)
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.True(t, strings.Contains(out, "shown"))
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestLoadWorkerWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("WORKER_CONCURRENCY", "8")

	cfg, err := LoadWorker()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.WorkerConcurrency)
	assert.Equal(t, "sf_contact", cfg.Tables.Contacts)
}

func TestLoadAWSSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_ENDPOINT_OVERRIDE", "http://localhost:4566")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "http://localhost:4566", cfg.AWS.EndpointOverride)
	assert.Equal(t, 3, cfg.AWS.MaxAttempts)
}
