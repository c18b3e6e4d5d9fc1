package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 50, cfg.Print.BatchSize)
	assert.Equal(t, 100, cfg.Print.WarnThreshold)
	assert.Equal(t, 60*time.Second, cfg.Print.FallbackTimeout)
	assert.Equal(t, 203.0, cfg.Print.PrinterDPI)
	assert.Equal(t, "cipl", cfg.Sequence.Name)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "labels", cfg.MinIO.Bucket)
	assert.Equal(t, 9091, cfg.Worker.MetricsPort)
	assert.Empty(t, cfg.API.AllowedOrigins)
}

func TestLoadReadsEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRINT_BATCH_SIZE", "25")
	t.Setenv("PRINT_FALLBACK_TIMEOUT", "15s")
	t.Setenv("SEQUENCE_NAME", "cipl-test")
	t.Setenv("ADMIN_SECRET", "s3cret")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Print.BatchSize)
	assert.Equal(t, 15*time.Second, cfg.Print.FallbackTimeout)
	assert.Equal(t, "cipl-test", cfg.Sequence.Name)
	assert.Equal(t, "s3cret", cfg.Admin.Secret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins)
}

func TestLoadValidates(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRINT_WARN_THRESHOLD", "10")

	_, err := Load()
	assert.ErrorContains(t, err, "warn threshold")
}

func TestLoadRequiresMinIOCredentials(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "minio access key id")
}
