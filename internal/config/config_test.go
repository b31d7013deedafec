package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/deliverability/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Dispatch.PageSize)
	assert.Equal(t, 3, cfg.Dispatch.MaxRetries)
	assert.Equal(t, 60, cfg.Dispatch.RetryIntervalSec)
	assert.Equal(t, 0.05, cfg.Reputation.BrandBounceThreshold)
	assert.Equal(t, 0.001, cfg.Reputation.BrandComplaintThreshold)
	assert.Equal(t, 24, cfg.Reputation.WindowHours)
	assert.Equal(t, 7, cfg.Warmup.InactivityDays)
	assert.Equal(t, 20, cfg.Warmup.MaxDay)
	assert.Equal(t, 3, cfg.Warmup.MinPoolAvailable)
	assert.Equal(t, "us-west-2", cfg.SES.Region)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  port: 9090
dispatch:
  page_size: 250
  max_workers: 4
reputation:
  brand_bounce_threshold: 0.08
warmup:
  inactivity_days: 3
notify:
  smtp_host: mail.example.com
  from: alerts@example.com
  admin_emails:
    - ops@example.com
    - deliverability@example.com
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 250, cfg.Dispatch.PageSize)
	assert.Equal(t, 4, cfg.Dispatch.MaxWorkers)
	assert.Equal(t, 0.08, cfg.Reputation.BrandBounceThreshold)
	assert.Equal(t, 3, cfg.Warmup.InactivityDays)
	assert.True(t, cfg.Notify.Enabled())
	assert.Len(t, cfg.Notify.AdminEmails, 2)

	// Untouched values still get defaults.
	assert.Equal(t, 3, cfg.Dispatch.MaxRetries)
	assert.Equal(t, 20, cfg.Warmup.MaxDay)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/deliv")
	t.Setenv("ADMIN_EMAILS", "a@example.com, b@example.com")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://env-host/deliv", cfg.Database.URL)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.AdminEmails)
}
