package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultCivicWebBaseURL, cfg.CivicWeb.BaseURL)
	assert.Equal(t, DefaultMaxRangeDays, cfg.Crawl.MaxRangeDays)
	assert.Equal(t, DefaultCooldownSeconds, cfg.Crawl.CooldownSeconds)
	assert.Equal(t, DefaultChunkDays, cfg.Crawl.ChunkDays)
	assert.Equal(t, 30*time.Second, cfg.CivicWeb.Timeout())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
civicweb:
  base_url: https://example.civicweb.net
  timeout_seconds: 5
crawl:
  max_range_days: 90
  chunk_days: 14
logging:
  level: debug
  json: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.civicweb.net", cfg.CivicWeb.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.CivicWeb.Timeout())
	assert.Equal(t, 90, cfg.Crawl.MaxRangeDays)
	assert.Equal(t, 14, cfg.Crawl.ChunkDays)
	// Unset keys keep defaults.
	assert.Equal(t, DefaultCooldownSeconds, cfg.Crawl.CooldownSeconds)
	assert.True(t, cfg.Logging.JSON)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultCivicWebBaseURL, cfg.CivicWeb.BaseURL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CIVICWATCH_BASE_URL", "https://other.civicweb.net")
	t.Setenv("CIVICWATCH_MAX_RANGE_DAYS", "30")
	t.Setenv("CIVICWATCH_COOLDOWN_SECONDS", "0")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://other.civicweb.net", cfg.CivicWeb.BaseURL)
	assert.Equal(t, 30, cfg.Crawl.MaxRangeDays)
	assert.Equal(t, 0, cfg.Crawl.CooldownSeconds)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Crawl.MaxRangeDays = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.CivicWeb.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Crawl.ChunkDays = -1
	assert.Error(t, cfg.Validate())
}
