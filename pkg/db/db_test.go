package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "civicwatch", cfg.Database)
	assert.NoError(t, cfg.Validate())
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "meetings")
	t.Setenv("DB_MAX_CONNS", "40")

	cfg := ConfigFromEnv()

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "meetings", cfg.Database)
	assert.Equal(t, int32(40), cfg.MaxConns)
	// Unset vars keep defaults.
	assert.Equal(t, "civicwatch", cfg.User)
}

func TestConnectionString(t *testing.T) {
	cfg := &Config{
		Host:           "localhost",
		Port:           5432,
		Database:       "civicwatch",
		User:           "user with space",
		Password:       "p@ss:word",
		SSLMode:        "disable",
		ConnectTimeout: 10 * time.Second,
	}

	s := cfg.ConnectionString()
	assert.Contains(t, s, "user+with+space")
	assert.Contains(t, s, "p%40ss%3Aword")
	assert.Contains(t, s, "sslmode=disable")
	assert.Contains(t, s, "connect_timeout=10")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"missing host", func(c *Config) { c.Host = "" }, false},
		{"bad port", func(c *Config) { c.Port = 0 }, false},
		{"port too high", func(c *Config) { c.Port = 70000 }, false},
		{"missing database", func(c *Config) { c.Database = "" }, false},
		{"missing user", func(c *Config) { c.User = "" }, false},
		{"max below min", func(c *Config) { c.MaxConns = 1; c.MinConns = 5 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMigrationsAreOrderedAndNamed(t *testing.T) {
	ms := Migrations()
	require.NotEmpty(t, ms)

	for i, m := range ms {
		assert.NotEmpty(t, m.Version)
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.SQL)
		if i > 0 {
			assert.Greater(t, m.Version, ms[i-1].Version)
		}
	}
}
