package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		expected    bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"dev", "dev", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.expected, cfg.IsProduction())
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		expected    bool
	}{
		{"development", "development", true},
		{"dev", "dev", true},
		{"empty", "", true},
		{"production", "production", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.expected, cfg.IsDevelopment())
		})
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreBadger, cfg.StoreBackend)
	assert.Equal(t, RelayNone, cfg.RelayBackend)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.SeedUsers)
	assert.False(t, cfg.OpenAPIValidation)
	assert.Equal(t, 50, cfg.RateLimitBurst)
}

func TestParse_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("RELAY_BACKEND", "redis")
	t.Setenv("SEED_USERS", "alice, bob,")
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , http://b.test")
	t.Setenv("OPENAPI_VALIDATION", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, RelayRedis, cfg.RelayBackend)
	assert.Equal(t, []string{"alice", "bob"}, cfg.SeedUsers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.True(t, cfg.OpenAPIValidation)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestParse_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment:    "development",
			StoreBackend:   StoreBadger,
			RelayBackend:   RelayNone,
			RateLimitRPS:   20,
			RateLimitBurst: 50,
		}
	}

	tests := []struct {
		name          string
		mutate        func(*Config)
		errorContains string
	}{
		{"valid_development", func(c *Config) {}, ""},
		{"unknown_relay", func(c *Config) { c.RelayBackend = "kafka" }, "RELAY_BACKEND"},
		{"zero_rate", func(c *Config) { c.RateLimitRPS = 0 }, "RATE_LIMIT"},
		{"production_in_memory_badger", func(c *Config) { c.Environment = "production" }, "BADGER_DIR"},
		{"production_badger_on_disk", func(c *Config) {
			c.Environment = "production"
			c.BadgerDir = "/var/lib/chat"
		}, ""},
		{"production_wildcard_origin", func(c *Config) {
			c.Environment = "production"
			c.StoreBackend = StorePostgres
			c.AllowedOrigins = []string{"*"}
		}, "wildcard"},
		{"development_wildcard_origin", func(c *Config) { c.AllowedOrigins = []string{"*"} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}
