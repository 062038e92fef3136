package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8082" {
		t.Errorf("Port = %s, want 8082", cfg.Port)
	}
	if cfg.DataBackend != "memory" {
		t.Errorf("DataBackend = %s, want memory", cfg.DataBackend)
	}
	if cfg.OverspendEpsilon.String() != "0.01" {
		t.Errorf("OverspendEpsilon = %s, want 0.01", cfg.OverspendEpsilon)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", t.TempDir()+"/plata.db")
	t.Setenv("OVERSPEND_EPSILON", "0.05")
	t.Setenv("PLANNER_CACHE_TTL", "30s")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.DataBackend != "sqlite" {
		t.Errorf("DataBackend = %s, want sqlite", cfg.DataBackend)
	}
	if cfg.OverspendEpsilon.String() != "0.05" {
		t.Errorf("OverspendEpsilon = %s, want 0.05", cfg.OverspendEpsilon)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v, want 30s", cfg.CacheTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Port = "not-a-port" },
			want:   "invalid port",
		},
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Port = "70000" },
			want:   "invalid port",
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.DataBackend = "dynamo" },
			want:   "invalid data backend",
		},
		{
			name:   "firestore without project",
			mutate: func(c *Config) { c.DataBackend = "firestore" },
			want:   "Firestore project ID is required",
		},
		{
			name:   "bad amqp scheme",
			mutate: func(c *Config) { c.AMQPURL = "http://localhost:5672" },
			want:   "invalid AMQP URL scheme",
		},
		{
			name:   "negative epsilon",
			mutate: func(c *Config) { c.OverspendEpsilon = c.OverspendEpsilon.Neg() },
			want:   "invalid overspend epsilon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted a bad config")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Load()
	cfg.Port = "nope"
	cfg.DataBackend = "dynamo"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted a bad config")
	}
	if !strings.Contains(err.Error(), "invalid port") || !strings.Contains(err.Error(), "invalid data backend") {
		t.Errorf("expected both failures reported, got: %v", err)
	}
}
