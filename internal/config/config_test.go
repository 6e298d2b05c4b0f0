package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ALLOW_SELF_VOTE", "")
	t.Setenv("SESSION_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("Expected postgres driver, got %q", cfg.Store.Driver)
	}
	if !cfg.Voting.AllowSelfVote {
		t.Error("Self voting should be allowed by default")
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("Expected 24h session TTL, got %v", cfg.Auth.SessionTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("ALLOW_SELF_VOTE", "false")
	t.Setenv("RECONCILE_INTERVAL", "90s")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("Expected memory driver, got %q", cfg.Store.Driver)
	}
	if cfg.Voting.AllowSelfVote {
		t.Error("ALLOW_SELF_VOTE=false was ignored")
	}
	if cfg.Reconcile.Interval != 90*time.Second {
		t.Errorf("Expected 90s interval, got %v", cfg.Reconcile.Interval)
	}
	if cfg.GetDSN() != "postgres://u:p@db:5432/x" {
		t.Errorf("Expected DATABASE_URL to win, got %q", cfg.GetDSN())
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Auth:   AuthConfig{JWTSecret: "s", SessionTTL: time.Hour},
		Store:  StoreConfig{Driver: "memory"},
		Worker: WorkerConfig{Count: 1, QueueSize: 1},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, true},
		{"zero workers", func(c *Config) { c.Worker.Count = 0 }, true},
		{"zero ttl", func(c *Config) { c.Auth.SessionTTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
