package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SPOTIFY_ID", "test-client-id")
	t.Setenv("SPOTIFY_SECRET", "test-client-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ClientID != "test-client-id" {
		t.Errorf("ClientID = %q, want %q", cfg.ClientID, "test-client-id")
	}
	if cfg.CacheTTL != 60*time.Second {
		t.Errorf("CacheTTL = %v, want 60s", cfg.CacheTTL)
	}
	if cfg.WindowSize != 500 {
		t.Errorf("WindowSize = %d, want 500", cfg.WindowSize)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Errorf("Addr = %q, want 127.0.0.1:8080", cfg.Addr)
	}
	if cfg.RedirectURI != "http://127.0.0.1:8080/callback" {
		t.Errorf("RedirectURI = %q", cfg.RedirectURI)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SPOTIFY_ID", "id")
	t.Setenv("SPOTIFY_SECRET", "secret")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("WINDOW_SIZE", "250")
	t.Setenv("RATE_LIMIT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v, want 2m", cfg.CacheTTL)
	}
	if cfg.WindowSize != 250 {
		t.Errorf("WindowSize = %d, want 250", cfg.WindowSize)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("RateLimit = %v, want 5", cfg.RateLimit)
	}
}

func TestLoad_MissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		secret string
	}{
		{"both missing", "", ""},
		{"id missing", "", "secret"},
		{"secret missing", "id", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SPOTIFY_ID", tt.id)
			t.Setenv("SPOTIFY_SECRET", tt.secret)

			_, err := Load()
			if !errors.Is(err, ErrMissingCredentials) {
				t.Errorf("Load() error = %v, want ErrMissingCredentials", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	base := Config{ClientID: "id", ClientSecret: "secret", WindowSize: 500, CacheTTL: time.Minute}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero window", func(c *Config) { c.WindowSize = 0 }, true},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }, true},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
