// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrMissingCredentials is returned when SPOTIFY_ID or SPOTIFY_SECRET is not set.
var ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET environment variable")

// Config holds the application configuration.
type Config struct {
	ClientID     string `env:"SPOTIFY_ID"`
	ClientSecret string `env:"SPOTIFY_SECRET"`

	// RedirectURI must match the Spotify app configuration.
	// Spotify requires the explicit IPv4 loopback for local development.
	RedirectURI string `env:"REDIRECT_URI" envDefault:"http://127.0.0.1:8080/callback"`
	Addr        string `env:"ADDR" envDefault:"127.0.0.1:8080"`

	// DatabaseURL enables Postgres-backed sessions and playlist history when set.
	DatabaseURL string `env:"DATABASE_URL"`

	CacheTTL   time.Duration `env:"CACHE_TTL" envDefault:"60s"`
	WindowSize int           `env:"WINDOW_SIZE" envDefault:"500"`

	// RateLimit caps Spotify requests per second. Zero disables pacing.
	RateLimit float64 `env:"RATE_LIMIT" envDefault:"0"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	APIURL   string `env:"SPOTIFY_API_URL" envDefault:"https://api.spotify.com/v1/"`
	TokenURL string `env:"SPOTIFY_TOKEN_URL" envDefault:"https://accounts.spotify.com/api/token"`
	AuthURL  string `env:"SPOTIFY_AUTH_URL" envDefault:"https://accounts.spotify.com/authorize"`
}

// Load reads a .env file if one exists, then parses the environment.
// Returns ErrMissingCredentials if the Spotify client credentials are not set.
func Load() (*Config, error) {
	// A missing .env file is fine; the real environment is used instead.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrMissingCredentials
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("WINDOW_SIZE must be positive, got %d", c.WindowSize)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", c.CacheTTL)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must not be negative, got %v", c.RateLimit)
	}
	return nil
}
