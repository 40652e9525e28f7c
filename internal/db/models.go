package db

import (
	"time"

	"github.com/google/uuid"
)

// User represents a Spotify user profile.
type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time // nullable
}

// Session represents an authenticated web session.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	PreviewIDs   []string // nullable
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Playlist records a playlist created on Spotify.
// Written is less than Requested when a batch failed part way.
type Playlist struct {
	ID        uuid.UUID
	UserID    string
	SpotifyID string
	Name      string
	URL       string
	Requested int
	Written   int
	CreatedAt time.Time
}

// Complete reports whether every requested track was written.
func (p Playlist) Complete() bool {
	return p.Written == p.Requested
}
