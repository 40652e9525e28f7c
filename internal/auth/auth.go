// Package auth manages the Spotify OAuth2 credentials of a session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-shuffler/internal/logging"
	"github.com/justestif/go-spotify-shuffler/internal/session"
)

// RefreshWindow is how close to expiry a token may get before it is refreshed.
const RefreshWindow = 60 * time.Second

var (
	// ErrNotAuthenticated is returned when the session holds no token.
	// The caller must run the authorization flow.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRefreshFailed is returned when the provider rejects a refresh.
	// The caller must run the authorization flow again; refresh is never retried.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Scopes are the permissions requested at login.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// TokenStore is the part of the session store the credentials need.
type TokenStore interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	UpdateToken(ctx context.Context, id string, token *oauth2.Token) error
}

// Refresher exchanges a refresh token for a new token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Credentials hands out valid access tokens for sessions, refreshing lazily.
type Credentials struct {
	store     TokenStore
	refresher Refresher
	now       func() time.Time
	logger    *log.Logger
}

// Option configures Credentials.
type Option func(*Credentials)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Credentials) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Credentials) {
		c.logger = l
	}
}

// NewCredentials creates Credentials backed by a session store.
func NewCredentials(store TokenStore, refresher Refresher, opts ...Option) *Credentials {
	c := &Credentials{
		store:     store,
		refresher: refresher,
		now:       time.Now,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a valid token for the session.
// A token within RefreshWindow of expiry is refreshed once and written back to the store.
func (c *Credentials) Token(ctx context.Context, sessionID string) (*oauth2.Token, error) {
	s, err := c.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if s.Token == nil || s.Token.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	if !NeedsRefresh(s.Token, c.now()) {
		return s.Token, nil
	}

	c.logger.Debug("refreshing token", "user", s.UserID, "expiry", s.Token.Expiry)

	fresh, err := c.refresher.Refresh(ctx, s.Token.RefreshToken)
	if err != nil {
		c.logger.Warn("token refresh rejected", "user", s.UserID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	// Spotify may omit the refresh token from a refresh response.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = s.Token.RefreshToken
	}

	if err := c.store.UpdateToken(ctx, sessionID, fresh); err != nil {
		return nil, fmt.Errorf("saving refreshed token: %w", err)
	}
	return fresh, nil
}

// NeedsRefresh reports whether token expires within RefreshWindow of now.
func NeedsRefresh(token *oauth2.Token, now time.Time) bool {
	return token.Expiry.Sub(now) < RefreshWindow
}
