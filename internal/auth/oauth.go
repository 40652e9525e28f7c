package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

var (
	// errNoRefreshToken is returned by OAuthRefresher when the token has no refresh token.
	errNoRefreshToken = errors.New("no refresh token available")

	// ErrStateMismatch is returned when the callback state does not match the one issued.
	ErrStateMismatch = errors.New("oauth state mismatch")

	// ErrMissingCode is returned when the callback carries no authorization code.
	ErrMissingCode = errors.New("missing authorization code")
)

// ClientConfig holds the OAuth client settings.
// Empty endpoint URLs default to Spotify's accounts service.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
}

func (cfg ClientConfig) oauth2Config() *oauth2.Config {
	endpoint := oauth2.Endpoint{
		AuthURL:  cfg.AuthURL,
		TokenURL: cfg.TokenURL,
	}
	if endpoint.AuthURL == "" {
		endpoint.AuthURL = spotifyauth.AuthURL
	}
	if endpoint.TokenURL == "" {
		endpoint.TokenURL = spotifyauth.TokenURL
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     endpoint,
	}
}

// Authenticator runs the authorization code flow for login.
type Authenticator struct {
	config *oauth2.Config
}

// NewAuthenticator creates the authenticator used for the login redirect and code exchange.
func NewAuthenticator(cfg ClientConfig) *Authenticator {
	return &Authenticator{config: cfg.oauth2Config()}
}

// AuthURL returns the URL the user is sent to for consent.
func (a *Authenticator) AuthURL(state string, opts ...oauth2.AuthCodeOption) string {
	return a.config.AuthCodeURL(state, opts...)
}

// Token exchanges the code in the callback request r for a token.
// The request's state must equal state.
func (a *Authenticator) Token(ctx context.Context, state string, r *http.Request, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	values := r.URL.Query()
	if values.Get("state") != state {
		return nil, ErrStateMismatch
	}
	code := values.Get("code")
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := a.config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}
	return token, nil
}

// OAuthRefresher refreshes tokens against the OAuth2 token endpoint.
type OAuthRefresher struct {
	config *oauth2.Config
}

// NewOAuthRefresher creates a refresher for the given client.
func NewOAuthRefresher(cfg ClientConfig) *OAuthRefresher {
	return &OAuthRefresher{config: cfg.oauth2Config()}
}

// Refresh performs a single refresh_token grant.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, errNoRefreshToken
	}
	// A token with no access token is never valid, so the source always hits the endpoint.
	src := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return src.Token()
}
