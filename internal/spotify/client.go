// Package spotify adapts the Spotify Web API to the shuffler's library and playlist types.
package spotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/justestif/go-spotify-shuffler/internal/library"
	"github.com/justestif/go-spotify-shuffler/internal/logging"
)

// Provider makes Spotify API calls on behalf of a caller-supplied token.
// It never refreshes tokens; that is the caller's job.
type Provider struct {
	baseURL string
	limiter *rate.Limiter
	logger  *log.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL points the provider at an alternative API root. The URL must end in "/".
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithRateLimit paces requests to at most rps per second. Zero or less disables pacing.
func WithRateLimit(rps float64) Option {
	return func(p *Provider) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Provider) {
		p.logger = l
	}
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{logger: logging.Discard()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// User is the authenticated Spotify user.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// CurrentUser returns the profile of the token's owner.
func (p *Provider) CurrentUser(ctx context.Context, token *oauth2.Token) (*User, error) {
	api, err := p.client(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := api.CurrentUser(ctx)
	if err != nil {
		return nil, providerError("getting current user", err)
	}
	return &User{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}, nil
}

// client builds an API client bound to token after waiting on the rate limiter.
// The token source is static so that an expired token fails instead of refreshing.
func (p *Provider) client(ctx context.Context, token *oauth2.Token) (*spotify.Client, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	var opts []spotify.ClientOption
	if p.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(p.baseURL))
	}
	return spotify.New(httpClient, opts...), nil
}

// providerError wraps a Spotify client error, keeping the HTTP status when there is one.
func providerError(op string, err error) error {
	pe := &library.ProviderError{Op: op, Err: err}
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		pe.Status = apiErr.Status
	}
	return pe
}
