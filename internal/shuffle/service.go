// Package shuffle runs the preview, reshuffle and save workflow for a session.
package shuffle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-shuffler/internal/db"
	"github.com/justestif/go-spotify-shuffler/internal/library"
	"github.com/justestif/go-spotify-shuffler/internal/logging"
	"github.com/justestif/go-spotify-shuffler/internal/playlist"
	"github.com/justestif/go-spotify-shuffler/internal/sampler"
	"github.com/justestif/go-spotify-shuffler/internal/session"
)

// Common errors.
var (
	// ErrEmptyLibrary is returned when the user has no liked songs.
	ErrEmptyLibrary = errors.New("no liked songs in library")

	// ErrNoPreview is returned when saving without a pending preview.
	ErrNoPreview = errors.New("no previewed songs, preview first")
)

// historyLimit is how many past playlists RecentPlaylists returns.
const historyLimit = 10

// Credentials hands out valid tokens per session.
type Credentials interface {
	Token(ctx context.Context, sessionID string) (*oauth2.Token, error)
}

// PoolCache serves the cached library window per session.
type PoolCache interface {
	Pool(ctx context.Context, key string, token *oauth2.Token) ([]library.Track, error)
	Refresh(ctx context.Context, key string, token *oauth2.Token) ([]library.Track, error)
	Invalidate(key string)
}

// TrackLookup fetches current track details by ID.
type TrackLookup interface {
	Tracks(ctx context.Context, token *oauth2.Token, ids []string) ([]library.Track, error)
}

// Sessions is the part of the session store the workflow needs.
type Sessions interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
	SetPreview(ctx context.Context, id string, trackIDs []string) error
	TakePreview(ctx context.Context, id string) ([]string, error)
}

// History records created playlists. *db.PlaylistRepository implements it.
type History interface {
	Create(ctx context.Context, p *db.Playlist) error
	ListRecent(ctx context.Context, userID string, limit int) ([]db.Playlist, error)
}

// Service composes credentials, cache, sampler and writer.
type Service struct {
	creds    Credentials
	cache    PoolCache
	sampler  *sampler.Sampler
	writer   *playlist.Writer
	lookup   TrackLookup
	sessions Sessions
	history  History
	now      func() time.Time
	logger   *log.Logger
}

// Deps holds the Service's collaborators. History is optional.
type Deps struct {
	Credentials Credentials
	Cache       PoolCache
	Sampler     *sampler.Sampler
	Writer      *playlist.Writer
	Lookup      TrackLookup
	Sessions    Sessions
	History     History
	Logger      *log.Logger
	Now         func() time.Time
}

// New creates a Service.
func New(d Deps) *Service {
	s := &Service{
		creds:    d.Credentials,
		cache:    d.Cache,
		sampler:  d.Sampler,
		writer:   d.Writer,
		lookup:   d.Lookup,
		sessions: d.Sessions,
		history:  d.History,
		now:      d.Now,
		logger:   d.Logger,
	}
	if s.sampler == nil {
		s.sampler = sampler.New(nil)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// Preview is a pending selection shown to the user before saving.
type Preview struct {
	Tracks []library.Track
}

// SaveResult describes a created playlist.
type SaveResult struct {
	Name      string
	URL       string
	Requested int
	Written   int
}

// Complete reports whether every previewed track was written.
func (r *SaveResult) Complete() bool {
	return r.Written == r.Requested
}

// Preview draws size tracks from the session's cached window and stores them
// as the pending selection.
func (s *Service) Preview(ctx context.Context, sessionID string, size int) (*Preview, error) {
	token, err := s.creds.Token(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pool, err := s.cache.Pool(ctx, sessionID, token)
	if err != nil {
		return nil, fmt.Errorf("loading library window: %w", err)
	}
	return s.preview(ctx, sessionID, token, pool, size)
}

// Reshuffle is Preview after discarding the cached window, so a new region of
// the library is sampled.
func (s *Service) Reshuffle(ctx context.Context, sessionID string, size int) (*Preview, error) {
	token, err := s.creds.Token(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pool, err := s.cache.Refresh(ctx, sessionID, token)
	if err != nil {
		return nil, fmt.Errorf("loading library window: %w", err)
	}
	return s.preview(ctx, sessionID, token, pool, size)
}

func (s *Service) preview(ctx context.Context, sessionID string, token *oauth2.Token, pool []library.Track, size int) (*Preview, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyLibrary
	}

	selection := s.sampler.Select(pool, size)
	ids := library.IDs(selection)

	if err := s.sessions.SetPreview(ctx, sessionID, ids); err != nil {
		return nil, fmt.Errorf("storing preview: %w", err)
	}

	s.logger.Debug("preview drawn", "requested", size, "selected", len(ids), "pool", len(pool))

	return &Preview{Tracks: s.describe(ctx, token, selection)}, nil
}

// describe refreshes track details from the provider, keeping selection order.
// Tracks the provider does not return keep their cached details.
func (s *Service) describe(ctx context.Context, token *oauth2.Token, selection []library.Track) []library.Track {
	if s.lookup == nil {
		return selection
	}

	fetched, err := s.lookup.Tracks(ctx, token, library.IDs(selection))
	if err != nil {
		s.logger.Warn("track lookup failed, using cached details", "err", err)
		return selection
	}

	byID := make(map[string]library.Track, len(fetched))
	for _, t := range fetched {
		byID[t.ID()] = t
	}

	out := make([]library.Track, len(selection))
	for i, t := range selection {
		if f, ok := byID[t.ID()]; ok {
			out[i] = f
			continue
		}
		out[i] = t
	}
	return out
}

// Save writes the pending selection to a new playlist and clears it.
// An empty title uses playlist.DefaultTitle.
//
// The selection is claimed before anything is written, so a repeated submit
// finds no preview instead of creating a second playlist. If the playlist
// cannot be created the selection is put back for another try.
//
// If the playlist was created but only partly filled, Save returns both a
// result and a *playlist.PartialWriteError.
func (s *Service) Save(ctx context.Context, sessionID, title string, public bool) (*SaveResult, error) {
	token, err := s.creds.Token(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	ids, err := s.sessions.TakePreview(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("claiming preview: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoPreview
	}

	if title == "" {
		title = playlist.DefaultTitle(s.now())
	}

	pl, err := s.writer.Write(ctx, token, sess.UserID, title, public, ids)

	var partial *playlist.PartialWriteError
	if err != nil && !errors.As(err, &partial) {
		if restoreErr := s.sessions.SetPreview(ctx, sessionID, ids); restoreErr != nil {
			s.logger.Warn("restoring preview", "err", restoreErr)
		}
		return nil, fmt.Errorf("creating playlist: %w", err)
	}

	result := &SaveResult{Name: title, URL: pl.URL, Requested: len(ids), Written: len(ids)}
	if partial != nil {
		result.Written = partial.Written
	}

	s.record(ctx, sess.UserID, pl.ID, result)

	if partial != nil {
		return result, partial
	}
	return result, nil
}

func (s *Service) record(ctx context.Context, userID, spotifyID string, r *SaveResult) {
	if s.history == nil {
		return
	}
	rec := &db.Playlist{
		UserID:    userID,
		SpotifyID: spotifyID,
		Name:      r.Name,
		URL:       r.URL,
		Requested: r.Requested,
		Written:   r.Written,
		CreatedAt: s.now(),
	}
	if err := s.history.Create(ctx, rec); err != nil {
		s.logger.Warn("recording playlist", "err", err)
	}
}

// RecentPlaylists lists the user's recently created playlists.
// It returns nil when no history is configured.
func (s *Service) RecentPlaylists(ctx context.Context, userID string) ([]db.Playlist, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListRecent(ctx, userID, historyLimit)
}

// Logout drops the session and its cached window.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	s.cache.Invalidate(sessionID)
	return s.sessions.Delete(ctx, sessionID)
}
