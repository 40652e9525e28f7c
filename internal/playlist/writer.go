// Package playlist saves a track selection to the provider as a new playlist.
//
// Writes are not transactional. The playlist is created first and tracks are
// appended in batches; if a batch fails, the playlist stays on the provider
// with the batches written so far and a *PartialWriteError is returned.
package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-shuffler/internal/library"
	"github.com/justestif/go-spotify-shuffler/internal/logging"
)

// MaxTracksPerRequest is the provider's cap on tracks per append.
const MaxTracksPerRequest = 100

// Provider creates playlists and appends tracks to them.
type Provider interface {
	CreatePlaylist(ctx context.Context, token *oauth2.Token, ownerID, name, description string, public bool) (*library.Playlist, error)
	AddTracks(ctx context.Context, token *oauth2.Token, playlistID string, trackIDs []string) error
}

// PartialWriteError reports a playlist that was created but only partly filled.
type PartialWriteError struct {
	PlaylistID string
	URL        string
	Written    int // tracks appended before the failure
	Requested  int
	Err        error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("playlist %s left with %d of %d tracks: %v", e.PlaylistID, e.Written, e.Requested, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// Writer creates and fills playlists.
type Writer struct {
	provider Provider
	logger   *log.Logger
}

// NewWriter creates a Writer. A nil logger discards output.
func NewWriter(provider Provider, logger *log.Logger) *Writer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Writer{provider: provider, logger: logger}
}

// CreateAndFill creates a playlist and appends trackIDs in order, at most
// MaxTracksPerRequest per call. It returns the playlist URL.
//
// If creation fails nothing exists remotely and the provider error is returned.
// If an append fails, the returned error is a *PartialWriteError.
func (w *Writer) CreateAndFill(ctx context.Context, token *oauth2.Token, ownerID, title string, public bool, trackIDs []string) (string, error) {
	pl, err := w.Write(ctx, token, ownerID, title, public, trackIDs)
	if pl == nil {
		return "", err
	}
	return pl.URL, err
}

// Write is CreateAndFill returning the created playlist, which is non-nil
// whenever the playlist exists remotely, including after a partial write.
func (w *Writer) Write(ctx context.Context, token *oauth2.Token, ownerID, title string, public bool, trackIDs []string) (*library.Playlist, error) {
	pl, err := w.provider.CreatePlaylist(ctx, token, ownerID, title, "", public)
	if err != nil {
		return nil, err
	}

	for i := 0; i < len(trackIDs); i += MaxTracksPerRequest {
		end := min(i+MaxTracksPerRequest, len(trackIDs))

		if err := w.provider.AddTracks(ctx, token, pl.ID, trackIDs[i:end]); err != nil {
			w.logger.Error("playlist partially written",
				"playlist", pl.ID, "written", i, "requested", len(trackIDs), "err", err)
			return pl, &PartialWriteError{
				PlaylistID: pl.ID,
				URL:        pl.URL,
				Written:    i,
				Requested:  len(trackIDs),
				Err:        fmt.Errorf("adding tracks (batch %d-%d): %w", i+1, end, err),
			}
		}
	}

	w.logger.Info("playlist created", "playlist", pl.ID, "tracks", len(trackIDs))
	return pl, nil
}

// DefaultTitle names a playlist after the day it was made.
func DefaultTitle(now time.Time) string {
	return now.Format("2006-01-02") + " 🎲 Random Playlist"
}
