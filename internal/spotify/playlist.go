package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-shuffler/internal/library"
)

// MaxTracksPerAdd is the most items Spotify accepts per add-to-playlist request.
const MaxTracksPerAdd = 100

// CreatePlaylist creates an empty playlist owned by ownerID.
func (p *Provider) CreatePlaylist(ctx context.Context, token *oauth2.Token, ownerID, name, description string, public bool) (*library.Playlist, error) {
	api, err := p.client(ctx, token)
	if err != nil {
		return nil, err
	}

	playlist, err := api.CreatePlaylistForUser(ctx, ownerID, name, description, public, false)
	if err != nil {
		return nil, providerError("creating playlist", err)
	}

	return &library.Playlist{
		ID:  playlist.ID.String(),
		URL: playlist.ExternalURLs["spotify"],
	}, nil
}

// AddTracks appends up to MaxTracksPerAdd tracks to a playlist in one request.
func (p *Provider) AddTracks(ctx context.Context, token *oauth2.Token, playlistID string, trackIDs []string) error {
	if len(trackIDs) > MaxTracksPerAdd {
		return fmt.Errorf("%d tracks exceeds the limit of %d per request", len(trackIDs), MaxTracksPerAdd)
	}

	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	api, err := p.client(ctx, token)
	if err != nil {
		return err
	}

	if _, err := api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
		return providerError("adding tracks", err)
	}
	return nil
}
