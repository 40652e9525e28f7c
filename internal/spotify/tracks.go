package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-shuffler/internal/library"
)

const (
	// MaxPageSize is the most saved tracks Spotify returns per request.
	MaxPageSize = 50

	maxTracksPerLookup = 50
)

// SavedTracks returns one page of the user's liked songs.
// The page's Total is the size of the whole library.
func (p *Provider) SavedTracks(ctx context.Context, token *oauth2.Token, limit, offset int) (*library.Page, error) {
	if limit < 1 || limit > MaxPageSize {
		return nil, fmt.Errorf("limit %d out of range 1-%d", limit, MaxPageSize)
	}

	api, err := p.client(ctx, token)
	if err != nil {
		return nil, err
	}

	page, err := api.CurrentUsersTracks(ctx, spotify.Limit(limit), spotify.Offset(offset))
	if err != nil {
		return nil, providerError(fmt.Sprintf("listing saved tracks (offset %d)", offset), err)
	}

	tracks := make([]library.Track, 0, len(page.Tracks))
	for _, saved := range page.Tracks {
		tracks = append(tracks, convertTrack(saved.SimpleTrack))
	}

	p.logger.Debug("fetched saved tracks", "offset", offset, "count", len(tracks), "total", page.Total)

	return &library.Page{
		Tracks: tracks,
		Total:  int(page.Total),
		Offset: offset,
	}, nil
}

// Tracks looks up tracks by ID, in batches of 50.
// IDs Spotify does not know are left out of the result.
func (p *Provider) Tracks(ctx context.Context, token *oauth2.Token, ids []string) ([]library.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	tracks := make([]library.Track, 0, len(ids))
	for i := 0; i < len(ids); i += maxTracksPerLookup {
		end := min(i+maxTracksPerLookup, len(ids))

		batch := make([]spotify.ID, 0, end-i)
		for _, id := range ids[i:end] {
			batch = append(batch, spotify.ID(id))
		}

		api, err := p.client(ctx, token)
		if err != nil {
			return nil, err
		}

		full, err := api.GetTracks(ctx, batch)
		if err != nil {
			return nil, providerError(fmt.Sprintf("getting tracks (batch %d-%d)", i+1, end), err)
		}

		for _, t := range full {
			if t == nil {
				continue
			}
			tracks = append(tracks, convertTrack(t.SimpleTrack))
		}
	}
	return tracks, nil
}

// convertTrack converts a Spotify track to a library.Track.
func convertTrack(t spotify.SimpleTrack) library.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}
	return library.NewTrack(t.ID.String(), t.Name, artists)
}
