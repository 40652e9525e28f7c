// Package library defines the liked-track model shared by the cache, sampler and playlist writer.
package library

import (
	"strings"
	"time"
)

// UnknownArtist is the primary artist of a track with no artists.
const UnknownArtist = "Unknown"

// Track is a saved track from the user's library.
// Tracks are immutable once built with NewTrack.
type Track struct {
	id      string
	name    string
	artists []string
}

// NewTrack creates a Track. The artist slice is copied.
func NewTrack(id, name string, artists []string) Track {
	return Track{
		id:      id,
		name:    name,
		artists: append([]string(nil), artists...),
	}
}

// ID returns the provider track ID.
func (t Track) ID() string { return t.id }

// Name returns the track title.
func (t Track) Name() string { return t.name }

// Artists returns a copy of the artist names in provider order.
func (t Track) Artists() []string {
	return append([]string(nil), t.artists...)
}

// PrimaryArtist returns the first artist name, or UnknownArtist if there is none.
// Matching on it is exact: case and whitespace variants are distinct artists.
func (t Track) PrimaryArtist() string {
	if len(t.artists) == 0 {
		return UnknownArtist
	}
	return t.artists[0]
}

// ArtistLine joins the artist names for display.
func (t Track) ArtistLine() string {
	return strings.Join(t.artists, ", ")
}

// IDs returns the IDs of tracks in order.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.id
	}
	return ids
}

// Page is one page of the saved-tracks listing.
type Page struct {
	Tracks []Track
	Total  int // size of the whole library
	Offset int
}

// Batch is a cached window of the library.
// A Batch is replaced as a whole on refresh and never modified.
type Batch struct {
	Tracks    []Track
	FetchedAt time.Time
	Offset    int
	Total     int
}

// Fresh reports whether the batch is younger than ttl at now.
func (b Batch) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(b.FetchedAt) < ttl
}

// Contains reports whether every id is in the batch.
func (b Batch) Contains(ids []string) bool {
	set := make(map[string]struct{}, len(b.Tracks))
	for _, t := range b.Tracks {
		set[t.id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

// Playlist is a playlist created on the provider.
type Playlist struct {
	ID  string
	URL string
}
