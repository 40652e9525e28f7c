package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-shuffler/internal/library"
)

// fakeSpotify serves the subset of the Web API the provider uses.
type fakeSpotify struct {
	mu       sync.Mutex
	library  int // number of saved tracks
	requests []string
	added    [][]string
	failAdd  bool
	authSeen string
}

func (f *fakeSpotify) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.authSeen = r.Header.Get("Authorization")
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/me":
		fmt.Fprint(w, `{"id":"user1","display_name":"User One","email":"one@example.com"}`)

	case r.Method == http.MethodGet && r.URL.Path == "/me/tracks":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		var items []string
		for i := offset; i < min(offset+limit, f.library); i++ {
			items = append(items, fmt.Sprintf(
				`{"added_at":"2024-01-01T00:00:00Z","track":{"id":"t%d","name":"Song %d","artists":[{"name":"Artist %d"},{"name":"Feat"}]}}`,
				i, i, i))
		}
		fmt.Fprintf(w, `{"items":[%s],"total":%d,"limit":%d,"offset":%d}`,
			strings.Join(items, ","), f.library, limit, offset)

	case r.Method == http.MethodGet && r.URL.Path == "/tracks":
		var tracks []string
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if id == "gone" {
				tracks = append(tracks, "null")
				continue
			}
			tracks = append(tracks, fmt.Sprintf(`{"id":%q,"name":"Name %s","artists":[{"name":"Artist"}]}`, id, id))
		}
		fmt.Fprintf(w, `{"tracks":[%s]}`, strings.Join(tracks, ","))

	case r.Method == http.MethodPost && r.URL.Path == "/users/user1/playlists":
		var body struct {
			Name   string `json:"name"`
			Public bool   `json:"public"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":"pl1","name":%q,"public":%t,"external_urls":{"spotify":"https://open.spotify.com/playlist/pl1"}}`,
			body.Name, body.Public)

	case r.Method == http.MethodPost && r.URL.Path == "/playlists/pl1/tracks":
		if f.failAdd {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error":{"status":502,"message":"bad gateway"}}`)
			return
		}
		var body struct {
			URIs []string `json:"uris"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.added = append(f.added, body.URIs)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"snapshot_id":"snap"}`)

	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"status":404,"message":"not found"}}`)
	}
}

func newTestProvider(t *testing.T, fake *fakeSpotify) *Provider {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL + "/"))
}

var testToken = &oauth2.Token{AccessToken: "access", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}

func TestSavedTracks(t *testing.T) {
	fake := &fakeSpotify{library: 120}
	p := newTestProvider(t, fake)

	page, err := p.SavedTracks(context.Background(), testToken, 50, 100)
	if err != nil {
		t.Fatalf("SavedTracks() error = %v", err)
	}

	if page.Total != 120 {
		t.Errorf("Total = %d, want 120", page.Total)
	}
	if len(page.Tracks) != 20 {
		t.Fatalf("got %d tracks, want 20", len(page.Tracks))
	}
	first := page.Tracks[0]
	if first.ID() != "t100" || first.Name() != "Song 100" {
		t.Errorf("first track = %s/%s, want t100/Song 100", first.ID(), first.Name())
	}
	if first.PrimaryArtist() != "Artist 100" {
		t.Errorf("PrimaryArtist() = %q, want %q", first.PrimaryArtist(), "Artist 100")
	}
	if first.ArtistLine() != "Artist 100, Feat" {
		t.Errorf("ArtistLine() = %q", first.ArtistLine())
	}
	if fake.authSeen != "Bearer access" {
		t.Errorf("Authorization = %q, want %q", fake.authSeen, "Bearer access")
	}
}

func TestSavedTracks_LimitRange(t *testing.T) {
	p := New()
	for _, limit := range []int{0, 51} {
		if _, err := p.SavedTracks(context.Background(), testToken, limit, 0); err == nil {
			t.Errorf("SavedTracks(limit=%d) error = nil, want range error", limit)
		}
	}
}

func TestTracks_Batches(t *testing.T) {
	fake := &fakeSpotify{}
	p := newTestProvider(t, fake)

	ids := make([]string, 0, 120)
	for i := range 119 {
		ids = append(ids, fmt.Sprintf("id%d", i))
	}
	ids = append(ids, "gone")

	tracks, err := p.Tracks(context.Background(), testToken, ids)
	if err != nil {
		t.Fatalf("Tracks() error = %v", err)
	}
	if len(tracks) != 119 {
		t.Errorf("got %d tracks, want 119 (unknown id dropped)", len(tracks))
	}
	if tracks[0].ID() != "id0" || tracks[118].ID() != "id118" {
		t.Errorf("tracks out of order: first %s, last %s", tracks[0].ID(), tracks[118].ID())
	}
	if len(fake.requests) != 3 {
		t.Errorf("made %d requests, want 3 batches of <=50", len(fake.requests))
	}
}

func TestTracks_Empty(t *testing.T) {
	tracks, err := New().Tracks(context.Background(), testToken, nil)
	if err != nil || tracks != nil {
		t.Errorf("Tracks(nil) = %v, %v; want nil, nil", tracks, err)
	}
}

func TestCurrentUser(t *testing.T) {
	p := newTestProvider(t, &fakeSpotify{})

	user, err := p.CurrentUser(context.Background(), testToken)
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user.ID != "user1" || user.DisplayName != "User One" {
		t.Errorf("CurrentUser() = %+v", user)
	}
}

func TestCreatePlaylistAndAddTracks(t *testing.T) {
	fake := &fakeSpotify{}
	p := newTestProvider(t, fake)
	ctx := context.Background()

	pl, err := p.CreatePlaylist(ctx, testToken, "user1", "2024-01-01 Random", "", false)
	if err != nil {
		t.Fatalf("CreatePlaylist() error = %v", err)
	}
	if pl.ID != "pl1" || pl.URL != "https://open.spotify.com/playlist/pl1" {
		t.Errorf("CreatePlaylist() = %+v", pl)
	}

	if err := p.AddTracks(ctx, testToken, pl.ID, []string{"a", "b"}); err != nil {
		t.Fatalf("AddTracks() error = %v", err)
	}
	if len(fake.added) != 1 || len(fake.added[0]) != 2 {
		t.Fatalf("added = %v, want one call with 2 uris", fake.added)
	}
	if fake.added[0][0] != "spotify:track:a" {
		t.Errorf("added uri = %q, want track uri for a", fake.added[0][0])
	}
}

func TestAddTracks_TooMany(t *testing.T) {
	ids := make([]string, MaxTracksPerAdd+1)
	if err := New().AddTracks(context.Background(), testToken, "pl1", ids); err == nil {
		t.Error("AddTracks(101 ids) error = nil, want limit error")
	}
}

func TestAddTracks_ProviderError(t *testing.T) {
	fake := &fakeSpotify{failAdd: true}
	p := newTestProvider(t, fake)

	err := p.AddTracks(context.Background(), testToken, "pl1", []string{"a"})
	var pe *library.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("AddTracks() error = %v, want *library.ProviderError", err)
	}
	if pe.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want %d", pe.Status, http.StatusBadGateway)
	}
}

func TestConvertTrack(t *testing.T) {
	tests := []struct {
		name          string
		track         spotify.SimpleTrack
		wantPrimary   string
		wantArtistLen int
	}{
		{
			name: "multiple artists",
			track: spotify.SimpleTrack{
				ID:      "track456",
				Name:    "Collab Track",
				Artists: []spotify.SimpleArtist{{Name: "Artist A"}, {Name: "Artist B"}},
			},
			wantPrimary:   "Artist A",
			wantArtistLen: 2,
		},
		{
			name:          "no artists",
			track:         spotify.SimpleTrack{ID: "track000", Name: "Unknown Track"},
			wantPrimary:   library.UnknownArtist,
			wantArtistLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertTrack(tt.track)
			if got.ID() != tt.track.ID.String() {
				t.Errorf("ID = %q, want %q", got.ID(), tt.track.ID)
			}
			if got.PrimaryArtist() != tt.wantPrimary {
				t.Errorf("PrimaryArtist() = %q, want %q", got.PrimaryArtist(), tt.wantPrimary)
			}
			if len(got.Artists()) != tt.wantArtistLen {
				t.Errorf("len(Artists()) = %d, want %d", len(got.Artists()), tt.wantArtistLen)
			}
		})
	}
}
