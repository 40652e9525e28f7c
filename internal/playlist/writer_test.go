package playlist

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-shuffler/internal/library"
)

// mockProvider implements Provider for testing.
type mockProvider struct {
	createErr error
	failOn    int // 1-based append call that fails; 0 never fails
	created   []string
	appends   [][]string
}

func (m *mockProvider) CreatePlaylist(_ context.Context, _ *oauth2.Token, ownerID, name, _ string, public bool) (*library.Playlist, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, fmt.Sprintf("%s/%s/%t", ownerID, name, public))
	return &library.Playlist{ID: "pl1", URL: "https://open.spotify.com/playlist/pl1"}, nil
}

func (m *mockProvider) AddTracks(_ context.Context, _ *oauth2.Token, playlistID string, trackIDs []string) error {
	if playlistID != "pl1" {
		return fmt.Errorf("unexpected playlist %q", playlistID)
	}
	if m.failOn == len(m.appends)+1 {
		return &library.ProviderError{Op: "adding tracks", Status: 500, Err: errors.New("server error")}
	}
	m.appends = append(m.appends, append([]string(nil), trackIDs...))
	return nil
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("id%d", i)
	}
	return out
}

var token = &oauth2.Token{AccessToken: "access"}

func TestCreateAndFill_Batching(t *testing.T) {
	tests := []struct {
		name      string
		tracks    int
		wantSizes []int
	}{
		{"none", 0, nil},
		{"less than 100", 50, []int{50}},
		{"exactly 100", 100, []int{100}},
		{"exactly 200", 200, []int{100, 100}},
		{"250", 250, []int{100, 100, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockProvider{}
			w := NewWriter(m, nil)
			trackIDs := ids(tt.tracks)

			url, err := w.CreateAndFill(context.Background(), token, "user1", "Title", false, trackIDs)
			if err != nil {
				t.Fatalf("CreateAndFill() error = %v", err)
			}
			if url != "https://open.spotify.com/playlist/pl1" {
				t.Errorf("url = %q", url)
			}
			if len(m.created) != 1 || m.created[0] != "user1/Title/false" {
				t.Errorf("created = %v, want one private playlist for user1", m.created)
			}

			if len(m.appends) != len(tt.wantSizes) {
				t.Fatalf("got %d append calls, want %d", len(m.appends), len(tt.wantSizes))
			}
			next := 0
			for i, batch := range m.appends {
				if len(batch) != tt.wantSizes[i] {
					t.Errorf("batch %d size = %d, want %d", i, len(batch), tt.wantSizes[i])
				}
				for _, id := range batch {
					if id != trackIDs[next] {
						t.Fatalf("batch %d out of order: got %s, want %s", i, id, trackIDs[next])
					}
					next++
				}
			}
		})
	}
}

func TestCreateAndFill_CreateFails(t *testing.T) {
	m := &mockProvider{createErr: &library.ProviderError{Op: "creating playlist", Err: errors.New("forbidden"), Status: 403}}
	w := NewWriter(m, nil)

	url, err := w.CreateAndFill(context.Background(), token, "user1", "Title", false, ids(10))
	if url != "" {
		t.Errorf("url = %q, want empty", url)
	}
	var pe *library.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *library.ProviderError", err)
	}
	var partial *PartialWriteError
	if errors.As(err, &partial) {
		t.Error("create failure reported as partial write")
	}
	if len(m.appends) != 0 {
		t.Errorf("append calls = %d, want 0", len(m.appends))
	}
}

func TestCreateAndFill_PartialFailure(t *testing.T) {
	m := &mockProvider{failOn: 3}
	w := NewWriter(m, nil)

	url, err := w.CreateAndFill(context.Background(), token, "user1", "Title", true, ids(350))

	var partial *PartialWriteError
	if !errors.As(err, &partial) {
		t.Fatalf("error = %v, want *PartialWriteError", err)
	}
	if partial.Written != 200 || partial.Requested != 350 {
		t.Errorf("Written/Requested = %d/%d, want 200/350", partial.Written, partial.Requested)
	}
	if partial.PlaylistID != "pl1" || url != partial.URL || url == "" {
		t.Errorf("partial = %+v, url = %q", partial, url)
	}

	// The provider error is still reachable.
	var pe *library.ProviderError
	if !errors.As(err, &pe) || pe.Status != 500 {
		t.Errorf("wrapped provider error = %+v", pe)
	}

	// No rollback and no further appends after the failure.
	if len(m.appends) != 2 {
		t.Errorf("successful appends = %d, want 2", len(m.appends))
	}
}

func TestDefaultTitle(t *testing.T) {
	got := DefaultTitle(time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC))
	if want := "2024-03-09 🎲 Random Playlist"; got != want {
		t.Errorf("DefaultTitle() = %q, want %q", got, want)
	}
}

func TestWrite_ReturnsPlaylistOnPartialFailure(t *testing.T) {
	m := &mockProvider{failOn: 1}
	w := NewWriter(m, nil)

	pl, err := w.Write(context.Background(), token, "user1", "Title", false, ids(150))
	if pl == nil || pl.ID != "pl1" {
		t.Fatalf("Write() playlist = %+v, want pl1", pl)
	}
	var partial *PartialWriteError
	if !errors.As(err, &partial) || partial.Written != 0 {
		t.Errorf("Write() error = %v, want partial write with 0 written", err)
	}
}
