package sampler

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/justestif/go-spotify-shuffler/internal/library"
)

func track(id, artist string) library.Track {
	return library.NewTrack(id, "Song "+id, []string{artist})
}

// poolWithArtists builds n tracks spread round-robin over artists distinct artists.
func poolWithArtists(n, artists int) []library.Track {
	pool := make([]library.Track, n)
	for i := range n {
		pool[i] = track(fmt.Sprintf("t%d", i), fmt.Sprintf("Artist %d", i%artists))
	}
	return pool
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func TestSelect_Size(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		artists int
		size    int
		want    int
	}{
		{"fewer unique than requested", 30, 3, 10, 3},
		{"more unique than requested", 500, 200, 25, 25},
		{"exactly unique count", 40, 20, 20, 20},
		{"one requested", 10, 10, 1, 1},
		{"zero clamps to one", 10, 10, 0, 1},
		{"negative clamps to one", 10, 10, -5, 1},
		{"empty pool", 0, 1, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(seeded(1))
			got := s.Select(poolWithArtists(tt.n, tt.artists), tt.size)
			if len(got) != tt.want {
				t.Errorf("len(Select()) = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestSelect_NoSharedPrimaryArtist(t *testing.T) {
	s := New(seeded(2))
	pool := poolWithArtists(500, 60)

	for size := 1; size <= 80; size += 7 {
		seen := map[string]bool{}
		for _, tr := range s.Select(pool, size) {
			if seen[tr.PrimaryArtist()] {
				t.Fatalf("size %d: artist %q selected twice", size, tr.PrimaryArtist())
			}
			seen[tr.PrimaryArtist()] = true
		}
	}
}

func TestSelect_ThreeArtistsRequestTen(t *testing.T) {
	pool := []library.Track{
		track("1", "A"), track("2", "B"), track("3", "A"),
		track("4", "C"), track("5", "B"), track("6", "C"),
	}

	got := New(seeded(3)).Select(pool, 10)
	if len(got) != 3 {
		t.Fatalf("len(Select()) = %d, want 3", len(got))
	}

	// The first track per artist is the one kept.
	ids := map[string]bool{}
	for _, tr := range got {
		ids[tr.ID()] = true
	}
	for _, want := range []string{"1", "2", "4"} {
		if !ids[want] {
			t.Errorf("selection %v missing first-seen track %s", ids, want)
		}
	}
}

func TestSelect_DoesNotModifyPool(t *testing.T) {
	pool := poolWithArtists(50, 50)
	before := library.IDs(pool)

	New(seeded(4)).Select(pool, 10)

	after := library.IDs(pool)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("pool[%d] changed from %s to %s", i, before[i], after[i])
		}
	}
}

func TestSelect_Deterministic(t *testing.T) {
	pool := poolWithArtists(300, 100)

	a := library.IDs(New(seeded(9)).Select(pool, 15))
	b := library.IDs(New(seeded(9)).Select(pool, 15))

	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Errorf("same seed gave %v and %v", a, b)
	}
}

func TestSelect_Uniform(t *testing.T) {
	// Each of 10 unique tracks should be picked about 30% of the time for size 3.
	pool := poolWithArtists(10, 10)
	s := New(seeded(5))

	const rounds = 20000
	counts := map[string]int{}
	for range rounds {
		for _, tr := range s.Select(pool, 3) {
			counts[tr.ID()]++
		}
	}

	for id, n := range counts {
		share := float64(n) / rounds
		if share < 0.27 || share > 0.33 {
			t.Errorf("track %s picked %.3f of rounds, want about 0.30", id, share)
		}
	}
}

func TestUnique_ExactMatch(t *testing.T) {
	pool := []library.Track{
		track("1", "Radiohead"),
		track("2", "radiohead"),
		track("3", "Radiohead "),
		track("4", "Radiohead"),
		library.NewTrack("5", "No Artist", nil),
		library.NewTrack("6", "Also None", nil),
	}

	got := library.IDs(Unique(pool))
	want := []string{"1", "2", "3", "5"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Unique() = %v, want %v", got, want)
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"10", 10, false},
		{" 25 ", 25, false},
		{"1", 1, false},
		{"0", 1, true},
		{"-3", 1, true},
		{"abc", 1, true},
		{"", 1, true},
		{"2.5", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSize(tt.raw)
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.raw, got, tt.want)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidSize) {
				t.Errorf("ParseSize(%q) error = %v, want ErrInvalidSize", tt.raw, err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ParseSize(%q) error = %v, want nil", tt.raw, err)
			}
		})
	}
}
