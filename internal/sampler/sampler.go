// Package sampler draws a random, artist-distinct selection from a pool of tracks.
package sampler

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/justestif/go-spotify-shuffler/internal/library"
)

// DefaultSize is the selection size offered before the user picks one.
const DefaultSize = 10

// ErrInvalidSize is returned by ParseSize when the input is not a whole number of at least 1.
// The accompanying size is still usable.
var ErrInvalidSize = errors.New("size must be a whole number of at least 1")

// Sampler selects tracks at random. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Sampler using rng, or a randomly seeded source if rng is nil.
func New(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{rng: rng}
}

// Select returns up to size tracks from pool, no two sharing a primary artist.
// If size covers every distinct artist, all of them are returned in shuffled order.
// Otherwise size tracks are drawn uniformly without replacement.
// Sizes below 1 are treated as 1.
func (s *Sampler) Select(pool []library.Track, size int) []library.Track {
	size = max(size, 1)
	unique := Unique(pool)

	s.mu.Lock()
	defer s.mu.Unlock()

	if size >= len(unique) {
		s.rng.Shuffle(len(unique), func(i, j int) {
			unique[i], unique[j] = unique[j], unique[i]
		})
		return unique
	}

	// Partial Fisher-Yates: the first size slots end up a uniform sample.
	for i := range size {
		j := i + s.rng.IntN(len(unique)-i)
		unique[i], unique[j] = unique[j], unique[i]
	}
	return unique[:size:size]
}

// Unique keeps the first track seen for each primary artist, in pool order.
// Artist names are compared exactly.
func Unique(pool []library.Track) []library.Track {
	seen := make(map[string]struct{}, len(pool))
	unique := make([]library.Track, 0, len(pool))
	for _, t := range pool {
		artist := t.PrimaryArtist()
		if _, ok := seen[artist]; ok {
			continue
		}
		seen[artist] = struct{}{}
		unique = append(unique, t)
	}
	return unique
}

// ParseSize parses a requested selection size.
// Non-numeric or sub-minimum input yields 1 together with ErrInvalidSize.
func ParseSize(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1, ErrInvalidSize
	}
	return n, nil
}
