// Package cache keeps a short-lived random window of each session's liked songs.
//
// Scanning a whole library costs one request per 50 tracks. Instead the cache
// learns the library size with one request, then fetches a single contiguous
// window starting at a random offset. The window is re-drawn whenever the
// cached batch expires or is invalidated, so successive previews move around
// the library.
package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-shuffler/internal/library"
	"github.com/justestif/go-spotify-shuffler/internal/logging"
)

const (
	// DefaultTTL is how long a fetched window is served before it is re-drawn.
	DefaultTTL = 60 * time.Second

	// DefaultWindowSize is the number of contiguous tracks fetched per window.
	DefaultWindowSize = 500

	// PageSize is the provider's per-request cap on saved tracks.
	PageSize = 50
)

// Library lists the user's saved tracks.
type Library interface {
	SavedTracks(ctx context.Context, token *oauth2.Token, limit, offset int) (*library.Page, error)
}

// Cache serves a random window of the library per key, refreshed after the TTL.
// Concurrent misses on one key may each fetch; the last write wins.
type Cache struct {
	lib    Library
	store  Store
	ttl    time.Duration
	window int
	now    func() time.Time
	logger *log.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures a Cache.
type Option func(*Cache)

// WithStore sets the batch store. Defaults to a MemoryStore.
func WithStore(s Store) Option {
	return func(c *Cache) {
		c.store = s
	}
}

// WithTTL sets how long a batch stays fresh.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithWindowSize sets the number of tracks fetched per window.
func WithWindowSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.window = n
		}
	}
}

// WithRand sets the random source used to pick window offsets.
func WithRand(r *rand.Rand) Option {
	return func(c *Cache) {
		c.rng = r
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New creates a Cache reading from lib.
func New(lib Library, opts ...Option) *Cache {
	c := &Cache{
		lib:    lib,
		store:  NewMemoryStore(),
		ttl:    DefaultTTL,
		window: DefaultWindowSize,
		now:    time.Now,
		logger: logging.Discard(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pool returns the tracks of the current batch for key, fetching a new window
// if there is no batch or it is older than the TTL.
func (c *Cache) Pool(ctx context.Context, key string, token *oauth2.Token) ([]library.Track, error) {
	batch, err := c.Batch(ctx, key, token)
	if err != nil {
		return nil, err
	}
	return batch.Tracks, nil
}

// Batch is like Pool but returns the whole batch.
// A miss also drops expired batches of other keys.
func (c *Cache) Batch(ctx context.Context, key string, token *oauth2.Token) (library.Batch, error) {
	if batch, ok := c.store.Get(key); ok {
		if batch.Fresh(c.now(), c.ttl) {
			return batch, nil
		}
		c.store.Delete(key)
	}

	batch, err := c.fetch(ctx, token)
	if err != nil {
		return library.Batch{}, err
	}

	c.store.Put(key, batch)
	c.Prune()
	return batch, nil
}

// Prune drops every batch older than the TTL and returns how many were removed.
func (c *Cache) Prune() int {
	n := c.store.Prune(c.now().Add(-c.ttl))
	if n > 0 {
		c.logger.Debug("pruned expired batches", "count", n)
	}
	return n
}

// Current returns the stored batch for key without fetching, fresh or not.
func (c *Cache) Current(key string) (library.Batch, bool) {
	return c.store.Get(key)
}

// Invalidate drops the batch for key so the next Pool draws a new window.
func (c *Cache) Invalidate(key string) {
	c.store.Delete(key)
}

// Refresh drops the batch for key and fetches a new window.
func (c *Cache) Refresh(ctx context.Context, key string, token *oauth2.Token) ([]library.Track, error) {
	c.Invalidate(key)
	return c.Pool(ctx, key, token)
}

// fetch counts the library, picks a window and reads it.
func (c *Cache) fetch(ctx context.Context, token *oauth2.Token) (library.Batch, error) {
	countPage, err := c.lib.SavedTracks(ctx, token, 1, 0)
	if err != nil {
		return library.Batch{}, fmt.Errorf("counting saved tracks: %w", err)
	}

	total := countPage.Total
	offset, count := c.pickWindow(total)

	tracks, err := c.fetchRange(ctx, token, offset, count)
	if err != nil {
		return library.Batch{}, fmt.Errorf("fetching window at offset %d: %w", offset, err)
	}

	c.logger.Debug("fetched window", "total", total, "offset", offset, "tracks", len(tracks))

	return library.Batch{
		Tracks:    tracks,
		FetchedAt: c.now(),
		Offset:    offset,
		Total:     total,
	}, nil
}

// pickWindow returns the offset and length to read from a library of total tracks.
func (c *Cache) pickWindow(total int) (offset, count int) {
	switch {
	case total == 0:
		return 0, PageSize
	case total <= c.window:
		return 0, total
	default:
		return c.intN(total - c.window + 1), c.window
	}
}

// fetchRange reads count tracks from offset in page-sized requests.
// It stops early if the provider runs out of tracks.
func (c *Cache) fetchRange(ctx context.Context, token *oauth2.Token, offset, count int) ([]library.Track, error) {
	tracks := make([]library.Track, 0, count)
	for len(tracks) < count {
		limit := min(PageSize, count-len(tracks))

		page, err := c.lib.SavedTracks(ctx, token, limit, offset+len(tracks))
		if err != nil {
			return nil, err
		}
		if len(page.Tracks) == 0 {
			break
		}
		tracks = append(tracks, page.Tracks...)
	}

	if len(tracks) > count {
		tracks = tracks[:count]
	}
	return tracks, nil
}

func (c *Cache) intN(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(n)
}
