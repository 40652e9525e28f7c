// Package session stores per-browser session state: the OAuth token and the pending preview.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// TTL is how long a session stays valid after creation.
const TTL = 24 * time.Hour

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Session represents an authenticated user session.
type Session struct {
	ID        string
	Token     *oauth2.Token
	UserID    string
	UserName  string
	CreatedAt time.Time

	// PreviewIDs holds the track IDs of the last preview until it is saved.
	PreviewIDs []string
}

// Store is a session-scoped key-value store keyed by session ID.
type Store interface {
	Create(ctx context.Context, token *oauth2.Token, userID, userName string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	UpdateToken(ctx context.Context, id string, token *oauth2.Token) error
	SetPreview(ctx context.Context, id string, trackIDs []string) error
	// TakePreview returns the preview selection and clears it in one step,
	// so a selection is only ever claimed once.
	TakePreview(ctx context.Context, id string) ([]string, error)
}

// MemoryStore keeps sessions in memory. It is the default store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create generates a new session with the given token and user info.
func (s *MemoryStore) Create(_ context.Context, token *oauth2.Token, userID, userName string) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        id,
		Token:     token,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.pruneLocked()
	s.sessions[id] = session
	s.mu.Unlock()

	return session.clone(), nil
}

// Get retrieves a copy of a session by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok || s.expired(session) {
		return nil, ErrNotFound
	}
	return session.clone(), nil
}

// Prune deletes expired sessions and returns how many were removed.
// Create prunes as well, so calling it is only needed to reclaim memory sooner.
func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked()
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) pruneLocked() int {
	n := 0
	for id, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *MemoryStore) expired(session *Session) bool {
	return s.now().Sub(session.CreatedAt) > TTL
}

// Delete removes a session by ID.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// UpdateToken replaces the OAuth token for a session.
func (s *MemoryStore) UpdateToken(_ context.Context, id string, token *oauth2.Token) error {
	return s.update(id, func(session *Session) { session.Token = token })
}

// SetPreview stores the preview selection, replacing any earlier one.
func (s *MemoryStore) SetPreview(_ context.Context, id string, trackIDs []string) error {
	ids := append([]string(nil), trackIDs...)
	return s.update(id, func(session *Session) { session.PreviewIDs = ids })
}

// TakePreview returns the preview selection and clears it.
func (s *MemoryStore) TakePreview(_ context.Context, id string) ([]string, error) {
	var ids []string
	err := s.update(id, func(session *Session) {
		ids = session.PreviewIDs
		session.PreviewIDs = nil
	})
	return ids, err
}

func (s *MemoryStore) update(id string, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fn(session)
	return nil
}

func (s *Session) clone() *Session {
	c := *s
	c.PreviewIDs = append([]string(nil), s.PreviewIDs...)
	return &c
}

// NewID creates a cryptographically random session ID.
func NewID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var _ Store = (*MemoryStore)(nil)
