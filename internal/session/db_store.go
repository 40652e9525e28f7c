package session

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-shuffler/internal/db"
)

// DBStore manages sessions in PostgreSQL.
type DBStore struct {
	database *db.DB
}

// NewDBStore creates a new database-backed session store.
func NewDBStore(database *db.DB) *DBStore {
	return &DBStore{database: database}
}

// Create generates a new session and stores it in the database.
func (s *DBStore) Create(ctx context.Context, token *oauth2.Token, userID, userName string) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dbSession := &db.Session{
		ID:           id,
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenExpiry:  token.Expiry,
		CreatedAt:    now,
		ExpiresAt:    now.Add(TTL),
	}

	if err := s.database.Sessions().Create(ctx, dbSession); err != nil {
		return nil, err
	}

	return &Session{
		ID:        id,
		Token:     token,
		UserID:    userID,
		UserName:  userName,
		CreatedAt: now,
	}, nil
}

// Get retrieves a session by ID from the database.
func (s *DBStore) Get(ctx context.Context, id string) (*Session, error) {
	dbSession, err := s.database.Sessions().Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var userName string
	if user, err := s.database.Users().Get(ctx, dbSession.UserID); err == nil {
		userName = user.DisplayName
	}

	return &Session{
		ID: dbSession.ID,
		Token: &oauth2.Token{
			AccessToken:  dbSession.AccessToken,
			RefreshToken: dbSession.RefreshToken,
			Expiry:       dbSession.TokenExpiry,
			TokenType:    "Bearer",
		},
		UserID:     dbSession.UserID,
		UserName:   userName,
		CreatedAt:  dbSession.CreatedAt,
		PreviewIDs: dbSession.PreviewIDs,
	}, nil
}

// Delete removes a session from the database.
func (s *DBStore) Delete(ctx context.Context, id string) error {
	return s.database.Sessions().Delete(ctx, id)
}

// UpdateToken updates the OAuth token for a session in the database.
func (s *DBStore) UpdateToken(ctx context.Context, id string, token *oauth2.Token) error {
	return s.translate(s.database.Sessions().UpdateToken(ctx, id, token.AccessToken, token.RefreshToken, token.Expiry))
}

// SetPreview stores the preview selection in the database.
func (s *DBStore) SetPreview(ctx context.Context, id string, trackIDs []string) error {
	return s.translate(s.database.Sessions().UpdatePreview(ctx, id, trackIDs))
}

// TakePreview returns and clears the preview selection in a single statement.
func (s *DBStore) TakePreview(ctx context.Context, id string) ([]string, error) {
	ids, err := s.database.Sessions().TakePreview(ctx, id)
	return ids, s.translate(err)
}

func (s *DBStore) translate(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

var _ Store = (*DBStore)(nil)
