package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PlaylistRepository handles created-playlist history.
type PlaylistRepository struct {
	pool *pgxpool.Pool
}

// Create inserts a playlist record, assigning an ID if it has none.
func (r *PlaylistRepository) Create(ctx context.Context, p *Playlist) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO playlists (id, user_id, spotify_id, name, url, requested, written, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.SpotifyID,
		p.Name,
		p.URL,
		p.Requested,
		p.Written,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting playlist: %w", err)
	}
	return nil
}

// ListRecent returns the user's most recently created playlists, newest first.
func (r *PlaylistRepository) ListRecent(ctx context.Context, userID string, limit int) ([]Playlist, error) {
	query := `
		SELECT id, user_id, spotify_id, name, url, requested, written, created_at
		FROM playlists
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying playlists: %w", err)
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.SpotifyID,
			&p.Name,
			&p.URL,
			&p.Requested,
			&p.Written,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}
