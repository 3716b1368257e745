package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
)

// execer is satisfied by both [sql.DB] and [sql.Tx].
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// insertTracks writes tracks as the rows of playlistID, keyed by their position in the playlist
func insertTracks(db execer, playlistID string, tracks []models.MatchedTrack) error {
	query := `
		INSERT INTO matched_tracks (
			playlist_id, position, title, artist, album, matched,
			plex_rating_key, plex_title, plex_artist, score
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i, t := range tracks {
		var score sql.NullFloat64
		if t.Matched {
			score = sql.NullFloat64{Float64: t.Score, Valid: true}
		}

		_, err := db.Exec(query,
			playlistID,
			i,
			t.Title,
			t.Artist,
			t.Album,
			t.Matched,
			t.PlexRatingKey,
			t.PlexTitle,
			t.PlexArtist,
			score,
		)
		if err != nil {
			return fmt.Errorf("failed to insert track %d: %w", i, err)
		}
	}
	return nil
}

// deleteTracks removes every track row of playlistID
func deleteTracks(db execer, playlistID string) error {
	if _, err := db.Exec(`DELETE FROM matched_tracks WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("failed to delete tracks: %w", err)
	}
	return nil
}

// loadTracks reads the tracks of playlistID in playlist order
func loadTracks(db querier, playlistID string) ([]models.MatchedTrack, error) {
	query := `
		SELECT title, artist, album, matched, plex_rating_key, plex_title, plex_artist, score
		FROM matched_tracks
		WHERE playlist_id = ?
		ORDER BY position ASC
	`

	rows, err := db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.MatchedTrack
	for rows.Next() {
		var (
			t     models.MatchedTrack
			score sql.NullFloat64
		)
		err := rows.Scan(&t.Title, &t.Artist, &t.Album, &t.Matched, &t.PlexRatingKey, &t.PlexTitle, &t.PlexArtist, &score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		if score.Valid {
			t.Score = score.Float64
		}
		tracks = append(tracks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}
