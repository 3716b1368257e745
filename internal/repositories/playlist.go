package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const playlistColumns = `id, sequence, external_id, name, description, source, plex_playlist_title, matched_count, total_count, created_at, updated_at, deleted_at`

// MatchedPlaylistRepository implements models.Repository[*models.PersistedPlaylist] for matching runs.
//
// A playlist row and its track rows are always written in one transaction.
type MatchedPlaylistRepository struct {
	db *sql.DB
}

// NewMatchedPlaylistRepository creates a new MatchedPlaylistRepository with the given database connection
func NewMatchedPlaylistRepository(db *sql.DB) *MatchedPlaylistRepository {
	return &MatchedPlaylistRepository{db: db}
}

// Create inserts a new playlist and its tracks with generated ID and sequence
func (r *MatchedPlaylistRepository) Create(p *models.PersistedPlaylist) error {
	sequence, err := NextSequence(r.db, "matched_playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	p.SetID(id)
	p.SetSequence(sequence)

	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pl := p.Playlist()
	query := `
		INSERT INTO matched_playlists (
			id, sequence, external_id, name, description, source,
			plex_playlist_title, matched_count, total_count, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.Exec(query,
		id,
		sequence,
		p.ExternalID(),
		pl.Name,
		pl.Description,
		pl.Source,
		p.PlexTitle(),
		pl.MatchedCount,
		pl.TotalCount,
		p.CreatedAt(),
		p.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	if err := insertTracks(tx, id, pl.Tracks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist: %w", err)
	}
	return nil
}

// Get retrieves a playlist with its tracks by ID, excluding soft-deleted playlists
func (r *MatchedPlaylistRepository) Get(id string) (*models.PersistedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM matched_playlists WHERE id = ? AND deleted_at IS NULL`

	p, err := r.scanOne(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}
	return r.withTracks(p)
}

// GetByExternalID retrieves the latest playlist imported from source with the given external ID
func (r *MatchedPlaylistRepository) GetByExternalID(source, externalID string) (*models.PersistedPlaylist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM matched_playlists
		WHERE source = ? AND external_id = ? AND deleted_at IS NULL
		ORDER BY sequence DESC
		LIMIT 1
	`

	p, err := r.scanOne(r.db.QueryRow(query, source, externalID))
	if err != nil {
		return nil, err
	}
	return r.withTracks(p)
}

// FindByIDPrefix resolves a playlist from a unique prefix of its ID, as typed on the command line
func (r *MatchedPlaylistRepository) FindByIDPrefix(prefix string) (*models.PersistedPlaylist, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	rows, err := r.db.Query(`SELECT id FROM matched_playlists WHERE id LIKE ? AND deleted_at IS NULL LIMIT 2`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan playlist id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, prefix)
	case 1:
		return r.Get(ids[0])
	default:
		return nil, fmt.Errorf("%w: id prefix %q is ambiguous", shared.ErrInvalidArgument, prefix)
	}
}

// Update rewrites the playlist row and replaces its tracks
func (r *MatchedPlaylistRepository) Update(p *models.PersistedPlaylist) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	p.Touch()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pl := p.Playlist()
	query := `
		UPDATE matched_playlists
		SET name = ?, description = ?, plex_playlist_title = ?, matched_count = ?, total_count = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := tx.Exec(query,
		pl.Name,
		pl.Description,
		p.PlexTitle(),
		pl.MatchedCount,
		pl.TotalCount,
		p.UpdatedAt(),
		p.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	if err := expectRow(result, p.ID()); err != nil {
		return err
	}

	if err := deleteTracks(tx, p.ID()); err != nil {
		return err
	}
	if err := insertTracks(tx, p.ID(), pl.Tracks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist: %w", err)
	}
	return nil
}

// Delete soft-deletes a playlist by ID and removes its track rows
func (r *MatchedPlaylistRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE matched_playlists SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if err := expectRow(result, id); err != nil {
		return err
	}
	if err := deleteTracks(tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// List retrieves playlists matching the given criteria, newest first, excluding soft-deleted playlists.
//
// Supported criteria: "source" (string), "limit" (int). Tracks are not loaded; use [MatchedPlaylistRepository.Get].
func (r *MatchedPlaylistRepository) List(criteria map[string]any) ([]*models.PersistedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM matched_playlists WHERE deleted_at IS NULL`
	args := []any{}

	if source, ok := criteria["source"].(string); ok && source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.PersistedPlaylist
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// CountTracks returns the stored total and matched track counts of a playlist
func (r *MatchedPlaylistRepository) CountTracks(id string) (total, matched int, err error) {
	row := r.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(matched), 0) FROM matched_tracks WHERE playlist_id = ?`, id)
	if err := row.Scan(&total, &matched); err != nil {
		return 0, 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return total, matched, nil
}

func (r *MatchedPlaylistRepository) withTracks(p *models.PersistedPlaylist) (*models.PersistedPlaylist, error) {
	tracks, err := loadTracks(r.db, p.ID())
	if err != nil {
		return nil, err
	}

	pl := p.Playlist()
	pl.Tracks = tracks
	return models.RestorePersistedPlaylist(p.ID(), p.Sequence(), p.ExternalID(), p.PlexTitle(), pl, p.CreatedAt(), p.UpdatedAt(), p.DeletedAt()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOne scans a single row into a [models.PersistedPlaylist]
func (r *MatchedPlaylistRepository) scanOne(row *sql.Row) (*models.PersistedPlaylist, error) {
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	return p, err
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedPlaylist]
func (r *MatchedPlaylistRepository) scanRow(rows *sql.Rows) (*models.PersistedPlaylist, error) {
	return scanPlaylist(rows)
}

func scanPlaylist(row rowScanner) (*models.PersistedPlaylist, error) {
	var (
		id           string
		sequence     int
		externalID   string
		name         string
		description  string
		source       string
		plexTitle    string
		matchedCount int
		totalCount   int
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &externalID, &name, &description, &source, &plexTitle, &matchedCount, &totalCount, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	pl := models.MatchedPlaylist{
		Name:         name,
		Description:  description,
		Source:       source,
		MatchedCount: matchedCount,
		TotalCount:   totalCount,
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}
	return models.RestorePersistedPlaylist(id, sequence, externalID, plexTitle, pl, createdAt, updatedAt, deleted), nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: not found or already deleted: %s", shared.ErrPlaylistNotFound, id)
	}
	return nil
}
