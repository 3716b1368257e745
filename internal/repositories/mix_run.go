package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

const mixRunColumns = `id, sequence, kind, title, created, track_count, reason, ran_at, created_at, updated_at, deleted_at`

// MixRunRepository stores mix generation history. Runs are rarely updated; Update exists for corrections.
type MixRunRepository struct {
	db *sql.DB
}

// NewMixRunRepository creates a new MixRunRepository with the given database connection
func NewMixRunRepository(db *sql.DB) *MixRunRepository {
	return &MixRunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *MixRunRepository) Create(run *models.MixRun) error {
	sequence, err := NextSequence(r.db, "mix_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO mix_runs (id, sequence, kind, title, created, track_count, reason, ran_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.Kind(),
		run.Title(),
		run.Created(),
		run.TrackCount(),
		run.Reason(),
		run.RanAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert mix run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *MixRunRepository) Get(id string) (*models.MixRun, error) {
	query := `SELECT ` + mixRunColumns + ` FROM mix_runs WHERE id = ? AND deleted_at IS NULL`

	run, err := scanMixRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrMixRunNotFound, id)
	}
	return run, err
}

// Update rewrites the outcome columns of a run
func (r *MixRunRepository) Update(run *models.MixRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE mix_runs
		SET title = ?, created = ?, track_count = ?, reason = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, run.Title(), run.Created(), run.TrackCount(), run.Reason(), time.Now().UTC(), run.ID())
	if err != nil {
		return fmt.Errorf("failed to update mix run: %w", err)
	}
	return r.expectRun(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *MixRunRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE mix_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete mix run: %w", err)
	}
	return r.expectRun(result, id)
}

// List retrieves runs newest first.
//
// Supported criteria: "kind" (string), "created" (bool), "limit" (int).
func (r *MixRunRepository) List(criteria map[string]any) ([]*models.MixRun, error) {
	query := `SELECT ` + mixRunColumns + ` FROM mix_runs WHERE deleted_at IS NULL`
	args := []any{}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if created, ok := criteria["created"].(bool); ok {
		query += " AND created = ?"
		args = append(args, created)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mix runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.MixRun
	for rows.Next() {
		run, err := scanMixRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

func (r *MixRunRepository) expectRun(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrMixRunNotFound, id)
	}
	return nil
}

func scanMixRun(row rowScanner) (*models.MixRun, error) {
	var (
		id         string
		sequence   int
		kind       string
		title      string
		created    bool
		trackCount int
		reason     string
		ranAt      time.Time
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &kind, &title, &created, &trackCount, &reason, &ranAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan mix run: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}
	return models.RestoreMixRun(id, sequence, kind, title, created, trackCount, reason, ranAt, createdAt, updatedAt, deleted), nil
}
