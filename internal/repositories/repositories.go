// package repositories provides persistence layer implementations for the persisted model types.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations, soft deletes, and sequence generation.
package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
)

var (
	_ models.Repository[*models.PersistedPlaylist] = (*MatchedPlaylistRepository)(nil)
	_ models.Repository[*models.MixRun]            = (*MixRunRepository)(nil)
)

// NextSequence increments and returns the counter in table's "<table>_sequence" row.
//
// Sequences give runs a short, human-readable number ("run #3") independent of their UUID.
func NextSequence(db *sql.DB, table string) (int, error) {
	var sequence int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	err := db.QueryRow(query).Scan(&sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sequence for %s is not initialized", table)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return sequence, nil
}
