// Package repositories implements SQLite persistence for matching runs and mix history, and the matching settings file.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [MatchedPlaylistRepository] : Matched playlists with their per-track results, written transactionally
//   - [MixRunRepository] : Mix generation history, created or skipped
//   - [SettingsFile] : Matching settings as TOML, guarded by a file lock
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42, playlist #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
