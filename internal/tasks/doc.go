// Package tasks orchestrates playlist imports and mix generation with progress reporting.
//
// # Imports
//
// [PlaylistEngine.Import] runs a fixed pipeline:
//
//  1. Fetch the playlist from a [services.PlaylistSource] (Spotify or a playlist file)
//  2. Match each track against the library with [matching.Matcher]
//  3. Optionally save the run, updating an earlier run of the same source playlist
//  4. Optionally create a Plex playlist from the matched rating keys
//
// # Mixes
//
// [MixEngine] wraps [mixes.Generator]. Every attempt, created or skipped, is recorded as a [models.MixRun]
// so the history command can report what ran and why a mix was skipped.
//
// # Progress Reporting
//
// Progress is delivered through a synchronous [ProgressFunc] on the calling goroutine. Updates are never dropped and
// arrive in order; a slow callback slows the operation.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
package tasks
