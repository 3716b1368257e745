// Package models defines domain entities and persistence interfaces for the mixtape matching and mix service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs exchanged between sources, the matcher, and the library
//   - [ExternalTrack] / [ExternalPlaylist] : Tracks and playlists from streaming services or files
//   - [CandidateTrack] : A Plex library track returned by search or listing calls
//   - [MatchedTrack] / [MatchedPlaylist] : The outcome of matching an external playlist against the library
//   - [ArtistRecord], [AlbumRecord], [HistoryEntry] : Library records consumed by the mix builder
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedPlaylist] : A stored matching run with its per-track results
//   - [MixRun] : One named or custom mix generation attempt
//
// Both persistent entities implement [SoftDeletable]; [Repository] is the CRUD surface the SQLite layer provides for them.
package models
