// Package services implements the external systems the matcher and mix builder talk to.
//
// # Playlist Sources
//
// A [PlaylistSource] yields an ordered list of title/artist pairs:
//   - [SpotifySource] reads playlists from the Spotify Web API with the client-credentials grant.
//   - [FileSource] reads YAML or JSON playlist documents from disk.
//
// [ParseSourceRef] maps "spotify:<id>", open.spotify.com links and file paths onto a source.
//
// # Plex
//
// [PlexClient] wraps one music library section. It is the matching.Searcher used to look up candidates
// and the mixes.Library the mix builder reads from. All requests carry the X-Plex-Token header, ask for
// JSON and pass through a [rate.Limiter] sized by plex.requests_per_second.
//
// [CachedSearcher] memoizes searches in a cache.Store so re-running a match does not hit the server again.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAuthFailed] : token rejected (401/403)
//   - [shared.ErrServiceUnavailable] : server unreachable
//   - [shared.ErrAPIRequest] : unexpected HTTP status
//   - [shared.ErrPlaylistNotFound] : playlist ID or file not found
package services
