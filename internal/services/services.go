// package services defines [PlaylistSource] for reading external playlists and the Plex library client
//
// Spotify, local playlist files, Plex
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// PlaylistSource fetches an external playlist so it can be matched against the library.
type PlaylistSource interface {
	// FetchPlaylist retrieves the playlist identified by id together with all of its tracks.
	FetchPlaylist(ctx context.Context, id string) (*models.ExternalPlaylist, error)

	// Name returns the name of the source (e.g., "spotify", "file")
	Name() string
}

// SourceRef names a playlist within a source, parsed from "spotify:<id>" or a file path.
type SourceRef struct {
	Source string
	ID     string
}

// ParseSourceRef splits ref into a source and an identifier. Anything without a known prefix is a file path.
func ParseSourceRef(ref string) (SourceRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return SourceRef{}, fmt.Errorf("%w: playlist reference", shared.ErrMissingArgument)
	}

	if id, ok := strings.CutPrefix(ref, "spotify:playlist:"); ok {
		return SourceRef{Source: SpotifySourceName, ID: id}, nil
	}
	if id, ok := strings.CutPrefix(ref, "spotify:"); ok {
		return SourceRef{Source: SpotifySourceName, ID: id}, nil
	}
	if strings.HasPrefix(ref, "https://open.spotify.com/playlist/") {
		id := strings.TrimPrefix(ref, "https://open.spotify.com/playlist/")
		id, _, _ = strings.Cut(id, "?")
		return SourceRef{Source: SpotifySourceName, ID: id}, nil
	}
	if path, ok := strings.CutPrefix(ref, "file:"); ok {
		ref = path
	}
	return SourceRef{Source: FileSourceName, ID: ref}, nil
}
