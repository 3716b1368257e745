package tasks

import (
	"fmt"

	"github.com/desertthunder/mixtape/internal/mixes"
	"github.com/desertthunder/mixtape/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// ProgressFunc receives progress updates synchronously, in order.
type ProgressFunc func(ProgressUpdate)

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	SearchTracks
	SavePlaylist
	CreatePlaylist
	BuildMix
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case SearchTracks:
		return "search_tracks"
	case SavePlaylist:
		return "save_playlist"
	case CreatePlaylist:
		return "create_playlist"
	case BuildMix:
		return "build_mix"
	default:
		return ""
	}
}

func fetchingSourceUpdate(source, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s from %s...", id, source),
	}
}

func foundPlaylistUpdate(pl *models.ExternalPlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", pl.Name, len(pl.Tracks)),
		Data:    pl,
	}
}

func searchTracksUpdate(step, total int, label string) ProgressUpdate {
	if label == "" {
		return ProgressUpdate{
			Phase:   SearchTracks,
			Step:    step,
			Total:   total,
			Message: "Searching for tracks in the Plex library...",
		}
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, label),
	}
}

func savedPlaylistUpdate(p *models.PersistedPlaylist, updated bool) ProgressUpdate {
	verb := "Saved"
	if updated {
		verb = "Updated"
	}
	return ProgressUpdate{
		Phase:   SavePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%s matching run #%d", verb, p.Sequence()),
		Data:    p,
	}
}

func createPlaylistUpdate(step int, title string, tracks int) ProgressUpdate {
	msg := fmt.Sprintf("Creating Plex playlist %q with %d tracks...", title, tracks)
	if step > 0 {
		msg = fmt.Sprintf("Playlist created: %s (%d tracks)", title, tracks)
	}
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    step,
		Total:   1,
		Message: msg,
	}
}

func buildMixUpdate(step, total int, r *mixes.Result) ProgressUpdate {
	if r == nil {
		return ProgressUpdate{
			Phase:   BuildMix,
			Step:    step,
			Total:   total,
			Message: "Building mixes...",
		}
	}

	var msg string
	switch {
	case r.Err != nil:
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, r.Title, r.Err)
	case r.Created:
		msg = fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, r.Title, r.Tracks)
	default:
		msg = fmt.Sprintf("[%d/%d] - %s skipped (%d tracks)", step, total, r.Title, r.Tracks)
	}
	return ProgressUpdate{
		Phase:   BuildMix,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    *r,
	}
}
