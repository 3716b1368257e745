package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// PlaylistStore persists matching runs.
type PlaylistStore interface {
	Create(p *models.PersistedPlaylist) error
	Update(p *models.PersistedPlaylist) error
	GetByExternalID(source, externalID string) (*models.PersistedPlaylist, error)
}

// PlaylistCreator creates playlists in the media library.
type PlaylistCreator interface {
	CreatePlaylist(ctx context.Context, title string, ratingKeys []string) error
}

// ImportOpts configures a single import.
type ImportOpts struct {
	Settings       matching.Settings // Matching settings for this run
	Save           bool              // Persist the matched playlist
	CreatePlaylist bool              // Create a Plex playlist from the matched tracks
	Title          string            // Plex playlist title (default: source playlist name)
}

// ImportResult contains all data from an import.
type ImportResult struct {
	Source    *models.ExternalPlaylist  // Playlist as fetched from the source
	Matched   *models.MatchedPlaylist   // Per-track match results
	Persisted *models.PersistedPlaylist // Stored record, nil unless saved
	PlexTitle string                    // Title of the created Plex playlist, empty unless created
}

// MatchPercentage returns the share of matched tracks, 0-100.
func (r *ImportResult) MatchPercentage() float64 {
	if r.Matched == nil || r.Matched.TotalCount == 0 {
		return 0
	}
	return float64(r.Matched.MatchedCount) / float64(r.Matched.TotalCount) * 100
}

// PlaylistEngine imports external playlists into the library.
type PlaylistEngine struct {
	matcher *matching.Matcher
	store   PlaylistStore
	creator PlaylistCreator
	logger  *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine. store and creator may be nil when the
// corresponding steps are never requested.
func NewPlaylistEngine(matcher *matching.Matcher, store PlaylistStore, creator PlaylistCreator, logger *log.Logger) *PlaylistEngine {
	return &PlaylistEngine{
		matcher: matcher,
		store:   store,
		creator: creator,
		logger:  shared.LoggerOrDiscard(logger),
	}
}

// Import fetches playlist id from src, matches every track, then optionally saves the run and creates a Plex playlist.
//
// The steps run in that order. A playlist already saved under the same source and external ID is updated in place.
// When a later step fails the result still carries the earlier steps' output.
func (e *PlaylistEngine) Import(ctx context.Context, src services.PlaylistSource, id string, opts ImportOpts, progress ProgressFunc) (*ImportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Save && e.store == nil {
		return nil, fmt.Errorf("%w: playlist store not initialized", shared.ErrServiceUnavailable)
	}
	if opts.CreatePlaylist && e.creator == nil {
		return nil, fmt.Errorf("%w: library not initialized", shared.ErrServiceUnavailable)
	}
	if progress == nil {
		progress = func(ProgressUpdate) {}
	}

	result := &ImportResult{}

	progress(fetchingSourceUpdate(src.Name(), id))
	pl, err := src.FetchPlaylist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch %s playlist %s: %w", src.Name(), id, err)
	}
	if pl.Source == "" {
		pl.Source = src.Name()
	}
	result.Source = pl
	progress(foundPlaylistUpdate(pl))

	total := len(pl.Tracks)
	progress(searchTracksUpdate(0, total, ""))
	matched, err := e.matcher.MatchPlaylist(ctx, *pl, opts.Settings, func(current, total int, label string) {
		progress(searchTracksUpdate(current, total, label))
	})
	if err != nil {
		return result, err
	}
	result.Matched = matched

	if opts.Save {
		persisted, updated, err := e.save(*matched)
		if err != nil {
			return result, err
		}
		result.Persisted = persisted
		progress(savedPlaylistUpdate(persisted, updated))
	}

	if opts.CreatePlaylist {
		title := opts.Title
		if title == "" {
			title = matched.Name
		}
		keys := matched.RatingKeys()
		if len(keys) == 0 {
			return result, fmt.Errorf("%w: no tracks were matched, cannot create empty playlist", shared.ErrNotEnoughTracks)
		}

		progress(createPlaylistUpdate(0, title, len(keys)))
		if err := e.creator.CreatePlaylist(ctx, title, keys); err != nil {
			return result, fmt.Errorf("create playlist %q: %w", title, err)
		}
		result.PlexTitle = title
		progress(createPlaylistUpdate(1, title, len(keys)))

		if result.Persisted != nil {
			result.Persisted.SetPlexTitle(title)
			if err := e.store.Update(result.Persisted); err != nil {
				e.logger.Warn("failed to record playlist title", "id", result.Persisted.ID(), "error", err)
			}
		}
	}

	e.logger.Info("imported playlist", "name", matched.Name, "matched", matched.MatchedCount, "total", matched.TotalCount)
	return result, nil
}

// save stores p, replacing an earlier run of the same source playlist when there is one.
func (e *PlaylistEngine) save(p models.MatchedPlaylist) (*models.PersistedPlaylist, bool, error) {
	existing, err := e.store.GetByExternalID(p.Source, p.ID)
	switch {
	case err == nil:
		existing.SetPlaylist(p)
		if err := e.store.Update(existing); err != nil {
			return nil, false, fmt.Errorf("update matched playlist: %w", err)
		}
		return existing, true, nil
	case errors.Is(err, shared.ErrPlaylistNotFound):
		persisted := models.NewPersistedPlaylist(p, p.ID)
		if err := e.store.Create(persisted); err != nil {
			return nil, false, fmt.Errorf("save matched playlist: %w", err)
		}
		return persisted, false, nil
	default:
		return nil, false, fmt.Errorf("look up matched playlist: %w", err)
	}
}
