package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/mixes"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/desertthunder/mixtape/internal/ui"
)

// mixResult is the JSON shape of a mix outcome.
type mixResult struct {
	Kind    mixes.Kind `json:"kind"`
	Title   string     `json:"title"`
	Created bool       `json:"created"`
	Tracks  int        `json:"tracks"`
	Error   string     `json:"error,omitempty"`
}

func newMixResult(r mixes.Result) mixResult {
	out := mixResult{Kind: r.Kind, Title: r.Title, Created: r.Created, Tracks: r.Tracks}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// MixCustom builds a custom mix from the command flags.
func (r *Runner) MixCustom(ctx context.Context, cmd *cli.Command) error {
	opts, err := customOptions(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("dry-run") {
		plex, err := r.plexClient()
		if err != nil {
			return err
		}
		settings, err := r.settingsFile().Load()
		if err != nil {
			return err
		}
		keys, err := mixes.NewBuilder(plex, settings, r.logger).Build(ctx, opts)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(keys, true)
		}
		return r.writePlain("%s would contain %d tracks\n", opts.Name, len(keys))
	}

	return r.withMixEngine(ctx, cmd, func(e *tasks.MixEngine, progress tasks.ProgressFunc) error {
		result, err := e.RunCustom(ctx, opts, progress)
		if cmd.Bool("json") {
			if werr := r.writeJSON(newMixResult(result), true); werr != nil {
				return werr
			}
		}
		return err
	})
}

// mixNamed returns the action for a single named mix.
func (r *Runner) mixNamed(kind mixes.Kind) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		return r.withMixEngine(ctx, cmd, func(e *tasks.MixEngine, progress tasks.ProgressFunc) error {
			result, err := e.RunNamed(ctx, kind, progress)
			if cmd.Bool("json") {
				if werr := r.writeJSON(newMixResult(result), true); werr != nil {
					return werr
				}
			}
			return err
		})
	}
}

// MixAll builds every named mix. Individual failures are reported, not returned.
func (r *Runner) MixAll(ctx context.Context, cmd *cli.Command) error {
	return r.withMixEngine(ctx, cmd, func(e *tasks.MixEngine, progress tasks.ProgressFunc) error {
		summary, err := e.RunAll(ctx, progress)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			out := make([]mixResult, 0, len(summary.Results))
			for _, res := range summary.Results {
				out = append(out, newMixResult(res))
			}
			return r.writeJSON(out, true)
		}
		return r.writePlainln("Created %d of %d mixes", summary.Created, len(summary.Results))
	})
}

// MixHistory lists recent mix runs.
func (r *Runner) MixHistory(ctx context.Context, cmd *cli.Command) error {
	criteria := map[string]any{"limit": cmd.Int("limit")}
	if name := cmd.String("kind"); name != "" {
		kind, err := mixes.ParseKind(name)
		if err != nil {
			return err
		}
		criteria["kind"] = string(kind)
	}

	repo, err := r.mixRuns()
	if err != nil {
		return err
	}
	runs, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]map[string]any, 0, len(runs))
		for _, run := range runs {
			out = append(out, map[string]any{
				"id":         run.ID(),
				"sequence":   run.Sequence(),
				"kind":       run.Kind(),
				"title":      run.Title(),
				"created":    run.Created(),
				"trackCount": run.TrackCount(),
				"reason":     run.Reason(),
				"ranAt":      run.RanAt(),
			})
		}
		return r.writeJSON(out, true)
	}

	if len(runs) == 0 {
		return r.writePlain("%s\n", ui.Muted("No mixes have been generated yet."))
	}
	return r.writePlain("%s\n", formatter.MixRunTable(runs))
}

// withMixEngine holds the mix lock while fn runs, so two generations never write playlists at once.
func (r *Runner) withMixEngine(ctx context.Context, cmd *cli.Command, fn func(*tasks.MixEngine, tasks.ProgressFunc) error) error {
	lockPath := r.config.Mix.LockPath
	if lockPath == "" {
		lockPath = filepath.Join(os.TempDir(), "mixtape.lock")
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire mix lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: mix generation already running (%s)", shared.ErrLocked, lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release mix lock", "error", err)
		}
	}()

	plex, err := r.plexClient()
	if err != nil {
		return err
	}
	settings, err := r.settingsFile().Load()
	if err != nil {
		return err
	}
	runs, err := r.mixRuns()
	if err != nil {
		return err
	}

	builder := mixes.NewBuilder(plex, settings, shared.WithLogger(r.logger, "component", "mixes"))
	generator := mixes.NewGenerator(builder, mixes.NamedConfigFrom(r.config.Mix))
	engine := tasks.NewMixEngine(generator, runs, r.logger)

	progress := func(tasks.ProgressUpdate) {}
	if !cmd.Bool("json") {
		progress = ui.NewReporter(r.output, false).Report
	}
	return fn(engine, progress)
}

// customOptions maps the custom mix flags onto [mixes.Options].
func customOptions(cmd *cli.Command) (mixes.Options, error) {
	source, err := mixes.ParseSource(cmd.String("source"))
	if err != nil {
		return mixes.Options{}, err
	}
	sortBy, err := mixes.ParseSortBy(cmd.String("sort"))
	if err != nil {
		return mixes.Options{}, err
	}

	opts := mixes.DefaultOptions()
	opts.Name = cmd.String("name")
	opts.Source = source
	opts.HistoryDays = cmd.Int("history-days")
	opts.TopArtistsCount = cmd.Int("top-artists")
	opts.TracksPerArtist = cmd.Int("tracks-per-artist")
	opts.Genre = cmd.String("genre")
	opts.MinRating = cmd.Float("min-rating")
	opts.YearFrom = cmd.Int("year-from")
	opts.YearTo = cmd.Int("year-to")
	opts.AddedWithinDays = cmd.Int("added-within")
	opts.TrackCount = cmd.Int("count")
	opts.MaxPerArtist = cmd.Int("max-per-artist")
	opts.SortBy = sortBy
	opts.Shuffle = cmd.Bool("shuffle")
	opts.SimilarTracks = cmd.Bool("similar-tracks")
	opts.SimilarTracksPerSeed = cmd.Int("similar-per-seed")
	opts.SimilarArtists = cmd.Bool("similar-artists")
	opts.SimilarArtistsCount = cmd.Int("similar-artists-count")
	opts.TracksFromSimilarArtists = cmd.Int("tracks-per-similar-artist")

	if err := opts.Validate(); err != nil {
		return mixes.Options{}, err
	}
	return opts, nil
}
