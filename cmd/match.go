package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/desertthunder/mixtape/internal/ui"
)

// MatchRun fetches a playlist from Spotify or a file and matches it against the library.
func (r *Runner) MatchRun(ctx context.Context, cmd *cli.Command) error {
	ref, err := services.ParseSourceRef(cmd.StringArg("playlist"))
	if err != nil {
		return err
	}

	settings, err := r.loadSettings(cmd)
	if err != nil {
		return err
	}

	src, err := r.source(ctx, ref)
	if err != nil {
		return err
	}
	searcher, err := r.searcher(ctx)
	if err != nil {
		return err
	}

	var (
		store   tasks.PlaylistStore
		creator tasks.PlaylistCreator
	)
	if cmd.Bool("save") {
		repo, err := r.playlists()
		if err != nil {
			return err
		}
		store = repo
	}
	if cmd.Bool("create") {
		plex, err := r.plexClient()
		if err != nil {
			return err
		}
		creator = plex
	}

	engine := tasks.NewPlaylistEngine(matching.NewMatcher(searcher, r.logger), store, creator, r.logger)

	var progress io.Writer = r.output
	if cmd.Bool("json") {
		progress = io.Discard
	}
	reporter := ui.NewReporter(progress, cmd.Bool("quiet"))

	opts := tasks.ImportOpts{
		Settings:       settings,
		Save:           cmd.Bool("save"),
		CreatePlaylist: cmd.Bool("create"),
		Title:          cmd.String("title"),
	}
	result, err := engine.Import(ctx, src, ref.ID, opts, reporter.Report)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result.Matched, true)
	}

	r.writePlainln("")
	r.writePlainHeader(ui.Title(result.Matched.Name))
	r.writePlain("%s\n", formatter.TrackTable(result.Matched))
	r.writePlain("Matched %d of %d tracks (%s)\n",
		result.Matched.MatchedCount, result.Matched.TotalCount, formatter.Percent(result.Matched.MatchedCount, result.Matched.TotalCount))
	if result.Persisted != nil {
		r.writePlain("Saved as run #%d (%s)\n", result.Persisted.Sequence(), result.Persisted.ID())
	}
	if result.PlexTitle != "" {
		r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ Created Plex playlist %q", result.PlexTitle)))
	}
	return nil
}

// MatchList lists saved matching runs, newest first.
func (r *Runner) MatchList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.playlists()
	if err != nil {
		return err
	}

	playlists, err := repo.List(map[string]any{
		"source": cmd.String("source"),
		"limit":  cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		out := make([]models.MatchedPlaylist, 0, len(playlists))
		for _, p := range playlists {
			out = append(out, p.Playlist())
		}
		return r.writeJSON(out, true)
	}

	if len(playlists) == 0 {
		return r.writePlain("%s\n", ui.Muted("No saved matching runs. Run 'mixtape match run' first."))
	}
	return r.writePlain("%s\n", formatter.PlaylistTable(playlists))
}

// MatchShow prints the per-track results of a saved run.
func (r *Runner) MatchShow(ctx context.Context, cmd *cli.Command) error {
	p, err := r.findPlaylist(cmd)
	if err != nil {
		return err
	}

	pl := p.Playlist()
	if cmd.Bool("unmatched") {
		pl.Tracks = pl.Unmatched()
	}

	if cmd.Bool("json") {
		return r.writeJSON(pl, true)
	}

	r.writePlainHeader(ui.Title(pl.Name))
	r.writePlain("Run #%d · %s · updated %s\n", p.Sequence(), pl.Source, p.UpdatedAt().Local().Format("2006-01-02 15:04"))
	if p.PlexTitle() != "" {
		r.writePlain("Plex playlist: %s\n", p.PlexTitle())
	}
	r.writePlain("Matched %d of %d tracks (%s)\n\n", pl.MatchedCount, pl.TotalCount, formatter.Percent(pl.MatchedCount, pl.TotalCount))
	return r.writePlain("%s\n", formatter.TrackTable(&pl))
}

// MatchExport writes a saved run to a file.
func (r *Runner) MatchExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	p, err := r.findPlaylist(cmd)
	if err != nil {
		return err
	}

	pl := p.Playlist()
	path, err := formatter.WriteExport(&pl, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("exported playlist", "id", p.ID(), "format", format, "path", path)
	return r.writePlain("%s\n", ui.Success("✓ Exported to "+path))
}

// MatchExplain searches the library for one track and shows the score breakdown of each candidate.
func (r *Runner) MatchExplain(ctx context.Context, cmd *cli.Command) error {
	settings, err := r.loadSettings(cmd)
	if err != nil {
		return err
	}
	searcher, err := r.searcher(ctx)
	if err != nil {
		return err
	}

	track := models.ExternalTrack{Title: cmd.String("title"), Artist: cmd.String("artist")}
	query := matching.SearchQuery(track, settings)
	candidates, err := searcher.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}

	breakdowns := make([]matching.Breakdown, 0, len(candidates))
	for _, c := range candidates {
		breakdowns = append(breakdowns, matching.Evaluate(track, c, settings))
	}
	slices.SortStableFunc(breakdowns, func(a, b matching.Breakdown) int { return cmp.Compare(b.Score, a.Score) })
	if limit := cmd.Int("limit"); limit > 0 && len(breakdowns) > limit {
		breakdowns = breakdowns[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(breakdowns, true)
	}

	r.writePlain("Query: %s\n", query)
	r.writePlain("Normalized: %s - %s\n",
		matching.Normalize(track.Artist, matching.RoleArtist, settings), matching.Normalize(track.Title, matching.RoleTitle, settings))
	r.writePlain("Threshold: %.1f\n\n", settings.MinMatchScore)
	if len(breakdowns) == 0 {
		return r.writePlain("%s\n", ui.Warning("No candidates found"))
	}

	rows := make([][]string, 0, len(breakdowns))
	for _, b := range breakdowns {
		rows = append(rows, []string{
			b.CandidateArtist + " - " + b.CandidateTitle,
			strconv.FormatFloat(b.TitleSimilarity, 'f', 1, 64),
			strconv.FormatFloat(b.ArtistSimilarity, 'f', 1, 64),
			fmt.Sprintf("+%.1f / -%.1f", b.Bonus, b.Penalty),
			ui.Score(b.Score, settings.MinMatchScore),
			strings.Join(b.Reasons, "; "),
		})
	}
	return r.writePlain("%s\n", formatter.RenderTable(
		[]string{"Candidate", "Title", "Artist", "Adjust", "Score", "Reasons"},
		rows,
		[]formatter.Alignment{formatter.AlignLeft, formatter.AlignRight, formatter.AlignRight, formatter.AlignRight, formatter.AlignRight, formatter.AlignLeft},
	))
}

// MatchDelete soft-deletes a saved run.
func (r *Runner) MatchDelete(ctx context.Context, cmd *cli.Command) error {
	p, err := r.findPlaylist(cmd)
	if err != nil {
		return err
	}

	repo, err := r.playlists()
	if err != nil {
		return err
	}
	if err := repo.Delete(p.ID()); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Success(fmt.Sprintf("✓ Deleted run #%d (%s)", p.Sequence(), p.Playlist().Name)))
}

func (r *Runner) findPlaylist(cmd *cli.Command) (*models.PersistedPlaylist, error) {
	repo, err := r.playlists()
	if err != nil {
		return nil, err
	}
	return repo.FindByIDPrefix(cmd.StringArg("id"))
}

// loadSettings reads the matching settings file and applies the per-run --min-score override.
func (r *Runner) loadSettings(cmd *cli.Command) (matching.Settings, error) {
	settings, err := r.settingsFile().Load()
	if err != nil {
		return matching.Settings{}, err
	}

	if cmd.IsSet("min-score") {
		settings = matching.Update(settings, func(s *matching.Settings) { s.MinMatchScore = cmd.Float("min-score") })
		if err := settings.Validate(); err != nil {
			return matching.Settings{}, fmt.Errorf("%w: --min-score: %v", shared.ErrInvalidFlag, err)
		}
	}
	return settings, nil
}
