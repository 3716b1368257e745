package mixes

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Kind names a mix.
type Kind string

const (
	KindWeekly      Kind = "weekly"
	KindDaily       Kind = "daily"
	KindTimeCapsule Kind = "time_capsule"
	KindNewMusic    Kind = "new_music"
	KindCustom      Kind = "custom"
)

// NamedKinds lists the fixed mixes in the order [Generator.GenerateAll] builds them.
var NamedKinds = []Kind{KindWeekly, KindDaily, KindTimeCapsule, KindNewMusic}

// Minimum track counts for a named mix to be created.
const (
	MinWeeklyTracks      = 5
	MinDailyTracks       = 20
	MinTimeCapsuleTracks = 5
	MinNewMusicTracks    = 5
)

// Title returns the playlist title used for the mix.
func (k Kind) Title() string {
	switch k {
	case KindWeekly:
		return "Weekly Mix"
	case KindDaily:
		return "Daily Mix"
	case KindTimeCapsule:
		return "Time Capsule"
	case KindNewMusic:
		return "New Music Mix"
	default:
		return "Custom Mix"
	}
}

// ParseKind accepts a kind name or a short alias such as "capsule" or "new".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "weekly":
		return KindWeekly, nil
	case "daily":
		return KindDaily, nil
	case "time_capsule", "capsule", "timecapsule":
		return KindTimeCapsule, nil
	case "new_music", "new", "newmusic":
		return KindNewMusic, nil
	case "custom":
		return KindCustom, nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrUnknownMix, s)
	}
}

// NamedConfig holds the fixed parameters of the named mixes.
type NamedConfig struct {
	WeeklyTopArtists        int
	WeeklyTracksPerArtist   int
	WeeklyWindowDays        int
	WeeklyFallbackDays      int
	WeeklyMinHistory        int
	DailySeedCount          int
	DailyRelatedBudget      int
	DailyRediscoveryCount   int
	DailyStaleDays          int
	TimeCapsuleStaleDays    int
	TimeCapsuleMaxPerArtist int
	TimeCapsuleLimit        int
	NewMusicAlbumCount      int
	NewMusicTracksPerAlbum  int
}

// DefaultNamedConfig returns the stock named-mix parameters.
func DefaultNamedConfig() NamedConfig {
	return NamedConfig{
		WeeklyTopArtists:        10,
		WeeklyTracksPerArtist:   5,
		WeeklyWindowDays:        7,
		WeeklyFallbackDays:      30,
		WeeklyMinHistory:        20,
		DailySeedCount:          10,
		DailyRelatedBudget:      30,
		DailyRediscoveryCount:   10,
		DailyStaleDays:          90,
		TimeCapsuleStaleDays:    365,
		TimeCapsuleMaxPerArtist: 2,
		TimeCapsuleLimit:        50,
		NewMusicAlbumCount:      10,
		NewMusicTracksPerAlbum:  3,
	}
}

// NamedConfigFrom maps the [mix] config section onto a NamedConfig, keeping defaults for unset values.
func NamedConfigFrom(c shared.MixConfig) NamedConfig {
	cfg := DefaultNamedConfig()
	set := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	set(&cfg.WeeklyTopArtists, c.WeeklyTopArtists)
	set(&cfg.WeeklyTracksPerArtist, c.WeeklyTracksPerArtist)
	set(&cfg.DailySeedCount, c.DailySeedCount)
	set(&cfg.DailyRelatedBudget, c.DailyRelatedBudget)
	set(&cfg.DailyRediscoveryCount, c.DailyRediscoveryCount)
	set(&cfg.DailyStaleDays, c.DailyStaleDays)
	set(&cfg.TimeCapsuleStaleDays, c.TimeCapsuleStaleDays)
	set(&cfg.TimeCapsuleMaxPerArtist, c.TimeCapsuleMaxPerArtist)
	set(&cfg.TimeCapsuleLimit, c.TimeCapsuleLimit)
	set(&cfg.NewMusicAlbumCount, c.NewMusicAlbumCount)
	set(&cfg.NewMusicTracksPerAlbum, c.NewMusicTracksPerAlbum)
	return cfg
}

// Result is the outcome of one named mix.
type Result struct {
	Kind    Kind
	Title   string
	Created bool
	Tracks  int
	Err     error
}

// Summary aggregates a batch of named mixes.
type Summary struct {
	Created int
	Results []Result
}

// Generator builds the named mixes and creates them as playlists.
type Generator struct {
	*Builder
	cfg NamedConfig
}

// NewGenerator creates a [Generator] sharing b's library, settings, clock and random source.
func NewGenerator(b *Builder, cfg NamedConfig) *Generator {
	return &Generator{Builder: b, cfg: cfg}
}

// Weekly builds the Weekly Mix. It reports false when too few tracks were found.
func (g *Generator) Weekly(ctx context.Context) (bool, error) {
	r := g.Generate(ctx, KindWeekly)
	return r.Created, r.Err
}

// Daily builds the Daily Mix. It reports false when too few tracks were found.
func (g *Generator) Daily(ctx context.Context) (bool, error) {
	r := g.Generate(ctx, KindDaily)
	return r.Created, r.Err
}

// TimeCapsule builds the Time Capsule mix. It reports false when too few tracks were found.
func (g *Generator) TimeCapsule(ctx context.Context) (bool, error) {
	r := g.Generate(ctx, KindTimeCapsule)
	return r.Created, r.Err
}

// NewMusic builds the New Music Mix. It reports false when too few tracks were found.
func (g *Generator) NewMusic(ctx context.Context) (bool, error) {
	r := g.Generate(ctx, KindNewMusic)
	return r.Created, r.Err
}

// GenerateAll builds every named mix. A mix that fails or comes up short does not stop the others.
func (g *Generator) GenerateAll(ctx context.Context) Summary {
	var s Summary
	for _, kind := range NamedKinds {
		r := g.Generate(ctx, kind)
		if r.Created {
			s.Created++
		}
		s.Results = append(s.Results, r)
	}
	g.logger.Info("generated mixes", "created", s.Created, "attempted", len(s.Results))
	return s
}

// Generate builds a single named mix and creates its playlist when it meets the minimum size.
func (g *Generator) Generate(ctx context.Context, kind Kind) Result {
	r := Result{Kind: kind, Title: kind.Title()}

	var (
		keys    []string
		minimum int
		err     error
	)
	switch kind {
	case KindWeekly:
		keys, err = g.weeklyKeys(ctx)
		minimum = MinWeeklyTracks
	case KindDaily:
		keys, err = g.dailyKeys(ctx)
		minimum = MinDailyTracks
	case KindTimeCapsule:
		keys, err = g.timeCapsuleKeys(ctx)
		minimum = MinTimeCapsuleTracks
	case KindNewMusic:
		keys, err = g.newMusicKeys(ctx)
		minimum = MinNewMusicTracks
	default:
		r.Err = fmt.Errorf("%w: %q is not a named mix", shared.ErrUnknownMix, kind)
		return r
	}

	r.Tracks = len(keys)
	if err != nil {
		g.logger.Error("mix build failed", "mix", r.Title, "error", err)
		r.Err = err
		return r
	}

	if len(keys) < minimum {
		g.logger.Info("not enough tracks, skipping playlist", "mix", r.Title, "tracks", len(keys), "minimum", minimum)
		return r
	}

	if err := g.lib.CreatePlaylist(ctx, r.Title, keys); err != nil {
		g.logger.Error("playlist creation failed", "mix", r.Title, "error", err)
		r.Err = fmt.Errorf("create %s: %w", r.Title, err)
		return r
	}

	g.logger.Info("created mix", "mix", r.Title, "tracks", len(keys))
	r.Created = true
	return r
}

// Custom builds a mix from opts and creates it as a playlist named opts.Name, or "Custom Mix" when unnamed.
// An empty mix is reported through [shared.ErrNotEnoughTracks] and no playlist is created.
func (g *Generator) Custom(ctx context.Context, opts Options) Result {
	r := Result{Kind: KindCustom, Title: opts.Name}
	if r.Title == "" {
		r.Title = KindCustom.Title()
	}

	keys, err := g.Build(ctx, opts)
	if err != nil {
		r.Err = err
		return r
	}
	r.Tracks = len(keys)
	if len(keys) == 0 {
		r.Err = fmt.Errorf("%w: %s matched no tracks", shared.ErrNotEnoughTracks, r.Title)
		return r
	}

	if err := g.lib.CreatePlaylist(ctx, r.Title, keys); err != nil {
		r.Err = fmt.Errorf("create %s: %w", r.Title, err)
		return r
	}
	g.logger.Info("created mix", "mix", r.Title, "tracks", len(keys))
	r.Created = true
	return r
}

func (g *Generator) weeklyKeys(ctx context.Context) ([]string, error) {
	history, err := g.lib.History(ctx, models.HistoryQuery{Since: g.daysAgo(g.cfg.WeeklyWindowDays)})
	if err != nil {
		return nil, err
	}
	if len(history) < g.cfg.WeeklyMinHistory {
		g.logger.Debug("short weekly history, widening window", "plays", len(history), "days", g.cfg.WeeklyFallbackDays)
		if history, err = g.lib.History(ctx, models.HistoryQuery{Since: g.daysAgo(g.cfg.WeeklyFallbackDays)}); err != nil {
			return nil, err
		}
	}

	acc := newAccumulator(UnlimitedPerArtist)
	for _, artist := range g.rankArtists(history, g.cfg.WeeklyTopArtists) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, ok := g.resolveArtistKey(ctx, artist.Name, artist.ArtistKey)
		if !ok {
			continue
		}
		tracks, err := g.lib.ArtistTopTracks(ctx, key, g.cfg.WeeklyTracksPerArtist)
		if err != nil {
			g.logger.Warn("top tracks lookup failed", "artist", artist.Name, "error", err)
			continue
		}
		acc.addUpTo(tracks, g.cfg.WeeklyTracksPerArtist)
	}
	return acc.keys(), nil
}

// dailyKeys spreads a related-track budget over the most recent plays, then mixes in tracks not heard for a while.
// The seed tracks themselves are left out.
func (g *Generator) dailyKeys(ctx context.Context) ([]string, error) {
	history, err := g.lib.History(ctx, models.HistoryQuery{Limit: g.cfg.DailySeedCount * 4})
	if err != nil {
		return nil, err
	}

	acc := newAccumulator(UnlimitedPerArtist)
	var seeds []models.HistoryEntry
	for _, e := range history {
		if len(seeds) == g.cfg.DailySeedCount {
			break
		}
		if e.RatingKey == "" || acc.seen[e.RatingKey] {
			continue
		}
		acc.exclude(e.RatingKey)
		seeds = append(seeds, e)
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	budget := g.cfg.DailyRelatedBudget
	perSeed := (budget + len(seeds) - 1) / len(seeds)
	added := 0
	for _, seed := range seeds {
		if added >= budget {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		related := g.relatedTracks(ctx, seed, perSeed)
		g.rng.Shuffle(len(related), func(i, j int) { related[i], related[j] = related[j], related[i] })
		added += acc.addUpTo(related, min(perSeed, budget-added))
	}

	stale, err := g.lib.ListTracks(ctx, models.TrackFilter{
		PlayState:    models.PlayPlayed,
		PlayedBefore: g.daysAgo(g.cfg.DailyStaleDays),
		Random:       true,
		Limit:        g.cfg.DailyRediscoveryCount * 3,
	})
	if err != nil {
		g.logger.Warn("rediscovery lookup failed", "error", err)
		return acc.keys(), nil
	}

	cutoff := g.daysAgo(g.cfg.DailyStaleDays)
	stale = slices.DeleteFunc(stale, func(t models.CandidateTrack) bool {
		return !t.LastViewedAt.IsZero() && !t.LastViewedAt.Before(cutoff)
	})
	acc.addUpTo(stale, g.cfg.DailyRediscoveryCount)
	return acc.keys(), nil
}

// relatedTracks gathers tracks sharing the seed's album or artist.
func (g *Generator) relatedTracks(ctx context.Context, seed models.HistoryEntry, perSeed int) []models.CandidateTrack {
	var related []models.CandidateTrack
	if seed.AlbumKey != "" {
		tracks, err := g.lib.AlbumTracks(ctx, seed.AlbumKey)
		if err != nil {
			g.logger.Warn("album tracks lookup failed", "album", seed.AlbumKey, "error", err)
		}
		related = append(related, tracks...)
	}
	if key, ok := g.resolveArtistKey(ctx, seed.Artist, seed.ArtistKey); ok {
		tracks, err := g.lib.ArtistTopTracks(ctx, key, perSeed*2)
		if err != nil {
			g.logger.Warn("top tracks lookup failed", "artist", seed.Artist, "error", err)
		}
		related = append(related, tracks...)
	}
	return related
}

func (g *Generator) timeCapsuleKeys(ctx context.Context) ([]string, error) {
	tracks, err := g.lib.TimeCapsule(ctx, models.TimeCapsuleQuery{
		PlayedBefore: g.daysAgo(g.cfg.TimeCapsuleStaleDays),
		MaxPerArtist: g.cfg.TimeCapsuleMaxPerArtist,
		Limit:        g.cfg.TimeCapsuleLimit,
	})
	if err != nil {
		return nil, err
	}

	acc := newAccumulator(g.cfg.TimeCapsuleMaxPerArtist)
	for _, t := range tracks {
		acc.add(t)
	}
	return acc.keys(), nil
}

func (g *Generator) newMusicKeys(ctx context.Context) ([]string, error) {
	albums, err := g.lib.RecentlyAddedAlbums(ctx, g.cfg.NewMusicAlbumCount)
	if err != nil {
		return nil, err
	}

	acc := newAccumulator(UnlimitedPerArtist)
	for _, album := range truncate(albums, g.cfg.NewMusicAlbumCount) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tracks, err := g.lib.AlbumTracks(ctx, album.RatingKey)
		if err != nil {
			g.logger.Warn("album tracks lookup failed", "album", album.Title, "error", err)
			continue
		}
		tracks = slices.Clone(tracks)
		g.rng.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })
		acc.addUpTo(tracks, g.cfg.NewMusicTracksPerAlbum)
	}
	return acc.keys(), nil
}
