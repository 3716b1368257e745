package mixes

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Expansion caps. They bound how many lookups an expansion phase may issue.
const (
	DefaultMaxSimilarSeeds  = 20
	DefaultMaxSourceArtists = 10
)

// Library is the slice of the media library the builder reads from and writes playlists to.
type Library interface {
	ListTracks(ctx context.Context, filter models.TrackFilter) ([]models.CandidateTrack, error)
	SimilarTracks(ctx context.Context, ratingKey string) ([]models.CandidateTrack, error)
	RelatedArtists(ctx context.Context, artistKey string) ([]models.ArtistRecord, error)
	ResolveArtist(ctx context.Context, name string) (*models.ArtistRecord, error)
	ArtistTopTracks(ctx context.Context, artistKey string, limit int) ([]models.CandidateTrack, error)
	RecentlyAddedAlbums(ctx context.Context, limit int) ([]models.AlbumRecord, error)
	AlbumTracks(ctx context.Context, albumKey string) ([]models.CandidateTrack, error)
	History(ctx context.Context, q models.HistoryQuery) ([]models.HistoryEntry, error)
	TimeCapsule(ctx context.Context, q models.TimeCapsuleQuery) ([]models.CandidateTrack, error)
	CreatePlaylist(ctx context.Context, title string, ratingKeys []string) error
}

// Builder assembles mixes from a [Library]. It is not safe for concurrent use.
type Builder struct {
	lib              Library
	settings         matching.Settings
	logger           *log.Logger
	rng              *rand.Rand
	now              func() time.Time
	maxSimilarSeeds  int
	maxSourceArtists int
}

// BuilderOption customises a [Builder].
type BuilderOption func(*Builder)

// WithRand sets the random source used for shuffling.
func WithRand(r *rand.Rand) BuilderOption {
	return func(b *Builder) { b.rng = r }
}

// WithClock sets the clock used for time windows.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// WithMaxSimilarSeeds caps the base tracks used as similar-track seeds.
func WithMaxSimilarSeeds(n int) BuilderOption {
	return func(b *Builder) { b.maxSimilarSeeds = n }
}

// WithMaxSourceArtists caps the base artists used for similar-artist lookups.
func WithMaxSourceArtists(n int) BuilderOption {
	return func(b *Builder) { b.maxSourceArtists = n }
}

// NewBuilder creates a [Builder]. settings supplies the sentinel artist names.
func NewBuilder(lib Library, settings matching.Settings, logger *log.Logger, opts ...BuilderOption) *Builder {
	b := &Builder{
		lib:              lib,
		settings:         settings.Clone(),
		logger:           shared.LoggerOrDiscard(logger),
		rng:              rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6d6978)),
		now:              time.Now,
		maxSimilarSeeds:  DefaultMaxSimilarSeeds,
		maxSourceArtists: DefaultMaxSourceArtists,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs the custom mix pipeline and returns the rating keys of the mix.
//
// Only a failure to obtain the base pool is returned as an error; failed expansion lookups are logged and skipped.
// The result may exceed TrackCount once expansion phases have run.
func (b *Builder) Build(ctx context.Context, opts Options) ([]string, error) {
	if opts.Source == "" {
		opts.Source = SourceAll
	}
	if opts.SortBy == "" {
		opts.SortBy = SortNone
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	pool, err := b.selectSource(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: select %s tracks: %v", shared.ErrServiceUnavailable, opts.Source, err)
	}

	pool = b.applyFilters(pool, opts)
	b.sortTracks(pool, opts.SortBy)

	acc := newAccumulator(opts.MaxPerArtist)
	for _, t := range pool {
		if opts.TrackCount > 0 && acc.len() >= opts.TrackCount {
			break
		}
		acc.add(t)
	}
	base := slices.Clone(acc.tracks)
	b.logger.Debug("base pool selected", "source", opts.Source, "candidates", len(pool), "selected", len(base))

	if opts.SimilarTracks {
		if err := b.expandSimilarTracks(ctx, acc, base, opts.SimilarTracksPerSeed); err != nil {
			return nil, err
		}
	}
	if opts.SimilarArtists {
		if err := b.expandSimilarArtists(ctx, acc, base, opts.SimilarArtistsCount, opts.TracksFromSimilarArtists); err != nil {
			return nil, err
		}
	}

	keys := acc.keys()
	if opts.Shuffle {
		b.shuffle(keys)
	}

	b.logger.Info("built mix", "name", opts.Name, "tracks", len(keys))
	return keys, nil
}

func (b *Builder) selectSource(ctx context.Context, opts Options) ([]models.CandidateTrack, error) {
	filter := models.TrackFilter{
		Genre:     opts.Genre,
		MinRating: opts.MinRating,
		YearFrom:  opts.YearFrom,
		YearTo:    opts.YearTo,
		Random:    opts.SortBy == SortRandom,
	}
	if opts.AddedWithinDays > 0 {
		filter.AddedSince = b.daysAgo(opts.AddedWithinDays)
	}

	switch opts.Source {
	case SourcePlayed:
		filter.PlayState = models.PlayPlayed
	case SourceUnplayed:
		filter.PlayState = models.PlayUnplayed
	case SourceRecentlyPlayed:
		filter.PlayState = models.PlayPlayed
		filter.PlayedSince = b.daysAgo(opts.HistoryDays)
	case SourceTopArtists:
		return b.topArtistTracks(ctx, opts)
	}

	return b.lib.ListTracks(ctx, filter)
}

// topArtistTracks ranks artists by plays inside the history window and pulls each one's top tracks.
func (b *Builder) topArtistTracks(ctx context.Context, opts Options) ([]models.CandidateTrack, error) {
	history, err := b.lib.History(ctx, models.HistoryQuery{Since: b.daysAgo(opts.HistoryDays)})
	if err != nil {
		return nil, err
	}

	var pool []models.CandidateTrack
	for _, artist := range b.rankArtists(history, opts.TopArtistsCount) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key, ok := b.resolveArtistKey(ctx, artist.Name, artist.ArtistKey)
		if !ok {
			continue
		}
		tracks, err := b.lib.ArtistTopTracks(ctx, key, opts.TracksPerArtist)
		if err != nil {
			b.logger.Warn("top tracks lookup failed", "artist", artist.Name, "error", err)
			continue
		}
		pool = append(pool, truncate(tracks, opts.TracksPerArtist)...)
	}
	return pool, nil
}

func (b *Builder) applyFilters(pool []models.CandidateTrack, opts Options) []models.CandidateTrack {
	var playedSince, addedSince time.Time
	if opts.Source == SourceRecentlyPlayed {
		playedSince = b.daysAgo(opts.HistoryDays)
	}
	if opts.AddedWithinDays > 0 {
		addedSince = b.daysAgo(opts.AddedWithinDays)
	}

	out := pool[:0:0]
	for _, t := range pool {
		switch {
		case opts.Source == SourcePlayed && !t.Played():
		case opts.Source == SourceUnplayed && t.Played():
		case !playedSince.IsZero() && t.LastViewedAt.Before(playedSince):
		case opts.Genre != "" && !hasGenre(t, opts.Genre):
		case opts.MinRating > 0 && t.Rating < opts.MinRating:
		case opts.YearFrom > 0 && t.Year < opts.YearFrom:
		case opts.YearTo > 0 && t.Year > opts.YearTo:
		case !addedSince.IsZero() && t.AddedAt.Before(addedSince):
		default:
			out = append(out, t)
		}
	}
	return out
}

func (b *Builder) sortTracks(pool []models.CandidateTrack, by SortBy) {
	switch by {
	case SortRandom:
		b.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	case SortMostPlayed:
		slices.SortStableFunc(pool, func(x, y models.CandidateTrack) int { return cmp.Compare(y.ViewCount, x.ViewCount) })
	case SortLeastPlayed:
		slices.SortStableFunc(pool, func(x, y models.CandidateTrack) int { return cmp.Compare(x.ViewCount, y.ViewCount) })
	case SortRecentlyAdded:
		slices.SortStableFunc(pool, func(x, y models.CandidateTrack) int { return y.AddedAt.Compare(x.AddedAt) })
	case SortRecentlyPlayed:
		slices.SortStableFunc(pool, func(x, y models.CandidateTrack) int { return y.LastViewedAt.Compare(x.LastViewedAt) })
	case SortRating:
		slices.SortStableFunc(pool, func(x, y models.CandidateTrack) int { return cmp.Compare(y.Rating, x.Rating) })
	case SortTitle:
		slices.SortStableFunc(pool, func(x, y models.CandidateTrack) int {
			return cmp.Compare(strings.ToLower(x.Title), strings.ToLower(y.Title))
		})
	}
}

func (b *Builder) expandSimilarTracks(ctx context.Context, acc *accumulator, base []models.CandidateTrack, perSeed int) error {
	seeds := truncate(base, b.maxSimilarSeeds)
	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return err
		}
		similar, err := b.lib.SimilarTracks(ctx, seed.RatingKey)
		if err != nil {
			b.logger.Warn("similar tracks lookup failed", "seed", seed.RatingKey, "error", err)
			continue
		}
		acc.addUpTo(similar, perSeed)
	}
	return nil
}

// expandSimilarArtists walks related artists of the base pool's artists. limit caps related artists
// with a successful top tracks lookup, across all sources.
func (b *Builder) expandSimilarArtists(ctx context.Context, acc *accumulator, base []models.CandidateTrack, limit, perArtist int) error {
	seen := make(map[string]bool)
	var sources []models.CandidateTrack
	for _, t := range base {
		id := artistIdentity(t.Artist)
		if seen[id] || matching.IsSentinelArtist(t.Artist, b.settings) {
			continue
		}
		seen[id] = true
		if len(sources) < b.maxSourceArtists {
			sources = append(sources, t)
		}
	}

	used := 0
	for _, src := range sources {
		if used >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		key, ok := b.resolveArtistKey(ctx, src.Artist, src.ArtistKey)
		if !ok {
			continue
		}
		related, err := b.lib.RelatedArtists(ctx, key)
		if err != nil {
			b.logger.Warn("related artists lookup failed", "artist", src.Artist, "error", err)
			continue
		}

		for _, r := range related {
			if used >= limit {
				break
			}
			id := artistIdentity(r.Name)
			if seen[id] || matching.IsSentinelArtist(r.Name, b.settings) {
				continue
			}
			seen[id] = true

			tracks, err := b.lib.ArtistTopTracks(ctx, r.RatingKey, perArtist)
			if err != nil {
				b.logger.Warn("top tracks lookup failed", "artist", r.Name, "error", err)
				continue
			}
			used++
			acc.addUpTo(tracks, perArtist)
		}
	}
	return nil
}

// resolveArtistKey returns known when set, otherwise looks the artist up by name.
func (b *Builder) resolveArtistKey(ctx context.Context, name, known string) (string, bool) {
	if known != "" {
		return known, true
	}
	artist, err := b.lib.ResolveArtist(ctx, name)
	if err != nil || artist == nil || artist.RatingKey == "" {
		b.logger.Warn("could not resolve artist", "artist", name, "error", err)
		return "", false
	}
	return artist.RatingKey, true
}

type rankedArtist struct {
	Name      string
	ArtistKey string
	Plays     int
}

// rankArtists counts plays per artist, skipping sentinel names, and returns the top n by plays then name.
func (b *Builder) rankArtists(history []models.HistoryEntry, n int) []rankedArtist {
	index := make(map[string]int)
	var ranked []rankedArtist
	for _, e := range history {
		if matching.IsSentinelArtist(e.Artist, b.settings) {
			continue
		}
		id := artistIdentity(e.Artist)
		i, ok := index[id]
		if !ok {
			i = len(ranked)
			index[id] = i
			ranked = append(ranked, rankedArtist{Name: strings.TrimSpace(e.Artist), ArtistKey: e.ArtistKey})
		}
		ranked[i].Plays++
		if ranked[i].ArtistKey == "" {
			ranked[i].ArtistKey = e.ArtistKey
		}
	}

	slices.SortStableFunc(ranked, func(x, y rankedArtist) int {
		if c := cmp.Compare(y.Plays, x.Plays); c != 0 {
			return c
		}
		return cmp.Compare(artistIdentity(x.Name), artistIdentity(y.Name))
	})
	return truncate(ranked, n)
}

// shuffle permutes keys uniformly in place.
func (b *Builder) shuffle(keys []string) {
	b.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
}

func (b *Builder) daysAgo(days int) time.Time {
	return b.now().AddDate(0, 0, -days)
}

func hasGenre(t models.CandidateTrack, genre string) bool {
	for _, g := range t.Genres {
		if strings.EqualFold(strings.TrimSpace(g), strings.TrimSpace(genre)) {
			return true
		}
	}
	return false
}

func truncate[T any](items []T, n int) []T {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}
