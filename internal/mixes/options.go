package mixes

import (
	"fmt"
	"strings"

	"github.com/desertthunder/mixtape/internal/shared"
)

// Source selects the base candidate pool of a custom mix.
type Source string

const (
	SourceAll            Source = "all"
	SourcePlayed         Source = "played"
	SourceUnplayed       Source = "unplayed"
	SourceRecentlyPlayed Source = "recently_played"
	SourceTopArtists     Source = "top_artists"
)

// SortBy orders the base pool before it is truncated.
type SortBy string

const (
	SortNone           SortBy = "none"
	SortRandom         SortBy = "random"
	SortMostPlayed     SortBy = "most_played"
	SortLeastPlayed    SortBy = "least_played"
	SortRecentlyAdded  SortBy = "recently_added"
	SortRecentlyPlayed SortBy = "recently_played"
	SortRating         SortBy = "rating"
	SortTitle          SortBy = "title"
)

// UnlimitedPerArtist disables the per-artist bound. Any value <= 0 does the same.
const UnlimitedPerArtist = 0

// Options configures a single custom mix build.
type Options struct {
	Name string

	Source          Source
	HistoryDays     int
	TopArtistsCount int
	TracksPerArtist int

	Genre           string
	MinRating       float64
	YearFrom        int
	YearTo          int
	AddedWithinDays int

	TrackCount   int
	MaxPerArtist int
	SortBy       SortBy
	Shuffle      bool

	SimilarTracks            bool
	SimilarTracksPerSeed     int
	SimilarArtists           bool
	SimilarArtistsCount      int
	TracksFromSimilarArtists int
}

// DefaultOptions returns the options used when a custom mix is requested without overrides.
func DefaultOptions() Options {
	return Options{
		Name:                     "Custom Mix",
		Source:                   SourceAll,
		HistoryDays:              30,
		TopArtistsCount:          10,
		TracksPerArtist:          5,
		TrackCount:               50,
		MaxPerArtist:             UnlimitedPerArtist,
		SortBy:                   SortRandom,
		SimilarTracksPerSeed:     3,
		SimilarArtistsCount:      5,
		TracksFromSimilarArtists: 3,
	}
}

// Validate rejects options the builder cannot honour.
func (o Options) Validate() error {
	if _, err := ParseSource(string(o.Source)); err != nil {
		return err
	}
	if _, err := ParseSortBy(string(o.SortBy)); err != nil {
		return err
	}
	if o.TrackCount < 0 {
		return fmt.Errorf("%w: track count must not be negative", shared.ErrInvalidMixOptions)
	}
	if o.YearFrom > 0 && o.YearTo > 0 && o.YearFrom > o.YearTo {
		return fmt.Errorf("%w: year range %d-%d is empty", shared.ErrInvalidMixOptions, o.YearFrom, o.YearTo)
	}
	if (o.Source == SourceRecentlyPlayed || o.Source == SourceTopArtists) && o.HistoryDays <= 0 {
		return fmt.Errorf("%w: %s needs a positive history window", shared.ErrInvalidMixOptions, o.Source)
	}
	if o.Source == SourceTopArtists && (o.TopArtistsCount <= 0 || o.TracksPerArtist <= 0) {
		return fmt.Errorf("%w: top_artists needs positive artist and per-artist counts", shared.ErrInvalidMixOptions)
	}
	if o.MinRating < 0 || o.MinRating > 10 {
		return fmt.Errorf("%w: minimum rating must be within 0-10", shared.ErrInvalidMixOptions)
	}
	return nil
}

// ParseSource parses a source name. The empty string selects [SourceAll].
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToLower(strings.TrimSpace(s))); src {
	case "":
		return SourceAll, nil
	case SourceAll, SourcePlayed, SourceUnplayed, SourceRecentlyPlayed, SourceTopArtists:
		return src, nil
	default:
		return "", fmt.Errorf("%w: unknown source %q", shared.ErrInvalidMixOptions, s)
	}
}

// ParseSortBy parses a sort name. The empty string selects [SortNone].
func ParseSortBy(s string) (SortBy, error) {
	switch sort := SortBy(strings.ToLower(strings.TrimSpace(s))); sort {
	case "":
		return SortNone, nil
	case SortNone, SortRandom, SortMostPlayed, SortLeastPlayed, SortRecentlyAdded, SortRecentlyPlayed, SortRating, SortTitle:
		return sort, nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", shared.ErrInvalidMixOptions, s)
	}
}
