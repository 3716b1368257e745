package matching

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/mixtape/internal/shared"
)

// Metric selects the string-similarity function used for titles and artists.
type Metric string

const (
	MetricTokenSort   Metric = "token_sort"
	MetricTokenSet    Metric = "token_set"
	MetricJaroWinkler Metric = "jaro_winkler"
)

// Settings controls normalization and scoring. Pass it by value into every call; a run works on the copy it was given.
type Settings struct {
	MinMatchScore float64 `toml:"min_match_score" json:"minMatchScore"`

	StripParentheses      bool `toml:"strip_parentheses" json:"stripParentheses"`
	StripBrackets         bool `toml:"strip_brackets" json:"stripBrackets"`
	UseFirstArtistOnly    bool `toml:"use_first_artist_only" json:"useFirstArtistOnly"`
	IgnoreFeaturedArtists bool `toml:"ignore_featured_artists" json:"ignoreFeaturedArtists"`
	IgnoreRemixInfo       bool `toml:"ignore_remix_info" json:"ignoreRemixInfo"`
	IgnoreVersionInfo     bool `toml:"ignore_version_info" json:"ignoreVersionInfo"`
	PreferNonCompilation  bool `toml:"prefer_non_compilation" json:"preferNonCompilation"`
	PenalizeMonoVersions  bool `toml:"penalize_mono_versions" json:"penalizeMonoVersions"`
	PenalizeLiveVersions  bool `toml:"penalize_live_versions" json:"penalizeLiveVersions"`
	PreferHigherRated     bool `toml:"prefer_higher_rated" json:"preferHigherRated"`

	MinRatingForMatch float64 `toml:"min_rating_for_match" json:"minRatingForMatch"`

	FeaturedArtistPatterns []string `toml:"featured_artist_patterns" json:"featuredArtistPatterns"`
	VersionSuffixPatterns  []string `toml:"version_suffix_patterns" json:"versionSuffixPatterns"`
	CustomStripPatterns    []string `toml:"custom_strip_patterns" json:"customStripPatterns"`
	PriorityKeywords       []string `toml:"priority_keywords" json:"priorityKeywords"`
	PenaltyKeywords        []string `toml:"penalty_keywords" json:"penaltyKeywords"`
	VariousArtistsNames    []string `toml:"various_artists_names" json:"variousArtistsNames"`

	Metric             Metric  `toml:"metric" json:"metric"`
	TitleWeight        float64 `toml:"title_weight" json:"titleWeight"`
	ArtistWeight       float64 `toml:"artist_weight" json:"artistWeight"`
	PriorityBonus      float64 `toml:"priority_bonus" json:"priorityBonus"`
	MaxPriorityBonus   float64 `toml:"max_priority_bonus" json:"maxPriorityBonus"`
	KeywordPenalty     float64 `toml:"keyword_penalty" json:"keywordPenalty"`
	CompilationPenalty float64 `toml:"compilation_penalty" json:"compilationPenalty"`
	LowRatingPenalty   float64 `toml:"low_rating_penalty" json:"lowRatingPenalty"`
	PerfectThreshold   float64 `toml:"perfect_threshold" json:"perfectThreshold"`
}

var (
	DefaultFeaturedArtistPatterns = []string{"featuring", "feat.", "feat", "ft.", "ft"}
	DefaultVersionSuffixPatterns  = []string{
		"remastered", "remaster", "radio edit", "single version", "album version",
		"original mix", "extended mix", "club mix", "remix", "mono", "stereo",
		"explicit", "clean", "bonus track", "deluxe edition", "live",
	}
	DefaultCustomStripPatterns = []string{"official audio", "official video", "official music video", "lyric video"}
	DefaultPriorityKeywords    = []string{"remastered", "remaster"}
	DefaultPenaltyKeywords     = []string{
		"live", "demo", "instrumental", "karaoke", "acoustic", "remix",
		"cover", "tribute", "rehearsal", "mono", "commentary",
	}
	DefaultVariousArtistsNames = []string{
		"various artists", "various", "va", "unknown artist", "unknown",
		"soundtrack", "original soundtrack", "original cast",
	}
)

// DefaultSettings returns a complete, valid settings value.
func DefaultSettings() Settings {
	return Settings{
		MinMatchScore:         60,
		StripParentheses:      true,
		StripBrackets:         true,
		UseFirstArtistOnly:    true,
		IgnoreFeaturedArtists: true,
		IgnoreRemixInfo:       false,
		IgnoreVersionInfo:     false,
		PreferNonCompilation:  true,
		PenalizeMonoVersions:  true,
		PenalizeLiveVersions:  true,
		PreferHigherRated:     false,
		MinRatingForMatch:     6,

		FeaturedArtistPatterns: slices.Clone(DefaultFeaturedArtistPatterns),
		VersionSuffixPatterns:  slices.Clone(DefaultVersionSuffixPatterns),
		CustomStripPatterns:    slices.Clone(DefaultCustomStripPatterns),
		PriorityKeywords:       slices.Clone(DefaultPriorityKeywords),
		PenaltyKeywords:        slices.Clone(DefaultPenaltyKeywords),
		VariousArtistsNames:    slices.Clone(DefaultVariousArtistsNames),

		Metric:             MetricTokenSort,
		TitleWeight:        0.6,
		ArtistWeight:       0.4,
		PriorityBonus:      3,
		MaxPriorityBonus:   6,
		KeywordPenalty:     10,
		CompilationPenalty: 5,
		LowRatingPenalty:   5,
		PerfectThreshold:   99,
	}
}

// Clone returns a deep copy, so later edits to the pattern lists do not leak into a run already in progress.
func (s Settings) Clone() Settings {
	s.FeaturedArtistPatterns = slices.Clone(s.FeaturedArtistPatterns)
	s.VersionSuffixPatterns = slices.Clone(s.VersionSuffixPatterns)
	s.CustomStripPatterns = slices.Clone(s.CustomStripPatterns)
	s.PriorityKeywords = slices.Clone(s.PriorityKeywords)
	s.PenaltyKeywords = slices.Clone(s.PenaltyKeywords)
	s.VariousArtistsNames = slices.Clone(s.VariousArtistsNames)
	return s
}

// Validate reports values the scorer cannot work with.
func (s Settings) Validate() error {
	if s.MinMatchScore < 0 || s.MinMatchScore > 100 {
		return fmt.Errorf("%w: min_match_score must be within 0-100, got %v", shared.ErrInvalidSettings, s.MinMatchScore)
	}
	if s.TitleWeight < 0 || s.ArtistWeight < 0 || s.TitleWeight+s.ArtistWeight <= 0 {
		return fmt.Errorf("%w: title and artist weights must be non-negative and not both zero", shared.ErrInvalidSettings)
	}
	if s.PerfectThreshold <= 0 || s.PerfectThreshold > 100 {
		return fmt.Errorf("%w: perfect_threshold must be within (0, 100]", shared.ErrInvalidSettings)
	}
	if s.MinRatingForMatch < 0 || s.MinRatingForMatch > 10 {
		return fmt.Errorf("%w: min_rating_for_match must be within 0-10", shared.ErrInvalidSettings)
	}
	switch s.Metric {
	case MetricTokenSort, MetricTokenSet, MetricJaroWinkler:
	default:
		return fmt.Errorf("%w: unknown metric %q", shared.ErrInvalidSettings, s.Metric)
	}
	return nil
}

// Update applies fn to a copy of s and returns the copy. s itself is untouched.
func Update(s Settings, fn func(*Settings)) Settings {
	next := s.Clone()
	fn(&next)
	return next
}

// Set returns a copy of s with the named field parsed from value. Keys use the TOML names; list values are comma-separated.
func Set(s Settings, key, value string) (Settings, error) {
	next := s.Clone()
	value = strings.TrimSpace(value)

	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false, got %q", shared.ErrInvalidSettings, key, value)
		}
		*dst = b
		return nil
	}
	parseFloat := func(dst *float64) error {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number, got %q", shared.ErrInvalidSettings, key, value)
		}
		*dst = f
		return nil
	}
	parseList := func(dst *[]string) error {
		*dst = splitList(value)
		return nil
	}

	var err error
	switch key {
	case "min_match_score":
		err = parseFloat(&next.MinMatchScore)
	case "strip_parentheses":
		err = parseBool(&next.StripParentheses)
	case "strip_brackets":
		err = parseBool(&next.StripBrackets)
	case "use_first_artist_only":
		err = parseBool(&next.UseFirstArtistOnly)
	case "ignore_featured_artists":
		err = parseBool(&next.IgnoreFeaturedArtists)
	case "ignore_remix_info":
		err = parseBool(&next.IgnoreRemixInfo)
	case "ignore_version_info":
		err = parseBool(&next.IgnoreVersionInfo)
	case "prefer_non_compilation":
		err = parseBool(&next.PreferNonCompilation)
	case "penalize_mono_versions":
		err = parseBool(&next.PenalizeMonoVersions)
	case "penalize_live_versions":
		err = parseBool(&next.PenalizeLiveVersions)
	case "prefer_higher_rated":
		err = parseBool(&next.PreferHigherRated)
	case "min_rating_for_match":
		err = parseFloat(&next.MinRatingForMatch)
	case "featured_artist_patterns":
		err = parseList(&next.FeaturedArtistPatterns)
	case "version_suffix_patterns":
		err = parseList(&next.VersionSuffixPatterns)
	case "custom_strip_patterns":
		err = parseList(&next.CustomStripPatterns)
	case "priority_keywords":
		err = parseList(&next.PriorityKeywords)
	case "penalty_keywords":
		err = parseList(&next.PenaltyKeywords)
	case "various_artists_names":
		err = parseList(&next.VariousArtistsNames)
	case "metric":
		next.Metric = Metric(value)
	case "title_weight":
		err = parseFloat(&next.TitleWeight)
	case "artist_weight":
		err = parseFloat(&next.ArtistWeight)
	case "priority_bonus":
		err = parseFloat(&next.PriorityBonus)
	case "max_priority_bonus":
		err = parseFloat(&next.MaxPriorityBonus)
	case "keyword_penalty":
		err = parseFloat(&next.KeywordPenalty)
	case "compilation_penalty":
		err = parseFloat(&next.CompilationPenalty)
	case "low_rating_penalty":
		err = parseFloat(&next.LowRatingPenalty)
	case "perfect_threshold":
		err = parseFloat(&next.PerfectThreshold)
	default:
		return s, fmt.Errorf("%w: unknown setting %q", shared.ErrInvalidSettings, key)
	}
	if err != nil {
		return s, err
	}

	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

// Keys lists the names accepted by [Set].
func Keys() []string {
	return []string{
		"min_match_score", "strip_parentheses", "strip_brackets", "use_first_artist_only",
		"ignore_featured_artists", "ignore_remix_info", "ignore_version_info",
		"prefer_non_compilation", "penalize_mono_versions", "penalize_live_versions",
		"prefer_higher_rated", "min_rating_for_match",
		"featured_artist_patterns", "version_suffix_patterns", "custom_strip_patterns",
		"priority_keywords", "penalty_keywords", "various_artists_names",
		"metric", "title_weight", "artist_weight", "priority_bonus", "max_priority_bonus",
		"keyword_penalty", "compilation_penalty", "low_rating_penalty", "perfect_threshold",
	}
}

func splitList(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RemixKeywords returns the version suffix patterns that refer to remixes.
func RemixKeywords(s Settings) []string {
	var out []string
	for _, p := range s.VersionSuffixPatterns {
		if strings.Contains(strings.ToLower(p), "remix") {
			out = append(out, p)
		}
	}
	return out
}

// IsSentinelArtist reports whether name is a placeholder such as "Various Artists" or "Unknown".
// Empty names count as sentinels.
func IsSentinelArtist(name string, s Settings) bool {
	folded := strings.TrimSpace(fold(name))
	if folded == "" {
		return true
	}
	for _, sentinel := range s.VariousArtistsNames {
		if folded == strings.TrimSpace(fold(sentinel)) {
			return true
		}
	}
	return false
}
