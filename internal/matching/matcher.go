package matching

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Searcher looks up library tracks for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.CandidateTrack, error)
}

// SearchFunc adapts a plain function to [Searcher].
type SearchFunc func(ctx context.Context, query string) ([]models.CandidateTrack, error)

// Search calls f(ctx, query).
func (f SearchFunc) Search(ctx context.Context, query string) ([]models.CandidateTrack, error) {
	return f(ctx, query)
}

// ProgressFunc is called once per track, after the track is matched.
type ProgressFunc func(current, total int, label string)

var querySeparator = regexp.MustCompile(`[,&;]|\s+(?i:and)\s+`)

// Matcher matches external playlists against a library one track at a time.
type Matcher struct {
	searcher Searcher
	logger   *log.Logger
}

// NewMatcher creates a [Matcher] backed by searcher.
func NewMatcher(searcher Searcher, logger *log.Logger) *Matcher {
	return &Matcher{searcher: searcher, logger: shared.LoggerOrDiscard(logger)}
}

// MatchPlaylist matches every track of playlist in order and reports progress after each one.
//
// A failed search marks that track unmatched and the run continues. The only error returned is the context's,
// when it is cancelled between tracks.
func (m *Matcher) MatchPlaylist(ctx context.Context, playlist models.ExternalPlaylist, settings Settings, onProgress ProgressFunc) (*models.MatchedPlaylist, error) {
	s := settings.Clone()
	if onProgress == nil {
		onProgress = func(int, int, string) {}
	}

	total := len(playlist.Tracks)
	result := &models.MatchedPlaylist{
		ID:          playlist.ID,
		Name:        playlist.Name,
		Description: playlist.Description,
		Source:      playlist.Source,
		Tracks:      make([]models.MatchedTrack, 0, total),
	}

	m.logger.Info("matching playlist", "name", playlist.Name, "tracks", total)

	for i, track := range playlist.Tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result.Tracks = append(result.Tracks, m.MatchTrack(ctx, track, s))
		onProgress(i+1, total, track.Label())
	}

	result.Recount()
	m.logger.Info("matched playlist", "name", playlist.Name, "matched", result.MatchedCount, "total", result.TotalCount)
	return result, nil
}

// MatchTrack searches for a single track and accepts the best candidate when it clears the threshold.
func (m *Matcher) MatchTrack(ctx context.Context, track models.ExternalTrack, s Settings) models.MatchedTrack {
	matched := models.MatchedTrack{ExternalTrack: track}
	query := SearchQuery(track, s)

	candidates, err := m.searcher.Search(ctx, query)
	if err != nil {
		m.logger.Warn("library search failed", "query", query, "error", err)
		return matched
	}

	best, score, ok := BestMatch(track, candidates, s)
	switch {
	case !ok:
		m.logger.Debug("no candidates", "query", query)
	case Accepted(score, s):
		matched.Accept(best, score)
		m.logger.Debug("matched", "query", query, "ratingKey", best.RatingKey, "score", score)
	default:
		m.logger.Debug("best candidate below threshold", "query", query, "title", best.Title, "score", score)
	}
	return matched
}

// SearchQuery builds the library query for track: the first credited artist followed by the raw title.
// Multiple artists are always reduced to the first to widen recall, whatever UseFirstArtistOnly says.
func SearchQuery(track models.ExternalTrack, s Settings) string {
	artist := PrimaryArtist(track.Artist, s)
	return strings.TrimSpace(artist + " " + strings.TrimSpace(track.Title))
}

// PrimaryArtist returns the first credited artist of raw with its original casing.
func PrimaryArtist(raw string, s Settings) string {
	artist := strings.TrimSpace(raw)

	cut := len(artist)
	if loc := querySeparator.FindStringIndex(artist); loc != nil {
		cut = loc[0]
	}

	lower, offsets := lowerWithOffsets(artist)
	for _, p := range s.FeaturedArtistPatterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if loc := compiled(wordPattern(p)).FindStringSubmatchIndex(lower); loc != nil && offsets[loc[2]] < cut {
			cut = offsets[loc[2]]
		}
	}
	return strings.TrimSpace(artist[:cut])
}

// lowerWithOffsets lower-cases s rune by rune. offsets[i] is the byte offset in s of the rune that produced
// byte i of the result; offsets[len(result)] is len(s).
func lowerWithOffsets(s string) (string, []int) {
	var b strings.Builder
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		l := strings.ToLower(string(r))
		b.WriteString(l)
		for range len(l) {
			offsets = append(offsets, i)
		}
	}
	offsets = append(offsets, len(s))
	return b.String(), offsets
}
