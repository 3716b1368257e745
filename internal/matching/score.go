package matching

import (
	"math"

	"github.com/desertthunder/mixtape/internal/models"
)

// Breakdown explains how a score was reached.
type Breakdown struct {
	ExternalTitle    string   `json:"externalTitle"`
	ExternalArtist   string   `json:"externalArtist"`
	CandidateTitle   string   `json:"candidateTitle"`
	CandidateArtist  string   `json:"candidateArtist"`
	TitleSimilarity  float64  `json:"titleSimilarity"`
	ArtistSimilarity float64  `json:"artistSimilarity"`
	Base             float64  `json:"base"`
	Bonus            float64  `json:"bonus"`
	Penalty          float64  `json:"penalty"`
	Score            float64  `json:"score"`
	Reasons          []string `json:"reasons,omitempty"`
}

// Score returns the confidence in [0, 100] that candidate is the library copy of external.
func Score(external models.ExternalTrack, candidate models.CandidateTrack, s Settings) float64 {
	return Evaluate(external, candidate, s).Score
}

// Accepted reports whether score clears the configured threshold.
func Accepted(score float64, s Settings) bool {
	return score >= s.MinMatchScore
}

// Evaluate scores candidate against external and records each adjustment.
func Evaluate(external models.ExternalTrack, candidate models.CandidateTrack, s Settings) Breakdown {
	b := Breakdown{
		ExternalTitle:   Normalize(external.Title, RoleTitle, s),
		ExternalArtist:  Normalize(external.Artist, RoleArtist, s),
		CandidateTitle:  Normalize(candidate.Title, RoleTitle, s),
		CandidateArtist: Normalize(candidate.Artist, RoleArtist, s),
	}

	b.TitleSimilarity = Similarity(b.ExternalTitle, b.CandidateTitle, s.Metric)
	b.ArtistSimilarity = Similarity(b.ExternalArtist, b.CandidateArtist, s.Metric)
	b.Base = weighted(b.TitleSimilarity, b.ArtistSimilarity, s)

	rawExternal := fold(external.Title)
	rawCandidate := fold(candidate.Title)
	introduced := func(keyword string) bool {
		return containsWord(rawCandidate, keyword) && !containsWord(rawExternal, keyword)
	}

	for _, kw := range s.PriorityKeywords {
		if introduced(kw) {
			b.Bonus += s.PriorityBonus
			b.Reasons = append(b.Reasons, "priority keyword: "+kw)
		}
	}
	if s.MaxPriorityBonus > 0 {
		b.Bonus = math.Min(b.Bonus, s.MaxPriorityBonus)
	}

	penalized := make(map[string]bool)
	if b.Base < s.PerfectThreshold {
		for _, kw := range s.PenaltyKeywords {
			key := fold(kw)
			if penalized[key] || !introduced(kw) {
				continue
			}
			penalized[key] = true
			b.Penalty += s.KeywordPenalty
			b.Reasons = append(b.Reasons, "penalty keyword: "+kw)
		}
	}

	if s.PreferNonCompilation && isCompilation(candidate, s) {
		b.Penalty += s.CompilationPenalty
		b.Reasons = append(b.Reasons, "compilation album")
	}

	for _, version := range []struct {
		enabled bool
		keyword string
	}{
		{s.PenalizeMonoVersions, "mono"},
		{s.PenalizeLiveVersions, "live"},
	} {
		if !version.enabled || penalized[version.keyword] || !introduced(version.keyword) {
			continue
		}
		penalized[version.keyword] = true
		b.Penalty += s.KeywordPenalty
		b.Reasons = append(b.Reasons, version.keyword+" version")
	}

	if s.PreferHigherRated && candidate.Rating > 0 && candidate.Rating < s.MinRatingForMatch {
		if b.Base+b.Bonus-b.Penalty < s.PerfectThreshold {
			b.Penalty += s.LowRatingPenalty
			b.Reasons = append(b.Reasons, "below minimum rating")
		}
	}

	b.Score = clamp(b.Base + b.Bonus - b.Penalty)
	return b
}

// BestMatch returns the highest scoring candidate. The earliest candidate wins a tie.
// ok is false when there are no candidates.
func BestMatch(external models.ExternalTrack, candidates []models.CandidateTrack, s Settings) (best models.CandidateTrack, score float64, ok bool) {
	for _, c := range candidates {
		got := Score(external, c, s)
		if !ok || got > score {
			best, score, ok = c, got, true
		}
	}
	return best, score, ok
}

func weighted(title, artist float64, s Settings) float64 {
	total := s.TitleWeight + s.ArtistWeight
	if total <= 0 {
		return 0
	}
	return (s.TitleWeight*title + s.ArtistWeight*artist) / total
}

func isCompilation(c models.CandidateTrack, s Settings) bool {
	if c.Compilation {
		return true
	}
	return c.AlbumArtist != "" && IsSentinelArtist(c.AlbumArtist, s)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
