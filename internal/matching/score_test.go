package matching

import (
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
)

func TestScore(t *testing.T) {
	settings := DefaultSettings()
	hurt := models.ExternalTrack{Title: "Hurt", Artist: "Johnny Cash"}

	t.Run("Identical Track Scores 100", func(t *testing.T) {
		got := Score(hurt, models.CandidateTrack{RatingKey: "1", Title: "Hurt", Artist: "Johnny Cash"}, settings)
		if got != 100 {
			t.Errorf("expected 100, got %v", got)
		}
	})

	t.Run("Live Version Scores Lower", func(t *testing.T) {
		studio := Score(hurt, models.CandidateTrack{RatingKey: "1", Title: "Hurt", Artist: "Johnny Cash"}, settings)
		live := Score(hurt, models.CandidateTrack{RatingKey: "2", Title: "Hurt (Live at Austin City Limits)", Artist: "Johnny Cash"}, settings)
		if live >= studio {
			t.Errorf("expected live (%v) to score below studio (%v)", live, studio)
		}
	})

	t.Run("Live Source Not Penalized For Live Candidate", func(t *testing.T) {
		ext := models.ExternalTrack{Title: "Hurt (Live)", Artist: "Johnny Cash"}
		got := Score(ext, models.CandidateTrack{Title: "Hurt (Live)", Artist: "Johnny Cash"}, settings)
		if got != 100 {
			t.Errorf("expected 100 when both titles are live, got %v", got)
		}
	})

	t.Run("Live Penalty Disabled", func(t *testing.T) {
		s := Update(settings, func(s *Settings) { s.PenalizeLiveVersions = false })
		got := Score(hurt, models.CandidateTrack{Title: "Hurt (Live at Austin City Limits)", Artist: "Johnny Cash"}, s)
		if got != 100 {
			t.Errorf("expected no penalty on a near-perfect base without the live toggle, got %v", got)
		}
	})

	t.Run("Penalty Keyword Below Perfect Base", func(t *testing.T) {
		ext := models.ExternalTrack{Title: "Yesterday", Artist: "The Beatles"}
		plain := Score(ext, models.CandidateTrack{Title: "Yesterday", Artist: "Beatles"}, settings)
		demo := Score(ext, models.CandidateTrack{Title: "Yesterday (Demo)", Artist: "Beatles"}, settings)
		if demo >= plain {
			t.Errorf("expected demo (%v) below plain (%v)", demo, plain)
		}
	})

	t.Run("Mono And Live Not Double Counted", func(t *testing.T) {
		ext := models.ExternalTrack{Title: "Yesterday", Artist: "The Beatles"}
		b := Evaluate(ext, models.CandidateTrack{Title: "Yesterday (Live)", Artist: "Beatles"}, settings)
		if b.Penalty != settings.KeywordPenalty {
			t.Errorf("expected a single keyword penalty of %v, got %v (%v)", settings.KeywordPenalty, b.Penalty, b.Reasons)
		}
	})

	t.Run("Mono Version Penalized", func(t *testing.T) {
		got := Score(hurt, models.CandidateTrack{Title: "Hurt (Mono)", Artist: "Johnny Cash"}, settings)
		if got >= 100 {
			t.Errorf("expected mono version below 100, got %v", got)
		}
	})

	t.Run("Compilation Penalized", func(t *testing.T) {
		regular := Score(hurt, models.CandidateTrack{Title: "Hurt", Artist: "Johnny Cash", AlbumArtist: "Johnny Cash"}, settings)
		compilation := Score(hurt, models.CandidateTrack{Title: "Hurt", Artist: "Johnny Cash", AlbumArtist: "Various Artists"}, settings)
		if compilation >= regular {
			t.Errorf("expected compilation (%v) below regular (%v)", compilation, regular)
		}

		flagged := Score(hurt, models.CandidateTrack{Title: "Hurt", Artist: "Johnny Cash", Compilation: true}, settings)
		if flagged >= regular {
			t.Errorf("expected compilation flag (%v) below regular (%v)", flagged, regular)
		}
	})

	t.Run("Priority Keyword Bonus Is Capped", func(t *testing.T) {
		s := Update(settings, func(s *Settings) {
			s.PriorityKeywords = []string{"original", "stereo", "remastered"}
			s.MaxPriorityBonus = 4
		})
		ext := models.ExternalTrack{Title: "Help", Artist: "The Beatles"}
		b := Evaluate(ext, models.CandidateTrack{Title: "Help! (Original Stereo Remastered)", Artist: "The Beatles"}, s)
		if b.Bonus != 4 {
			t.Errorf("expected bonus capped at 4, got %v", b.Bonus)
		}
	})

	t.Run("Low Rating", func(t *testing.T) {
		s := Update(settings, func(s *Settings) {
			s.PreferHigherRated = true
			s.MinRatingForMatch = 6
		})
		ext := models.ExternalTrack{Title: "Yesterday", Artist: "The Beatles"}

		rated := Score(ext, models.CandidateTrack{Title: "Yesterday", Artist: "Beatles", Rating: 8}, s)
		low := Score(ext, models.CandidateTrack{Title: "Yesterday", Artist: "Beatles", Rating: 2}, s)
		unrated := Score(ext, models.CandidateTrack{Title: "Yesterday", Artist: "Beatles"}, s)
		if low >= rated {
			t.Errorf("expected low rated (%v) below rated (%v)", low, rated)
		}
		if unrated != rated {
			t.Errorf("expected unrated (%v) to score like rated (%v)", unrated, rated)
		}

		perfect := Score(hurt, models.CandidateTrack{Title: "Hurt", Artist: "Johnny Cash", Rating: 2}, s)
		if perfect != 100 {
			t.Errorf("perfect match should ignore low rating, got %v", perfect)
		}
	})

	t.Run("Empty Artist Is A Worse Match", func(t *testing.T) {
		ext := models.ExternalTrack{Title: "Song", Artist: "feat. Somebody"}
		got := Score(ext, models.CandidateTrack{Title: "Song", Artist: "Somebody"}, settings)
		if got <= 0 || got >= 100 {
			t.Errorf("expected a partial score, got %v", got)
		}
	})

	t.Run("Both Artists Empty After Normalization", func(t *testing.T) {
		ext := models.ExternalTrack{Title: "Song", Artist: "!!!"}
		b := Evaluate(ext, models.CandidateTrack{Title: "Song", Artist: "???"}, settings)
		if b.ArtistSimilarity != 0 {
			t.Errorf("expected no artist similarity for empty artists, got %v", b.ArtistSimilarity)
		}
		if b.Score >= 100 {
			t.Errorf("expected a worse than perfect match, got %v", b.Score)
		}
	})

	t.Run("Score Stays In Range", func(t *testing.T) {
		s := Update(settings, func(s *Settings) {
			s.KeywordPenalty = 500
			s.PriorityBonus = 500
			s.MaxPriorityBonus = 0
		})
		ext := models.ExternalTrack{Title: "abc", Artist: "xyz"}
		low := Score(ext, models.CandidateTrack{Title: "Karaoke Demo", Artist: "Nobody"}, s)
		high := Score(hurt, models.CandidateTrack{Title: "Hurt Remastered", Artist: "Johnny Cash"}, s)
		if low < 0 || low > 100 || high < 0 || high > 100 {
			t.Errorf("scores out of range: %v, %v", low, high)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		c := models.CandidateTrack{Title: "Hurt (Live)", Artist: "Johnny Cash & June Carter"}
		want := Score(hurt, c, settings)
		for range 25 {
			if got := Score(hurt, c, settings); got != want {
				t.Fatalf("score changed between calls: %v then %v", want, got)
			}
		}
	})
}

func TestBestMatch(t *testing.T) {
	settings := DefaultSettings()
	ext := models.ExternalTrack{Title: "Jolene", Artist: "Dolly Parton"}

	t.Run("No Candidates", func(t *testing.T) {
		if _, _, ok := BestMatch(ext, nil, settings); ok {
			t.Error("expected ok=false for no candidates")
		}
	})

	t.Run("Picks Highest", func(t *testing.T) {
		candidates := []models.CandidateTrack{
			{RatingKey: "1", Title: "Jolene (Live)", Artist: "Dolly Parton"},
			{RatingKey: "2", Title: "Jolene", Artist: "Dolly Parton"},
			{RatingKey: "3", Title: "Islands in the Stream", Artist: "Dolly Parton"},
		}
		best, score, ok := BestMatch(ext, candidates, settings)
		if !ok || best.RatingKey != "2" {
			t.Errorf("expected rating key 2, got %q (ok=%v)", best.RatingKey, ok)
		}
		if score != 100 {
			t.Errorf("expected 100, got %v", score)
		}
	})

	t.Run("First Wins Ties", func(t *testing.T) {
		candidates := []models.CandidateTrack{
			{RatingKey: "a", Title: "Jolene", Artist: "Dolly Parton"},
			{RatingKey: "b", Title: "Jolene", Artist: "Dolly Parton"},
		}
		best, _, _ := BestMatch(ext, candidates, settings)
		if best.RatingKey != "a" {
			t.Errorf("expected first candidate on tie, got %q", best.RatingKey)
		}
	})
}

func TestSimilarity(t *testing.T) {
	tc := []struct {
		name   string
		a, b   string
		metric Metric
		min    float64
		max    float64
	}{
		{name: "equal", a: "hurt", b: "hurt", metric: MetricTokenSort, min: 100, max: 100},
		{name: "both empty", a: "", b: "", metric: MetricTokenSort, min: 0, max: 0},
		{name: "both empty token set", a: "", b: "", metric: MetricTokenSet, min: 0, max: 0},
		{name: "both empty jaro winkler", a: "", b: "", metric: MetricJaroWinkler, min: 0, max: 0},
		{name: "one empty", a: "hurt", b: "", metric: MetricTokenSort, min: 0, max: 0},
		{name: "reordered tokens", a: "cash johnny", b: "johnny cash", metric: MetricTokenSort, min: 100, max: 100},
		{name: "reordered jaro winkler", a: "cash johnny", b: "johnny cash", metric: MetricJaroWinkler, min: 99.99, max: 100},
		{name: "token set subset", a: "yesterday", b: "yesterday once more", metric: MetricTokenSet, min: 100, max: 100},
		{name: "token sort subset", a: "yesterday", b: "yesterday once more", metric: MetricTokenSort, min: 1, max: 99},
		{name: "unrelated", a: "jolene", b: "bohemian rhapsody", metric: MetricTokenSort, min: 0, max: 40},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b, tt.metric)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q, %s) = %v, want within [%v, %v]", tt.a, tt.b, tt.metric, got, tt.min, tt.max)
			}
		})
	}
}
