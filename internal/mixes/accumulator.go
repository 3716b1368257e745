package mixes

import (
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
)

// accumulator collects tracks for one build. A key is accepted once, and no artist exceeds maxPerArtist when it is positive.
type accumulator struct {
	tracks       []models.CandidateTrack
	seen         map[string]bool
	perArtist    map[string]int
	maxPerArtist int
}

func newAccumulator(maxPerArtist int) *accumulator {
	return &accumulator{
		seen:         make(map[string]bool),
		perArtist:    make(map[string]int),
		maxPerArtist: maxPerArtist,
	}
}

// add appends t unless it is a duplicate or its artist is already at the bound.
func (a *accumulator) add(t models.CandidateTrack) bool {
	if t.RatingKey == "" || a.seen[t.RatingKey] {
		return false
	}
	artist := artistIdentity(t.Artist)
	if a.maxPerArtist > 0 && a.perArtist[artist] >= a.maxPerArtist {
		return false
	}

	a.seen[t.RatingKey] = true
	a.perArtist[artist]++
	a.tracks = append(a.tracks, t)
	return true
}

// addUpTo adds tracks in order until n of them have been accepted. n <= 0 accepts none.
func (a *accumulator) addUpTo(tracks []models.CandidateTrack, n int) int {
	added := 0
	for _, t := range tracks {
		if added >= n {
			break
		}
		if a.add(t) {
			added++
		}
	}
	return added
}

// exclude marks key as already used without adding it.
func (a *accumulator) exclude(key string) {
	a.seen[key] = true
}

func (a *accumulator) len() int {
	return len(a.tracks)
}

func (a *accumulator) keys() []string {
	out := make([]string, len(a.tracks))
	for i, t := range a.tracks {
		out[i] = t.RatingKey
	}
	return out
}

func artistIdentity(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
