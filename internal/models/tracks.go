package models

import (
	"fmt"
	"time"
)

// ExternalTrack is a title/artist pair from an external source, not yet matched to the library.
type ExternalTrack struct {
	Title  string `json:"title" yaml:"title"`
	Artist string `json:"artist" yaml:"artist"`
	Album  string `json:"album,omitempty" yaml:"album,omitempty"`
}

// Label renders the track as "Artist - Title" for progress output.
func (t ExternalTrack) Label() string {
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// ExternalPlaylist is an ordered list of external tracks from a single source.
type ExternalPlaylist struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Source      string          `json:"source" yaml:"source"`
	Tracks      []ExternalTrack `json:"tracks" yaml:"tracks"`
}

// CandidateTrack is a library track as returned by the Plex search and listing endpoints.
//
// Rating uses the Plex 0-10 scale; zero means the track is unrated.
type CandidateTrack struct {
	RatingKey    string    `json:"ratingKey"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	ArtistKey    string    `json:"artistKey,omitempty"`
	Album        string    `json:"album,omitempty"`
	AlbumKey     string    `json:"albumKey,omitempty"`
	AlbumArtist  string    `json:"albumArtist,omitempty"`
	Compilation  bool      `json:"compilation,omitempty"`
	Rating       float64   `json:"rating,omitempty"`
	Year         int       `json:"year,omitempty"`
	Genres       []string  `json:"genres,omitempty"`
	AddedAt      time.Time `json:"addedAt,omitzero"`
	LastViewedAt time.Time `json:"lastViewedAt,omitzero"`
	ViewCount    int       `json:"viewCount,omitempty"`
}

// Played reports whether the track has been played at least once.
func (t CandidateTrack) Played() bool {
	return t.ViewCount > 0
}

// MatchedTrack is an external track together with the outcome of matching it.
//
// Matched is true exactly when PlexRatingKey and Score are set.
type MatchedTrack struct {
	ExternalTrack
	Matched       bool    `json:"matched"`
	PlexRatingKey string  `json:"plexRatingKey,omitempty"`
	PlexTitle     string  `json:"plexTitle,omitempty"`
	PlexArtist    string  `json:"plexArtist,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

// Accept records candidate as the match for this track.
func (t *MatchedTrack) Accept(candidate CandidateTrack, score float64) {
	t.Matched = true
	t.PlexRatingKey = candidate.RatingKey
	t.PlexTitle = candidate.Title
	t.PlexArtist = candidate.Artist
	t.Score = score
}

// Reject clears any match on the track.
func (t *MatchedTrack) Reject() {
	t.Matched = false
	t.PlexRatingKey = ""
	t.PlexTitle = ""
	t.PlexArtist = ""
	t.Score = 0
}

// MatchedPlaylist is the result of one matching run. Track order follows the source playlist.
type MatchedPlaylist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Source       string         `json:"source"`
	Tracks       []MatchedTrack `json:"tracks"`
	MatchedCount int            `json:"matchedCount"`
	TotalCount   int            `json:"totalCount"`
}

// Recount recomputes MatchedCount and TotalCount from Tracks.
func (p *MatchedPlaylist) Recount() {
	matched := 0
	for _, t := range p.Tracks {
		if t.Matched {
			matched++
		}
	}
	p.MatchedCount = matched
	p.TotalCount = len(p.Tracks)
}

// RatingKeys returns the library keys of matched tracks, in playlist order.
func (p *MatchedPlaylist) RatingKeys() []string {
	keys := make([]string, 0, p.MatchedCount)
	for _, t := range p.Tracks {
		if t.Matched {
			keys = append(keys, t.PlexRatingKey)
		}
	}
	return keys
}

// Unmatched returns the tracks that have no library match.
func (p *MatchedPlaylist) Unmatched() []MatchedTrack {
	var out []MatchedTrack
	for _, t := range p.Tracks {
		if !t.Matched {
			out = append(out, t)
		}
	}
	return out
}

// ArtistRecord identifies an artist in the library.
type ArtistRecord struct {
	RatingKey string `json:"ratingKey"`
	Name      string `json:"name"`
}

// AlbumRecord identifies an album in the library.
type AlbumRecord struct {
	RatingKey string    `json:"ratingKey"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	AddedAt   time.Time `json:"addedAt,omitzero"`
}

// HistoryEntry is a single play from the library's listening history.
type HistoryEntry struct {
	RatingKey string    `json:"ratingKey"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	ArtistKey string    `json:"artistKey,omitempty"`
	AlbumKey  string    `json:"albumKey,omitempty"`
	ViewedAt  time.Time `json:"viewedAt"`
}
