package models

import "time"

// PlayState restricts a track listing by whether tracks have been played.
type PlayState int

const (
	PlayAny PlayState = iota
	PlayPlayed
	PlayUnplayed
)

// TrackFilter narrows a library track listing. Zero values mean "no restriction".
type TrackFilter struct {
	PlayState    PlayState
	PlayedSince  time.Time // last played at or after
	PlayedBefore time.Time // last played strictly before
	Genre        string
	MinRating    float64
	YearFrom     int
	YearTo       int
	AddedSince   time.Time
	ArtistKey    string
	Random       bool
	Limit        int
}

// HistoryQuery selects listening history, newest first.
type HistoryQuery struct {
	Since time.Time
	Limit int
}

// TimeCapsuleQuery asks for favourites that have not been played for a while.
// The library bounds each artist to MaxPerArtist tracks.
type TimeCapsuleQuery struct {
	PlayedBefore time.Time
	MaxPerArtist int
	Limit        int
}
