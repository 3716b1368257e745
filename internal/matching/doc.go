// Package matching decides whether an external (title, artist) pair is a track in the Plex library.
//
// [Normalize] reduces titles and artists to a comparison form, [Score] turns a pair of tracks into a 0-100
// confidence, and [Matcher] runs a whole playlist through a [Searcher] one track at a time.
// Every function takes its [Settings] explicitly; there is no package-level configuration.
package matching
