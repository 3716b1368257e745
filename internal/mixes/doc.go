// Package mixes assembles generated playlists from the listening history and contents of a [Library].
//
// A [Builder] runs the custom mix pipeline: source selection, filtering and sorting, optional similar-track and
// similar-artist expansion, and an optional final shuffle. Every phase appends through the same accumulator, so a
// track key appears at most once and no artist exceeds the per-artist bound.
//
// A [Generator] builds the fixed Weekly, Daily, Time Capsule and New Music mixes on top of the same primitives.
package mixes
