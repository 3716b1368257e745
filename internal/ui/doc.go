// Package ui styles terminal output for the command line.
//
// A fixed [Palette] of [lipgloss] styles backs the helpers ([Title], [Success], [Error], [Warning], [Muted]);
// [Score] colors a match score against the acceptance threshold.
//
// [Reporter] renders [tasks.ProgressUpdate] values as plain lines, one per update, in the order they arrive.
package ui
