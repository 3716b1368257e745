package ui

import (
	"fmt"
	"io"

	"github.com/desertthunder/mixtape/internal/tasks"
)

// Reporter prints progress updates as they arrive. In quiet mode per-track search updates are dropped
// and only phase transitions are printed.
type Reporter struct {
	w     io.Writer
	quiet bool
}

func NewReporter(w io.Writer, quiet bool) *Reporter {
	return &Reporter{w: w, quiet: quiet}
}

// Report satisfies [tasks.ProgressFunc].
func (r *Reporter) Report(u tasks.ProgressUpdate) {
	if r.quiet && u.Phase == tasks.SearchTracks && u.Step > 0 && u.Step < u.Total {
		return
	}

	switch {
	case u.Phase == tasks.SearchTracks && u.Step > 0:
		fmt.Fprintln(r.w, Muted(u.Message))
	case u.Step > 0 && u.Step == u.Total && u.Phase != tasks.SearchTracks:
		fmt.Fprintln(r.w, Success(u.Message))
	default:
		fmt.Fprintln(r.w, u.Message)
	}
}
