package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mixtape/internal/mixes"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
)

// RunStore records mix generation attempts.
type RunStore interface {
	Create(run *models.MixRun) error
}

// MixEngine runs mixes and records one [models.MixRun] per attempt.
type MixEngine struct {
	generator *mixes.Generator
	runs      RunStore
	logger    *log.Logger
}

// NewMixEngine creates a MixEngine. runs may be nil, in which case history is not recorded.
func NewMixEngine(generator *mixes.Generator, runs RunStore, logger *log.Logger) *MixEngine {
	return &MixEngine{generator: generator, runs: runs, logger: shared.LoggerOrDiscard(logger)}
}

// RunNamed builds a single named mix. A mix skipped for lack of tracks is not an error; its result has Created false.
func (e *MixEngine) RunNamed(ctx context.Context, kind mixes.Kind, progress ProgressFunc) (mixes.Result, error) {
	if kind == mixes.KindCustom {
		return mixes.Result{}, fmt.Errorf("%w: custom mixes need options", shared.ErrUnknownMix)
	}
	if progress == nil {
		progress = func(ProgressUpdate) {}
	}

	progress(buildMixUpdate(0, 1, nil))
	r := e.generator.Generate(ctx, kind)
	e.record(r)
	progress(buildMixUpdate(1, 1, &r))
	return r, r.Err
}

// RunAll builds every named mix in order. Failures are collected in the summary and never stop later mixes;
// only a cancelled context ends the batch early.
func (e *MixEngine) RunAll(ctx context.Context, progress ProgressFunc) (mixes.Summary, error) {
	if progress == nil {
		progress = func(ProgressUpdate) {}
	}

	var s mixes.Summary
	total := len(mixes.NamedKinds)
	progress(buildMixUpdate(0, total, nil))
	for i, kind := range mixes.NamedKinds {
		if err := ctx.Err(); err != nil {
			return s, err
		}

		r := e.generator.Generate(ctx, kind)
		e.record(r)
		if r.Created {
			s.Created++
		}
		s.Results = append(s.Results, r)
		progress(buildMixUpdate(i+1, total, &r))
	}

	e.logger.Info("generated mixes", "created", s.Created, "attempted", len(s.Results))
	return s, nil
}

// RunCustom builds a custom mix from opts and creates it as a playlist.
func (e *MixEngine) RunCustom(ctx context.Context, opts mixes.Options, progress ProgressFunc) (mixes.Result, error) {
	if progress == nil {
		progress = func(ProgressUpdate) {}
	}

	progress(buildMixUpdate(0, 1, nil))
	r := e.generator.Custom(ctx, opts)
	if !errors.Is(r.Err, shared.ErrInvalidMixOptions) {
		e.record(r)
	}
	progress(buildMixUpdate(1, 1, &r))
	return r, r.Err
}

// record stores r. History is best effort: a failed write is logged, not returned.
func (e *MixEngine) record(r mixes.Result) {
	if e.runs == nil {
		return
	}

	run := models.NewMixRun(string(r.Kind), r.Title, r.Created, r.Tracks, reason(r))
	if err := e.runs.Create(run); err != nil {
		e.logger.Warn("failed to record mix run", "mix", r.Title, "error", err)
	}
}

func reason(r mixes.Result) string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case !r.Created:
		return shared.ErrNotEnoughTracks.Error()
	default:
		return ""
	}
}
