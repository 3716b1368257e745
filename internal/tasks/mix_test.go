package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/mixes"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	tu "github.com/desertthunder/mixtape/internal/testing"
)

var mixNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fakeRuns struct {
	runs []*models.MixRun
	err  error
}

func (f *fakeRuns) Create(run *models.MixRun) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, run)
	return nil
}

func newTestMixEngine(lib *tu.MockLibrary, runs RunStore) *MixEngine {
	b := mixes.NewBuilder(lib, matching.DefaultSettings(), nil,
		mixes.WithRand(rand.New(rand.NewPCG(1, 2))),
		mixes.WithClock(func() time.Time { return mixNow }),
	)
	return NewMixEngine(mixes.NewGenerator(b, mixes.DefaultNamedConfig()), runs, nil)
}

func capsuleTracks(n int) []models.CandidateTrack {
	out := make([]models.CandidateTrack, 0, n)
	for i := range n {
		out = append(out, models.CandidateTrack{
			RatingKey: fmt.Sprintf("c%d", i),
			Artist:    fmt.Sprintf("Artist %d", i),
		})
	}
	return out
}

func TestMixEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("Named Mix Recorded", func(t *testing.T) {
		lib := &tu.MockLibrary{CapsuleTracks: capsuleTracks(6)}
		runs := &fakeRuns{}

		var updates []ProgressUpdate
		r, err := newTestMixEngine(lib, runs).RunNamed(ctx, mixes.KindTimeCapsule, func(u ProgressUpdate) {
			updates = append(updates, u)
		})
		if err != nil || !r.Created {
			t.Fatalf("expected created mix, got %+v, %v", r, err)
		}

		if len(runs.runs) != 1 {
			t.Fatalf("expected 1 run, got %d", len(runs.runs))
		}
		run := runs.runs[0]
		if run.Kind() != "time_capsule" || run.Title() != "Time Capsule" || !run.Created() || run.TrackCount() != 6 || run.Reason() != "" {
			t.Errorf("unexpected run: kind=%s title=%s created=%v tracks=%d reason=%q",
				run.Kind(), run.Title(), run.Created(), run.TrackCount(), run.Reason())
		}
		if len(updates) != 2 || updates[1].Phase != BuildMix {
			t.Errorf("unexpected updates: %+v", updates)
		}
	})

	t.Run("Skipped Mix Records Reason", func(t *testing.T) {
		lib := &tu.MockLibrary{CapsuleTracks: capsuleTracks(2)}
		runs := &fakeRuns{}

		r, err := newTestMixEngine(lib, runs).RunNamed(ctx, mixes.KindTimeCapsule, nil)
		if err != nil || r.Created {
			t.Fatalf("expected skipped mix without error, got %+v, %v", r, err)
		}
		if runs.runs[0].Reason() != shared.ErrNotEnoughTracks.Error() {
			t.Errorf("unexpected reason: %q", runs.runs[0].Reason())
		}
	})

	t.Run("Custom Kind Rejected", func(t *testing.T) {
		_, err := newTestMixEngine(&tu.MockLibrary{}, nil).RunNamed(ctx, mixes.KindCustom, nil)
		if !errors.Is(err, shared.ErrUnknownMix) {
			t.Errorf("expected ErrUnknownMix, got %v", err)
		}
	})

	t.Run("Run All", func(t *testing.T) {
		lib := &tu.MockLibrary{
			HistoryErr:    shared.ErrServiceUnavailable,
			CapsuleTracks: capsuleTracks(6),
		}
		runs := &fakeRuns{}

		var steps []int
		s, err := newTestMixEngine(lib, runs).RunAll(ctx, func(u ProgressUpdate) { steps = append(steps, u.Step) })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Created != 1 || len(s.Results) != 4 {
			t.Errorf("expected 1 of 4 created, got %d of %d", s.Created, len(s.Results))
		}
		if len(runs.runs) != 4 {
			t.Errorf("expected every attempt recorded, got %d", len(runs.runs))
		}
		if len(steps) != 5 || steps[4] != 4 {
			t.Errorf("unexpected progress steps: %v", steps)
		}
	})

	t.Run("Run All Cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		s, err := newTestMixEngine(&tu.MockLibrary{}, nil).RunAll(cctx, nil)
		if !errors.Is(err, context.Canceled) || len(s.Results) != 0 {
			t.Errorf("expected cancellation before any mix, got %v with %d results", err, len(s.Results))
		}
	})

	t.Run("Custom", func(t *testing.T) {
		lib := &tu.MockLibrary{Tracks: capsuleTracks(3)}
		runs := &fakeRuns{}

		opts := mixes.DefaultOptions()
		opts.Name = "Focus"
		r, err := newTestMixEngine(lib, runs).RunCustom(ctx, opts, nil)
		if err != nil || !r.Created || r.Tracks != 3 {
			t.Fatalf("unexpected result: %+v, %v", r, err)
		}
		if runs.runs[0].Kind() != "custom" || runs.runs[0].Title() != "Focus" {
			t.Errorf("unexpected run: %s %s", runs.runs[0].Kind(), runs.runs[0].Title())
		}
	})

	t.Run("Custom Invalid Options Not Recorded", func(t *testing.T) {
		runs := &fakeRuns{}
		opts := mixes.DefaultOptions()
		opts.TrackCount = -1

		_, err := newTestMixEngine(&tu.MockLibrary{}, runs).RunCustom(ctx, opts, nil)
		if !errors.Is(err, shared.ErrInvalidMixOptions) {
			t.Errorf("expected ErrInvalidMixOptions, got %v", err)
		}
		if len(runs.runs) != 0 {
			t.Errorf("expected no runs recorded, got %d", len(runs.runs))
		}
	})

	t.Run("Recording Failure Is Not Fatal", func(t *testing.T) {
		lib := &tu.MockLibrary{CapsuleTracks: capsuleTracks(6)}
		runs := &fakeRuns{err: errors.New("disk full")}

		r, err := newTestMixEngine(lib, runs).RunNamed(ctx, mixes.KindTimeCapsule, nil)
		if err != nil || !r.Created {
			t.Errorf("expected created mix despite history failure, got %+v, %v", r, err)
		}
	})
}
