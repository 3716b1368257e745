package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/desertthunder/mixtape/internal/tasks"
)

func TestScore(t *testing.T) {
	tc := []struct {
		name  string
		score float64
		want  string
	}{
		{"Accepted", 92, "92.0"},
		{"Near Miss", 80, "80.0"},
		{"Rejected", 10, "10.0"},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.score, 85); !strings.Contains(got, tt.want) {
				t.Errorf("Score(%v) = %q, want it to contain %q", tt.score, got, tt.want)
			}
		})
	}
}

func TestReporter(t *testing.T) {
	updates := []tasks.ProgressUpdate{
		{Phase: tasks.FetchSource, Step: 0, Total: 1, Message: "fetching"},
		{Phase: tasks.FetchSource, Step: 1, Total: 1, Message: "found"},
		{Phase: tasks.SearchTracks, Step: 1, Total: 3, Message: "[1/3] a"},
		{Phase: tasks.SearchTracks, Step: 2, Total: 3, Message: "[2/3] b"},
		{Phase: tasks.SearchTracks, Step: 3, Total: 3, Message: "[3/3] c"},
	}

	t.Run("Verbose", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewReporter(&buf, false)
		for _, u := range updates {
			r.Report(u)
		}
		if got := strings.Count(buf.String(), "\n"); got != len(updates) {
			t.Errorf("expected %d lines, got %d:\n%s", len(updates), got, buf.String())
		}
	})

	t.Run("Quiet", func(t *testing.T) {
		var buf bytes.Buffer
		r := NewReporter(&buf, true)
		for _, u := range updates {
			r.Report(u)
		}
		out := buf.String()
		if strings.Contains(out, "[1/3]") || strings.Contains(out, "[2/3]") || !strings.Contains(out, "[3/3]") {
			t.Errorf("expected only the final search update, got:\n%s", out)
		}
	})
}
