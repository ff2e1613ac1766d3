// cmd/progress_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/stegai/steg-cli/internal/ui"
	"github.com/stegai/steg-cli/internal/workflow"
)

func TestStageSummary(t *testing.T) {
	tests := []struct {
		ev   workflow.Event
		want string
	}{
		{workflow.Event{Phase: workflow.PhaseUploadOriginal, MediaID: "m1"}, ": media m1"},
		{workflow.Event{Phase: workflow.PhaseEncode, RequestID: "r1"}, ": request r1"},
		{workflow.Event{Phase: workflow.PhaseDecode}, ""},
		{workflow.Event{Phase: workflow.PhaseUsage, Detail: "2 items"}, ": 2 items"},
		{workflow.Event{Phase: workflow.PhaseDownload}, ""},
	}
	for _, tt := range tests {
		if got := stageSummary(tt.ev); got != tt.want {
			t.Errorf("stageSummary(%s) = %q, want %q", tt.ev.Phase, got, tt.want)
		}
	}
}

func TestPhaseLabel(t *testing.T) {
	for _, p := range workflow.Phases {
		if phaseLabel(p) == string(p) {
			t.Errorf("phase %s has no label", p)
		}
	}
	if got := phaseLabel("await"); got != "await" {
		t.Errorf("phaseLabel(await) = %q", got)
	}
}

func TestConsoleObserver(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	obs := newConsoleObserver(ui.NewSpinner(&buf, false))
	ctx := context.Background()

	obs.Observe(ctx, workflow.Event{Kind: workflow.EventStageStarted, Phase: workflow.PhaseEncode})
	obs.Observe(ctx, workflow.Event{Kind: workflow.EventJobSubmitted, Phase: workflow.PhaseEncode, RequestID: "r1"})
	obs.Observe(ctx, workflow.Event{Kind: workflow.EventJobStatus, Phase: workflow.PhaseEncode, Status: "Processing.", Attempt: 1})
	obs.Observe(ctx, workflow.Event{Kind: workflow.EventJobStatus, Phase: workflow.PhaseEncode, Status: "Processing.", Attempt: 2})
	obs.Observe(ctx, workflow.Event{Kind: workflow.EventJobStatus, Phase: workflow.PhaseEncode, Status: "Processing.", Attempt: 3})
	obs.Observe(ctx, workflow.Event{Kind: workflow.EventStageFinished, Phase: workflow.PhaseEncode, RequestID: "r1"})
	obs.Observe(ctx, workflow.Event{Kind: workflow.EventStageStarted, Phase: workflow.PhaseDownload})
	obs.Observe(ctx, workflow.Event{Kind: workflow.EventStageFinished, Phase: workflow.PhaseDownload, Err: errors.New("404")})

	want := []string{
		"▸ Encoding watermark",
		"  request r1",
		"  Processing.",
		"✓ Encoding watermark: request r1",
		"▸ Downloading encoded image",
		"✗ Downloading encoded image",
	}
	got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(got), len(want), buf.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}
