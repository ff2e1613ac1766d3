// cmd/progress.go
package cmd

import (
	"context"

	"github.com/stegai/steg-cli/internal/ui"
	"github.com/stegai/steg-cli/internal/workflow"
)

var phaseLabels = map[workflow.Phase]string{
	workflow.PhaseUploadOriginal: "Uploading original image",
	workflow.PhaseEncode:         "Encoding watermark",
	workflow.PhaseDownload:       "Downloading encoded image",
	workflow.PhaseUploadEncoded:  "Uploading encoded image",
	workflow.PhaseDecode:         "Decoding watermark",
	workflow.PhaseUsage:          "Fetching usage report",
}

func phaseLabel(p workflow.Phase) string {
	if l, ok := phaseLabels[p]; ok {
		return l
	}
	return string(p)
}

// consoleObserver drives the spinner from pipeline events.
type consoleObserver struct {
	spinner *ui.Spinner
}

func newConsoleObserver(s *ui.Spinner) *consoleObserver {
	return &consoleObserver{spinner: s}
}

func (c *consoleObserver) Observe(_ context.Context, ev workflow.Event) {
	Debug("event: %s phase=%s media=%s request=%s status=%q attempt=%d", ev.Kind, ev.Phase, ev.MediaID, ev.RequestID, ev.Status, ev.Attempt)

	switch ev.Kind {
	case workflow.EventStageStarted:
		c.spinner.Start(phaseLabel(ev.Phase))

	case workflow.EventJobSubmitted:
		c.spinner.Detail("request " + ev.RequestID)

	case workflow.EventJobStatus:
		// Only the status, so an unchanged status is not printed again.
		c.spinner.Detail(ev.Status)

	case workflow.EventStageFinished:
		if ev.Err != nil {
			c.spinner.Fail(phaseLabel(ev.Phase))
			return
		}
		c.spinner.Success(phaseLabel(ev.Phase) + stageSummary(ev))
	}
}

// stageSummary is the short result shown after a finished stage.
func stageSummary(ev workflow.Event) string {
	switch ev.Phase {
	case workflow.PhaseUploadOriginal, workflow.PhaseUploadEncoded:
		return ": media " + ev.MediaID
	case workflow.PhaseEncode, workflow.PhaseDecode:
		if ev.RequestID == "" {
			return ""
		}
		return ": request " + ev.RequestID
	case workflow.PhaseDownload, workflow.PhaseUsage:
		if ev.Detail == "" {
			return ""
		}
		return ": " + ev.Detail
	}
	return ""
}
