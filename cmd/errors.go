// cmd/errors.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/stegai/steg-cli/internal/stegapi"
	"github.com/stegai/steg-cli/internal/workflow"
)

// Exit codes
const (
	exitError     = 1
	exitAuth      = 2
	exitJobFailed = 3
	exitTimeout   = 4
	exitCancelled = 130
)

func exitCode(err error) int {
	var ae *stegapi.AuthError
	var jf *stegapi.JobFailedError
	var te *stegapi.TimeoutError
	switch {
	case errors.Is(err, context.Canceled):
		return exitCancelled
	case errors.As(err, &ae):
		return exitAuth
	case errors.As(err, &jf):
		return exitJobFailed
	case errors.As(err, &te):
		return exitTimeout
	default:
		return exitError
	}
}

// errorHint suggests what to do about err, or returns "".
func errorHint(err error) string {
	var ae *stegapi.AuthError
	var te *stegapi.TimeoutError
	var jf *stegapi.JobFailedError
	var tr *stegapi.TransportError
	switch {
	case errors.Is(err, context.Canceled):
		return "interrupted"
	case errors.As(err, &ae):
		return "check the API key (--api-key, STEG_API_KEY or api_key in the config file)"
	case errors.As(err, &te):
		return fmt.Sprintf("the job may still finish; check later with: steg status %s --wait", te.RequestID)
	case errors.As(err, &jf):
		return fmt.Sprintf("the service rejected request %s", jf.RequestID)
	case errors.As(err, &tr):
		return "the service could not be reached; retries were exhausted"
	}
	return ""
}

// printError writes err in red, naming the failed phase when known.
func printError(w io.Writer, err error) {
	var se *workflow.StageError
	if errors.As(err, &se) {
		fmt.Fprintf(w, "%s %v\n", color.RedString("✗ %s failed:", se.Phase), se.Err)
	} else {
		fmt.Fprintf(w, "%s %v\n", color.RedString("✗ Error:"), err)
	}
	if hint := errorHint(err); hint != "" {
		fmt.Fprintf(w, "  %s\n", color.HiBlackString(hint))
	}
}
