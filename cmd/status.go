// cmd/status.go
package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stegai/steg-cli/internal/config"
	"github.com/stegai/steg-cli/internal/stegapi"
	"github.com/stegai/steg-cli/internal/ui"
	"github.com/stegai/steg-cli/internal/workflow"
)

var statusWait bool

var (
	goodColor = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	badColor  = color.New(color.FgRed)
)

var statusCmd = &cobra.Command{
	Use:   "status <request_id>",
	Short: "Show the status of an encode or decode job",
	Long: `Fetches the current status of an asynchronous job once, or with --wait
polls until the job completes or fails. A job that timed out during
"steg run" can be resumed this way.`,
	Example: `  # Check once
  steg status 9a7e...

  # Resume waiting for a job
  steg status 9a7e... --wait`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requestID := args[0]
		out := cmd.OutOrStdout()

		if statusWait {
			s, err := newSession(cmd.Context(), cmd, "")
			if err != nil {
				return err
			}
			defer s.close()

			job, err := s.pipeline.Await(cmd.Context(), jobPhase(s.cfg, requestID), requestID)
			if err != nil {
				return err
			}
			printJob(out, job)
			return nil
		}

		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		result, err := client.MediaStatus(cmd.Context(), requestID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.FormatKeyValue("Request", requestID))
		fmt.Fprintf(out, "%s %s\n", ui.LabelStyle.Render("Status:"), statusColor(result).Sprint(result.Status))
		if len(result.MediaData) > 0 {
			fmt.Fprintln(out, ui.FormatKeyValue("Media data", indentJSON(result.MediaData)))
		}
		return nil
	},
}

func statusColor(r *stegapi.StatusResult) *color.Color {
	switch {
	case r.Completed():
		return goodColor
	case r.Failed():
		return badColor
	default:
		return warnColor
	}
}

// jobPhase labels a resumed job with the kind recorded in the history
// ledger, if the ledger knows the request.
func jobPhase(cfg *config.Config, requestID string) workflow.Phase {
	const unknown = workflow.Phase("await")
	if cfg.History.Disabled {
		return unknown
	}
	store, err := openLedger(cfg)
	if err != nil {
		return unknown
	}
	defer store.Close()

	rec, err := store.ByRequestID(requestID)
	if err != nil {
		return unknown
	}
	return workflow.Phase(rec.Kind)
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusWait, "wait", false, "poll until the job finishes")
}
