// cmd/history.go
package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stegai/steg-cli/internal/history"
	"github.com/stegai/steg-cli/internal/ui"
)

var (
	historyLimit int
	historyRun   string
)

var headerColor = color.New(color.FgCyan, color.Bold)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded encode and decode jobs",
	Long: `Lists jobs from the local history ledger (~/.steg-cli/history.db by
default), newest first. Use the request IDs with "steg status".`,
	Example: `  # The last 20 jobs
  steg history

  # All jobs of one run
  steg history --run 3f9c...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		store, err := openLedger(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var records []history.JobRecord
		if historyRun != "" {
			records, err = store.ByRun(historyRun)
		} else {
			records, err = store.Recent(historyLimit)
		}
		if err != nil {
			return err
		}

		printHistory(cmd.OutOrStdout(), records)
		return nil
	},
}

// printHistory renders records as an aligned table.
func printHistory(out io.Writer, records []history.JobRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No jobs recorded.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	headerColor.Fprintln(w, "STARTED\tKIND\tOUTCOME\tREQUEST\tMEDIA\tPOLLS\tDURATION\tOUTPUT")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Kind,
			outcomeColor(r.Outcome).Sprint(r.Outcome),
			r.RequestID,
			orDash(r.MediaID),
			r.Attempts,
			ui.FormatDuration(msDuration(r.DurationMs)),
			orDash(r.OutputPath),
		)
	}
}

func outcomeColor(outcome string) *color.Color {
	switch outcome {
	case history.OutcomeCompleted:
		return goodColor
	case history.OutcomeTimeout:
		return warnColor
	default:
		return badColor
	}
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of jobs to list")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "only list the jobs of this run ID")
}
