// cmd/usage.go
package cmd

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/stegai/steg-cli/internal/stegapi"
	"github.com/stegai/steg-cli/internal/ui"
)

var (
	usageStart string
	usageEnd   string
	usageJSON  bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show API usage",
	Long: `Prints the number of API requests recorded for the account, followed by
each request in the order the service returns them.

Dates may be given as YYYY-MM-DD, YYYY-MM or YYYY. A start date in the
future is rejected.`,
	Example: `  # Everything since the start of 2021
  steg usage --start 2021

  # A single month as JSON
  steg usage --start 2021-03 --end 2021-03 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query := stegapi.UsageQuery{Start: usageStart, End: usageEnd}
		if err := query.Validate(time.Now()); err != nil {
			return err
		}

		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		report, err := client.Usage(cmd.Context(), query)
		if err != nil {
			return err
		}

		if usageJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			items := report.Items
			if items == nil {
				items = []json.RawMessage{}
			}
			return enc.Encode(map[string]any{"total": report.Total, "items": items})
		}
		ui.RenderUsage(cmd.OutOrStdout(), report, ui.Width())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().StringVar(&usageStart, "start", "", "start date (YYYY-MM-DD, YYYY-MM or YYYY)")
	usageCmd.Flags().StringVar(&usageEnd, "end", "", "end date (same formats as --start)")
	usageCmd.Flags().BoolVar(&usageJSON, "json", false, "print the report as JSON")
}
