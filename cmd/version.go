// cmd/version.go
package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stegai/steg-cli/internal/update"
)

// Version will be set at build time
var Version = "dev"

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the steg version",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "steg version %s\n", Version)
		if !versionCheck {
			return nil
		}

		release, newer, err := update.NewChecker(Version).Check(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not check for updates: %w", err)
		}
		if newer {
			fmt.Fprintf(out, "%s %s is available: %s\n", color.YellowString("⚠"), release.TagName, release.HTMLURL)
		} else {
			fmt.Fprintf(out, "%s Latest release is %s\n", color.GreenString("✓"), release.TagName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}
