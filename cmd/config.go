// cmd/config.go
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stegai/steg-cli/internal/config"
	"github.com/stegai/steg-cli/internal/ui"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or inspect the steg configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with your API key",
	Long: `Writes ~/.steg-cli/config.yaml (or the file given with --config) from the
current settings. When no API key is configured and the terminal is
interactive, you are prompted for one.`,
	Example: `  # Prompt for the key
  steg config init

  # Non-interactive
  steg config init --api-key sk-... --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		exists := false
		if _, err := os.Stat(path); err == nil {
			if !configForce {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			exists = true
		}

		// A new file named with --config is the target, not a source.
		source := cfgFile
		if !exists {
			source = ""
		}
		cfg, err := loadConfigFile(cmd, source, false)
		if err != nil {
			return err
		}

		if !cmd.Flags().Changed("api-key") && ui.IsTTY() {
			key, err := ui.AskSecret("Steg.AI API key:", cfg.APIKey)
			if err != nil {
				return err
			}
			cfg.APIKey = key
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := config.Write(path, *cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", color.GreenString("✓"), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Long: `Prints the configuration after merging defaults, the config file, .env,
STEG_* environment variables and flags. The API key is masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		data, err := cfg.Redacted().Export()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath()
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
}
