// cmd/root.go
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/stegai/steg-cli/internal/config"
	"github.com/stegai/steg-cli/internal/ui"
)

var (
	cfgFile        string
	apiKey         string
	baseURL        string
	eventsRedisURL string
	noHistory      bool
	debugMode      bool
	noColor        bool
)

// logger is a no-op until --debug enables it.
var logger = zerolog.Nop()

var debugLogFile *os.File
var debugLogInitOnce sync.Once

// initDebugLogFile opens ~/.steg-cli/logs/debug.log for appending.
func initDebugLogFile() {
	logDir := filepath.Join(config.Dir(), "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(logDir, "debug.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	debugLogFile = f
}

// setupLogging sends debug output to stderr and, as JSON lines, to the
// debug log file.
func setupLogging() {
	if !debugMode {
		return
	}
	debugLogInitOnce.Do(initDebugLogFile)

	writers := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000", NoColor: noColor}}
	if debugLogFile != nil {
		writers = append(writers, debugLogFile)
	}
	logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerolog.DebugLevel).
		With().Timestamp().Logger()
	logger.Debug().Str("version", Version).Time("started", time.Now()).Msg("debug session started")
}

// Debug logs a message when debug mode is enabled.
func Debug(format string, args ...any) {
	if debugMode {
		logger.Debug().Msgf(format, args...)
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "steg",
	Short: "steg watermarks images with the Steg.AI API",
	Long: `A command-line client for the Steg.AI API.

It uploads images, encodes invisible watermarks, downloads the encoded
result, decodes watermarks from uploaded images and reports API usage.
"steg run" performs the whole round trip in one go.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.DisableColor()
		}
		setupLogging()
		if debugMode {
			fullCmd := cmd.CommandPath()
			cmd.Flags().Visit(func(f *pflag.Flag) {
				switch f.Name {
				case "debug":
					return
				case "api-key":
					fullCmd += " --api-key=" + config.MaskSecret(f.Value.String())
					return
				}
				if f.Value.Type() == "bool" {
					fullCmd += " --" + f.Name
				} else {
					fullCmd += " --" + f.Name + "=" + f.Value.String()
				}
			})
			if len(args) > 0 {
				fullCmd += " " + strings.Join(args, " ")
			}
			Debug("command: %s", fullCmd)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		Debug("command failed: %v", err)
	}
	if debugLogFile != nil {
		debugLogFile.Close()
	}
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.steg-cli/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Steg.AI API key (overrides STEG_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL (default "+config.Default().BaseURL+")")
	rootCmd.PersistentFlags().StringVar(&eventsRedisURL, "events-redis-url", "", "publish workflow events to this Redis URL")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "do not record jobs in the local history")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
}
