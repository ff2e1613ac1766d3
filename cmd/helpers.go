// cmd/helpers.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stegai/steg-cli/internal/config"
	"github.com/stegai/steg-cli/internal/events"
	"github.com/stegai/steg-cli/internal/history"
	"github.com/stegai/steg-cli/internal/stegapi"
	"github.com/stegai/steg-cli/internal/ui"
	"github.com/stegai/steg-cli/internal/workflow"
)

// flagKeys maps command-line flags to the config keys they override. Only
// flags present on the running command are bound.
var flagKeys = map[string]string{
	"api-key":          "api_key",
	"base-url":         "base_url",
	"events-redis-url": "events.redis_url",
	"no-history":       "history.disabled",
	"owner":            "owner",
	"method":           "method",
	"out-dir":          "output_dir",
}

// loadConfig resolves the configuration for cmd. Commands that call the API
// pass validate=true.
func loadConfig(cmd *cobra.Command, validate bool) (*config.Config, error) {
	return loadConfigFile(cmd, cfgFile, validate)
}

// loadConfigFile is loadConfig with an explicit config file ("" reads the
// default file if present).
func loadConfigFile(cmd *cobra.Command, file string, validate bool) (*config.Config, error) {
	loader := config.NewLoader()
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := loader.BindFlag(key, f); err != nil {
			return nil, err
		}
	}

	cfg, err := loader.Load(config.LoadOptions{File: file, DotEnv: ".env"})
	if err != nil {
		return nil, err
	}
	if used := loader.ConfigFileUsed(); used != "" {
		Debug("config file: %s", used)
	}
	logger.Debug().Object("config", cfg).Msg("resolved config")

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newClient creates an API client from cfg.
func newClient(cfg *config.Config) (*stegapi.Client, error) {
	return stegapi.NewClient(cfg.ClientConfig(Debug))
}

// session holds everything a job-running command needs. close releases
// the history store and Redis connection.
type session struct {
	cfg      *config.Config
	client   *stegapi.Client
	pipeline *workflow.Pipeline
	spinner  *ui.Spinner
	closers  []io.Closer
}

func (s *session) close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			Debug("close: %v", err)
		}
	}
}

// newSession builds a pipeline with console, history and event observers.
// sourcePath is recorded in the history ledger.
func newSession(ctx context.Context, cmd *cobra.Command, sourcePath string) (*session, error) {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return nil, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		client:  client,
		spinner: ui.NewSpinner(cmd.OutOrStdout(), ui.IsTTY() && !noColor),
	}
	observers := []workflow.Observer{newConsoleObserver(s.spinner)}

	if !cfg.History.Disabled {
		store, err := history.OpenStore(cfg.History.Path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s history disabled: %v\n", color.YellowString("⚠"), err)
		} else {
			s.closers = append(s.closers, store)
			observers = append(observers, workflow.NewHistoryObserver(store, sourcePath, Debug))
		}
	}

	if cfg.Events.RedisURL != "" {
		pub, err := newPublisher(ctx, cfg)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s workflow events disabled: %v\n", color.YellowString("⚠"), err)
		} else {
			s.closers = append(s.closers, pub)
			observers = append(observers, workflow.NewEventsObserver(pub, Debug))
		}
	}

	s.pipeline, err = workflow.New(workflow.Config{
		API:       client,
		Poll:      cfg.PollConfig(),
		Observers: observers,
		DebugFunc: Debug,
	})
	if err != nil {
		s.close()
		return nil, err
	}
	Debug("run id: %s", s.pipeline.RunID())
	return s, nil
}

// newPublisher connects to the configured Redis server.
func newPublisher(ctx context.Context, cfg *config.Config) (*events.RedisPublisher, error) {
	pub, err := events.NewRedisPublisher(events.RedisPublisherConfig{
		RedisURL:      cfg.Events.RedisURL,
		ChannelPrefix: cfg.Events.ChannelPrefix,
		DebugFunc:     Debug,
	})
	if err != nil {
		return nil, err
	}
	if err := pub.Ping(ctx); err != nil {
		pub.Close()
		return nil, err
	}
	return pub, nil
}

// openLedger opens the history store for read-only commands.
func openLedger(cfg *config.Config) (*history.Store, error) {
	if _, err := os.Stat(cfg.History.Path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no history recorded yet (%s does not exist)", cfg.History.Path)
	}
	return history.OpenStore(cfg.History.Path)
}
