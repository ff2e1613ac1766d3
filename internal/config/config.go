// Package config resolves steg-cli settings from defaults, a YAML file, a
// .env file, STEG_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"

	"github.com/stegai/steg-cli/internal/poll"
	"github.com/stegai/steg-cli/internal/stegapi"
)

// EnvPrefix prefixes every environment override, e.g. STEG_API_KEY.
const EnvPrefix = "STEG"

// PollConfig bounds how long the client waits for an asynchronous job.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval" mapstructure:"interval"`
	MaxInterval time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
	Multiplier  float64       `yaml:"multiplier" mapstructure:"multiplier"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// HTTPConfig tunes the API transport.
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
}

// HistoryConfig controls the local job ledger.
type HistoryConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	Disabled bool   `yaml:"disabled" mapstructure:"disabled"`
}

// EventsConfig controls publishing workflow events to Redis.
type EventsConfig struct {
	RedisURL      string `yaml:"redis_url,omitempty" mapstructure:"redis_url"`
	ChannelPrefix string `yaml:"channel_prefix" mapstructure:"channel_prefix"`
}

// Config is the resolved client configuration.
type Config struct {
	APIKey    string         `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string         `yaml:"base_url" mapstructure:"base_url"`
	Owner     string         `yaml:"owner" mapstructure:"owner"`
	License   map[string]any `yaml:"license" mapstructure:"license"`
	Method    int            `yaml:"method" mapstructure:"method"`
	OutputDir string         `yaml:"output_dir" mapstructure:"output_dir"`

	Poll    PollConfig    `yaml:"poll" mapstructure:"poll"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	History HistoryConfig `yaml:"history" mapstructure:"history"`
	Events  EventsConfig  `yaml:"events" mapstructure:"events"`
}

// Dir returns the per-user configuration directory (~/.steg-cli).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".steg-cli"
	}
	return filepath.Join(home, ".steg-cli")
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		BaseURL:   stegapi.DefaultBaseURL,
		Owner:     "",
		License:   map[string]any{"editorial": true},
		Method:    0,
		OutputDir: ".",
		Poll: PollConfig{
			Interval:    poll.DefaultInterval,
			MaxInterval: poll.DefaultMaxInterval,
			Multiplier:  poll.DefaultMultiplier,
			MaxAttempts: poll.DefaultMaxAttempts,
			Timeout:     poll.DefaultTimeout,
		},
		HTTP: HTTPConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: 500 * time.Millisecond,
		},
		History: HistoryConfig{
			Path: filepath.Join(Dir(), "history.db"),
		},
		Events: EventsConfig{
			ChannelPrefix: "steg:workflow",
		},
	}
}

// Loader layers configuration sources with viper.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a Loader with defaults and STEG_* environment
// overrides registered.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("owner", d.Owner)
	v.SetDefault("license", d.License)
	v.SetDefault("method", d.Method)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.max_interval", d.Poll.MaxInterval)
	v.SetDefault("poll.multiplier", d.Poll.Multiplier)
	v.SetDefault("poll.max_attempts", d.Poll.MaxAttempts)
	v.SetDefault("poll.timeout", d.Poll.Timeout)
	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.max_retries", d.HTTP.MaxRetries)
	v.SetDefault("http.retry_delay", d.HTTP.RetryDelay)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("history.disabled", d.History.Disabled)
	v.SetDefault("events.redis_url", d.Events.RedisURL)
	v.SetDefault("events.channel_prefix", d.Events.ChannelPrefix)

	return &Loader{v: v}
}

// BindFlag makes a command-line flag override the given config key when
// the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag to bind for %s", key)
	}
	return l.v.BindPFlag(key, flag)
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// File is an explicit config file; it must exist when set. When empty
	// DefaultPath is read if present.
	File string

	// DotEnv is a .env file loaded into the environment if present.
	// Variables already set in the environment win.
	DotEnv string
}

// Load resolves the configuration. It does not validate it; callers that
// talk to the API call Validate.
func (l *Loader) Load(opts LoadOptions) (*Config, error) {
	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("could not load %s: %w", opts.DotEnv, err)
		}
	}

	if opts.File != "" {
		l.v.SetConfigFile(opts.File)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config %s: %w", opts.File, err)
		}
	} else if path := DefaultPath(); fileExists(path) {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return &cfg, nil
}

// ConfigFileUsed returns the file Load read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Validate reports settings that would make the client unusable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is not set: use --api-key, %s_API_KEY or api_key in %s", EnvPrefix, DefaultPath())
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url %q: %w", c.BaseURL, err)
	}
	if c.Method < 0 {
		return fmt.Errorf("method must not be negative, got %d", c.Method)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must not be negative, got %d", c.HTTP.MaxRetries)
	}
	if c.HTTP.Timeout < 0 || c.HTTP.RetryDelay < 0 {
		return fmt.Errorf("http durations must not be negative")
	}
	if err := c.PollConfig().Validate(); err != nil {
		return fmt.Errorf("invalid poll settings: %w", err)
	}
	return nil
}

// PollConfig converts the poll settings for the poll package.
func (c *Config) PollConfig() poll.Config {
	return poll.Config{
		Interval:    c.Poll.Interval,
		MaxInterval: c.Poll.MaxInterval,
		Multiplier:  c.Poll.Multiplier,
		MaxAttempts: c.Poll.MaxAttempts,
		Timeout:     c.Poll.Timeout,
	}
}

// ClientConfig converts the settings for the API client. debug may be nil.
func (c *Config) ClientConfig(debug func(format string, args ...any)) stegapi.ClientConfig {
	retries := c.HTTP.MaxRetries
	if retries == 0 {
		// The client reads 0 as unset; a configured 0 disables retries.
		retries = -1
	}
	return stegapi.ClientConfig{
		BaseURL:    c.BaseURL,
		APIKey:     c.APIKey,
		Timeout:    c.HTTP.Timeout,
		MaxRetries: retries,
		RetryDelay: c.HTTP.RetryDelay,
		DebugFunc:  debug,
	}
}

// LicenseValue returns the license as the API type.
func (c *Config) LicenseValue() stegapi.License {
	if len(c.License) == 0 {
		return nil
	}
	return stegapi.License(c.License)
}

// Redacted returns a copy safe to print, with the API key masked.
func (c Config) Redacted() Config {
	c.APIKey = MaskSecret(c.APIKey)
	return c
}

// MarshalZerologObject logs the resolved settings with the key masked.
func (c Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("api_key", MaskSecret(c.APIKey)).
		Str("base_url", c.BaseURL).
		Str("owner", c.Owner).
		Int("method", c.Method).
		Str("output_dir", c.OutputDir).
		Dur("poll_interval", c.Poll.Interval).
		Int("poll_max_attempts", c.Poll.MaxAttempts).
		Dur("poll_timeout", c.Poll.Timeout).
		Int("http_max_retries", c.HTTP.MaxRetries).
		Str("history_path", c.History.Path).
		Bool("history_disabled", c.History.Disabled).
		Bool("events_enabled", c.Events.RedisURL != "")
}

// MaskSecret keeps the last four characters of s.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// Export renders the configuration as a commented YAML document.
func (c Config) Export() ([]byte, error) {
	sb := strings.Builder{}
	sb.WriteString("########################\n")
	sb.WriteString("### steg-cli config  ###\n")
	sb.WriteString("########################\n")
	sb.WriteString("# Environment variables override these values, e.g. STEG_API_KEY,\n")
	sb.WriteString("# STEG_BASE_URL, STEG_POLL_TIMEOUT.\n\n")

	d, err := yaml.Marshal(&c)
	if err != nil {
		return nil, err
	}
	sb.Write(d)
	return []byte(sb.String()), nil
}

// Write saves the configuration to path with owner-only permissions,
// since it contains the API key.
func Write(path string, c Config) error {
	data, err := c.Export()
	if err != nil {
		return fmt.Errorf("could not encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
