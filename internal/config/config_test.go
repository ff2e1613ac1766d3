package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	yaml "gopkg.in/yaml.v3"
)

// isolate points HOME at a temp dir so DefaultPath never finds a real
// config file.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := NewLoader().Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	if cfg.BaseURL != want.BaseURL {
		t.Errorf("BaseURL = %v, want %v", cfg.BaseURL, want.BaseURL)
	}
	if cfg.Poll.Interval != want.Poll.Interval {
		t.Errorf("Poll.Interval = %v, want %v", cfg.Poll.Interval, want.Poll.Interval)
	}
	if cfg.Poll.MaxAttempts != want.Poll.MaxAttempts {
		t.Errorf("Poll.MaxAttempts = %v, want %v", cfg.Poll.MaxAttempts, want.Poll.MaxAttempts)
	}
	if cfg.HTTP.MaxRetries != 3 {
		t.Errorf("HTTP.MaxRetries = %v, want 3", cfg.HTTP.MaxRetries)
	}
	if cfg.License["editorial"] != true {
		t.Errorf("License = %v, want editorial=true", cfg.License)
	}
	if cfg.Events.ChannelPrefix != "steg:workflow" {
		t.Errorf("Events.ChannelPrefix = %v", cfg.Events.ChannelPrefix)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api_key: file-key
base_url: https://staging.example.com
owner: File Owner
poll:
  interval: 5s
  max_attempts: 10
http:
  max_retries: 1
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STEG_OWNER", "Env Owner")
	t.Setenv("STEG_POLL_TIMEOUT", "90s")

	cfg, err := NewLoader().Load(LoadOptions{File: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIKey != "file-key" {
		t.Errorf("APIKey = %q, want file-key", cfg.APIKey)
	}
	if cfg.BaseURL != "https://staging.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Owner != "Env Owner" {
		t.Errorf("Owner = %q, want env override", cfg.Owner)
	}
	if cfg.Poll.Interval != 5*time.Second {
		t.Errorf("Poll.Interval = %v, want 5s", cfg.Poll.Interval)
	}
	if cfg.Poll.Timeout != 90*time.Second {
		t.Errorf("Poll.Timeout = %v, want 90s", cfg.Poll.Timeout)
	}
	if cfg.Poll.MaxAttempts != 10 {
		t.Errorf("Poll.MaxAttempts = %v, want 10", cfg.Poll.MaxAttempts)
	}
	if cfg.HTTP.MaxRetries != 1 {
		t.Errorf("HTTP.MaxRetries = %v, want 1", cfg.HTTP.MaxRetries)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := NewLoader().Load(LoadOptions{File: filepath.Join(t.TempDir(), "nope.yaml")})
	if err == nil {
		t.Fatal("Load with missing explicit file should fail")
	}
}

func TestLoadDotEnv(t *testing.T) {
	isolate(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("STEG_API_KEY=dotenv-key\n"), 0600); err != nil {
		t.Fatal(err)
	}
	// Make sure the variable is restored after godotenv sets it.
	t.Setenv("STEG_API_KEY", "")
	os.Unsetenv("STEG_API_KEY")

	cfg, err := NewLoader().Load(LoadOptions{DotEnv: envFile})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "dotenv-key" {
		t.Errorf("APIKey = %q, want dotenv-key", cfg.APIKey)
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	isolate(t)
	if _, err := NewLoader().Load(LoadOptions{DotEnv: filepath.Join(t.TempDir(), ".env")}); err != nil {
		t.Errorf("Load with missing .env: %v", err)
	}
}

func TestFlagOverridesEnv(t *testing.T) {
	isolate(t)
	t.Setenv("STEG_API_KEY", "env-key")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("api-key", "", "")
	if err := fs.Parse([]string{"--api-key", "flag-key"}); err != nil {
		t.Fatal(err)
	}

	l := NewLoader()
	if err := l.BindFlag("api_key", fs.Lookup("api-key")); err != nil {
		t.Fatalf("BindFlag: %v", err)
	}
	cfg, err := l.Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "flag-key" {
		t.Errorf("APIKey = %q, want flag-key", cfg.APIKey)
	}
}

func TestBindFlagNil(t *testing.T) {
	if err := NewLoader().BindFlag("api_key", nil); err == nil {
		t.Error("BindFlag(nil) should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.APIKey = "k"

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing key", func(c *Config) { c.APIKey = "" }, true},
		{"bad url", func(c *Config) { c.BaseURL = "::" }, true},
		{"negative method", func(c *Config) { c.Method = -1 }, true},
		{"negative retries", func(c *Config) { c.HTTP.MaxRetries = -2 }, true},
		{"bad multiplier", func(c *Config) { c.Poll.Multiplier = 0.1 }, true},
		{"interval above max", func(c *Config) { c.Poll.Interval = time.Hour }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientConfigRetries(t *testing.T) {
	c := Default()
	c.APIKey = "k"

	if got := c.ClientConfig(nil).MaxRetries; got != 3 {
		t.Errorf("MaxRetries = %d, want 3", got)
	}
	c.HTTP.MaxRetries = 0
	if got := c.ClientConfig(nil).MaxRetries; got != -1 {
		t.Errorf("MaxRetries = %d, want -1 (disabled)", got)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"abc", "***"},
		{"abcdefgh", "****efgh"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteAndReload(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c := Default()
	c.APIKey = "written-key"
	c.Owner = "Someone"
	c.Poll.Timeout = 3 * time.Minute
	if err := Write(path, c); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#") {
		t.Error("exported config should start with a comment header")
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("exported config is not valid YAML: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Errorf("config permissions = %v, want owner-only", perm)
	}

	cfg, err := NewLoader().Load(LoadOptions{File: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "written-key" || cfg.Owner != "Someone" {
		t.Errorf("reloaded config = %+v", cfg)
	}
	if cfg.Poll.Timeout != 3*time.Minute {
		t.Errorf("Poll.Timeout = %v, want 3m", cfg.Poll.Timeout)
	}
}

func TestRedacted(t *testing.T) {
	c := Default()
	c.APIKey = "supersecret"
	r := c.Redacted()
	if r.APIKey == c.APIKey {
		t.Error("Redacted() did not mask the API key")
	}
	if c.APIKey != "supersecret" {
		t.Error("Redacted() modified the original")
	}
}
