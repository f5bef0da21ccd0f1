package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deskhand/deskhand/internal/runtime"
)

// ContainerRef names one container to synchronize and its runtime flavor.
type ContainerRef struct {
	Name    string `json:"name" yaml:"name"`
	Runtime string `json:"runtime" yaml:"runtime"`
}

// Kind returns the parsed runtime kind for this reference.
func (r ContainerRef) Kind() runtime.Kind {
	return runtime.ParseKind(r.Runtime)
}

// Config holds runtime configuration for deskhand
type Config struct {
	// Containers are synchronized sequentially in listing order.
	Containers []ContainerRef `json:"containers" yaml:"containers"`

	// ResyncInterval re-runs the full synchronization periodically.
	// Zero disables periodic re-sync: containers are synced once at
	// startup and the process stays alive to keep entries published.
	ResyncInterval time.Duration `json:"resync_interval" yaml:"resync_interval"`

	// WorkspaceRoot is where per-container transient workspaces are
	// created. Empty selects the runtime directory automatically.
	WorkspaceRoot string `json:"workspace_root" yaml:"workspace_root"`

	// Notification configuration
	NotificationLevel string `json:"notification_level" yaml:"notification_level"` // "all", "failure", "none"
	GenericWebhookURL string `json:"generic_webhook_url" yaml:"generic_webhook_url"`
	GotifyURL         string `json:"gotify_url" yaml:"gotify_url"`
	GotifyToken       string `json:"gotify_token" yaml:"gotify_token"`

	// Metrics
	MetricsEnabled bool `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsPort    int  `json:"metrics_port" yaml:"metrics_port"`

	// InfluxDB (push)
	InfluxURL      string        `json:"influx_url" yaml:"influx_url"`
	InfluxToken    string        `json:"influx_token" yaml:"influx_token"`
	InfluxOrg      string        `json:"influx_org" yaml:"influx_org"`
	InfluxBucket   string        `json:"influx_bucket" yaml:"influx_bucket"`
	InfluxInterval time.Duration `json:"influx_interval" yaml:"influx_interval"`
}

// DefaultConfig returns a sane default configuration
func DefaultConfig() *Config {
	return &Config{
		ResyncInterval:    0,
		NotificationLevel: "failure",

		// Metrics defaults (opt-in)
		MetricsEnabled: false,
		MetricsPort:    9185,

		InfluxInterval: 1 * time.Minute,
	}
}

// DefaultWorkspaceRoot resolves the scratch root for transient workspaces:
// explicit config, then the user runtime dir, then the system temp dir.
func (c *Config) DefaultWorkspaceRoot() string {
	if c.WorkspaceRoot != "" {
		return c.WorkspaceRoot
	}
	if dir := os.Getenv("RUNTIME_DIRECTORY"); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "deskhand")
	}
	return filepath.Join(os.TempDir(), "deskhand")
}

// Validate returns a list of non-fatal configuration warnings, such as
// unknown runtime kinds or incomplete notifier credential combinations.
func (c *Config) Validate() []string {
	var warnings []string
	checks := []struct {
		cond bool
		msg  string
	}{
		{len(c.Containers) == 0, "no containers configured; nothing will be synchronized"},
		{c.GotifyURL != "" && c.GotifyToken == "", "gotify URL provided but token is missing"},
		{c.GotifyToken != "" && c.GotifyURL == "", "gotify token provided but URL is missing"},
		{c.InfluxURL != "" && c.InfluxBucket == "", "influx URL provided but bucket is missing"},
	}
	for _, ch := range checks {
		if ch.cond {
			warnings = append(warnings, ch.msg)
		}
	}
	for _, ref := range c.Containers {
		if ref.Name == "" {
			warnings = append(warnings, "container entry with empty name will be skipped")
			continue
		}
		if ref.Kind() == runtime.Unknown {
			warnings = append(warnings, fmt.Sprintf("container %q has unknown runtime %q", ref.Name, ref.Runtime))
		}
	}
	return warnings
}

// LoadConfigFromFile loads config from a YAML/JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseContainerList reads the legacy line-based container list, one
// "<NAME> <RUNTIME>" pair per line. Blank lines and #-comments are skipped.
func ParseContainerList(r io.Reader) ([]ContainerRef, error) {
	var out []ContainerRef
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		name, kind, ok := strings.Cut(text, " ")
		if !ok {
			return nil, fmt.Errorf("container list line %d: expected \"<NAME> <RUNTIME>\", got %q", line, text)
		}
		out = append(out, ContainerRef{Name: name, Runtime: strings.TrimSpace(kind)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read container list: %w", err)
	}
	return out, nil
}

// LoadContainerList reads a legacy container list file into cfg.Containers.
func LoadContainerList(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	refs, err := ParseContainerList(f)
	if err != nil {
		return err
	}
	cfg.Containers = refs
	return nil
}
