// Package config handles the XDG configuration directory and the YAML
// config file describing the two services and the sync profile.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tasksync"

	// ConfigFile is the default configuration filename.
	ConfigFile = "config.yaml"

	// MappingFile is the default sync-state filename.
	MappingFile = "mappings.json"
)

// Service names accepted in the source/mirror sections.
const (
	ServiceTodoist     = "todoist"
	ServiceGoogleTasks = "googletasks"
)

// ServiceConfig describes one remote service endpoint.
type ServiceConfig struct {
	// Service is "todoist" or "googletasks".
	Service string `yaml:"service"`

	// Token is the Todoist API token.
	Token string `yaml:"token,omitempty"`

	// CredentialsFile and TokenFile are the Google OAuth client and
	// stored token paths, resolved against the config directory when
	// relative.
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	TokenFile       string `yaml:"token_file,omitempty"`
}

// SyncConfig is the sync profile; fields mirror sync.Rules.
type SyncConfig struct {
	TargetCollection   string   `yaml:"target_collection,omitempty"`
	ExcludeCollections []string `yaml:"exclude_collections,omitempty"`
	PriorityFloor      int      `yaml:"priority_floor,omitempty"`
	Labels             []string `yaml:"labels,omitempty"`
	StarMarker         bool     `yaml:"star_marker,omitempty"`
	Tag                string   `yaml:"tag,omitempty"`
	SkipVirtual        bool     `yaml:"skip_virtual,omitempty"`
	RequireSchedule    bool     `yaml:"require_schedule,omitempty"`
	LookaheadDays      int      `yaml:"lookahead_days,omitempty"`
	CompareDue         bool     `yaml:"compare_due,omitempty"`
	Provenance         bool     `yaml:"provenance,omitempty"`
	StripMarkers       bool     `yaml:"strip_markers,omitempty"`
	PrependRecurrence  bool     `yaml:"prepend_recurrence,omitempty"`
	CascadeCompletion  bool     `yaml:"cascade_completion,omitempty"`
	RepeatCompleted    bool     `yaml:"repeat_completed,omitempty"`
	CascadeSlackDays   int      `yaml:"cascade_slack_days,omitempty"`
	IntervalMinutes    int      `yaml:"interval_minutes,omitempty"`
}

// Config is the loaded configuration plus resolved paths and runtime flags.
type Config struct {
	Source ServiceConfig `yaml:"source"`
	Mirror ServiceConfig `yaml:"mirror"`
	Sync   SyncConfig    `yaml:"sync"`

	// MappingPath overrides the default sync-state file location.
	MappingPath string `yaml:"mapping_file,omitempty"`

	// Dir is the directory the config file was loaded from.
	Dir string `yaml:"-"`

	// Verbose and Quiet adjust logging; set from common flags.
	Verbose bool `yaml:"-"`
	Quiet   bool `yaml:"-"`
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Load reads and validates the config file. An empty path uses the default
// location. Any failure here is fatal at startup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(DefaultConfigDir(), ConfigFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed config %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)

	if cfg.Sync.IntervalMinutes <= 0 {
		cfg.Sync.IntervalMinutes = 15
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for _, side := range []struct {
		name string
		svc  ServiceConfig
	}{
		{"source", c.Source},
		{"mirror", c.Mirror},
	} {
		switch side.svc.Service {
		case ServiceTodoist:
			if side.svc.Token == "" {
				return fmt.Errorf("%s: todoist token not configured", side.name)
			}
		case ServiceGoogleTasks:
			// Credential files are checked when the gateway opens them.
		case "":
			return fmt.Errorf("%s: service not configured", side.name)
		default:
			return fmt.Errorf("%s: unknown service %q", side.name, side.svc.Service)
		}
	}
	return nil
}

// MappingFilePath returns the sync-state file location.
func (c *Config) MappingFilePath() string {
	if c.MappingPath != "" {
		return c.resolve(c.MappingPath)
	}
	return filepath.Join(c.Dir, MappingFile)
}

// GoogleCredentialsPath resolves a service's OAuth client file.
func (c *Config) GoogleCredentialsPath(svc ServiceConfig) string {
	p := svc.CredentialsFile
	if p == "" {
		p = "oauth_client.json"
	}
	return c.resolve(p)
}

// GoogleTokenPath resolves a service's stored token file.
func (c *Config) GoogleTokenPath(svc ServiceConfig) string {
	p := svc.TokenFile
	if p == "" {
		p = "token.json"
	}
	return c.resolve(p)
}

// resolve joins relative paths onto the config directory, for cron
// compatibility.
func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}
