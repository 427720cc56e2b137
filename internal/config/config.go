// Package config loads and validates metarelay's YAML configuration file:
// the Supabase cloud credentials, the watched repositories, the handler
// rules, and a handful of daemon-level settings. Two
// environment variables override the YAML-supplied Supabase credentials so
// operators don't have to keep secrets in a config file on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/metarelay/metarelay/internal/errs"
	"github.com/metarelay/metarelay/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	envSupabaseURL = "METARELAY_SUPABASE_URL"
	envSupabaseKey = "METARELAY_SUPABASE_KEY"

	defaultDBPath   = "~/.metarelay/metarelay.db"
	defaultLogLevel = "INFO"
)

// CloudConfig holds the Supabase endpoint and credentials.
type CloudConfig struct {
	SupabaseURL   string `yaml:"supabase_url"`
	SupabaseKey   string `yaml:"supabase_key"`
	WebhookSecret string `yaml:"webhook_secret,omitempty"`
}

// Config is the fully parsed and validated metarelay configuration.
type Config struct {
	Cloud       CloudConfig           `yaml:"cloud"`
	Repos       []types.RepoSpec      `yaml:"repos"`
	Handlers    []types.HandlerConfig `yaml:"handlers"`
	DBPath      string                `yaml:"db_path"`
	LogLevel    string                `yaml:"log_level"`
	MetricsAddr string                `yaml:"metrics_addr,omitempty"`
}

// Load reads, parses, applies environment overrides to, and validates the
// configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewConfigError(fmt.Sprintf("failed to read %s", path), err)
	}

	cfg := &Config{
		DBPath:   defaultDBPath,
		LogLevel: defaultLogLevel,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errs.NewConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, errs.NewConfigError("invalid configuration", err)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(envSupabaseURL); v != "" {
		c.Cloud.SupabaseURL = v
	}
	if v := os.Getenv(envSupabaseKey); v != "" {
		c.Cloud.SupabaseKey = v
	}
}

func (c *Config) normalize() error {
	if c.Cloud.SupabaseURL == "" {
		return fmt.Errorf("cloud.supabase_url is required")
	}
	if c.Cloud.SupabaseKey == "" {
		return fmt.Errorf("cloud.supabase_key is required")
	}

	seen := make(map[string]bool, len(c.Repos))
	for i := range c.Repos {
		r := &c.Repos[i]
		if r.Name == "" {
			return fmt.Errorf("repos[%d]: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("repos[%d]: duplicate repo %q", i, r.Name)
		}
		seen[r.Name] = true
	}

	for i := range c.Handlers {
		if err := c.Handlers[i].Normalize(); err != nil {
			return fmt.Errorf("handlers[%d]: %w", i, err)
		}
	}

	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	expanded, err := expandHome(c.DBPath)
	if err != nil {
		return fmt.Errorf("db_path: %w", err)
	}
	c.DBPath = expanded

	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	return nil
}

// RepoNames returns the configured repos in declaration order.
func (c *Config) RepoNames() []string {
	names := make([]string, len(c.Repos))
	for i, r := range c.Repos {
		names[i] = r.Name
	}
	return names
}

// RepoPath returns the configured local checkout path for repo, or "" if
// none was configured.
func (c *Config) RepoPath(repo string) string {
	for _, r := range c.Repos {
		if r.Name == repo {
			return r.Path
		}
	}
	return ""
}

func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
