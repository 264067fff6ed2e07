// Package config loads and validates the service configuration. Values are
// YAML with kebab-case keys; provider API keys are resolved from the
// environment so secrets never live in the file. Pattern-table limits are
// read once at startup and treated as immutable afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProviderEntry configures one upstream completion provider. Entries are
// tried in file order when the primary fails.
type ProviderEntry struct {
	Name      string `yaml:"name"`
	BaseURL   string `yaml:"base-url"`
	APIKeyEnv string `yaml:"api-key-env,omitempty"`
	Model     string `yaml:"model"`
}

func (p *ProviderEntry) normalize() {
	if p == nil {
		return
	}
	p.Name = strings.TrimSpace(p.Name)
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	p.APIKeyEnv = strings.TrimSpace(p.APIKeyEnv)
	p.Model = strings.TrimSpace(p.Model)
}

// APIKey resolves the provider key from the configured environment
// variable. An empty result means the endpoint is unauthenticated.
func (p ProviderEntry) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(p.APIKeyEnv))
}

// GuardConfig tunes the input validator limits. Zero values keep the
// package defaults.
type GuardConfig struct {
	MaxMessageLength int `yaml:"max-message-length,omitempty"`
	DensityThreshold int `yaml:"density-threshold,omitempty"`
}

// FilterConfig tunes the output filter.
type FilterConfig struct {
	Placeholder string `yaml:"placeholder,omitempty"`
}

// Config is the root service configuration.
type Config struct {
	Host      string          `yaml:"host,omitempty"`
	Port      int             `yaml:"port,omitempty"`
	Debug     bool            `yaml:"debug,omitempty"`
	LogDir    string          `yaml:"log-dir,omitempty"`
	Providers []ProviderEntry `yaml:"providers"`
	Guard     GuardConfig     `yaml:"guard,omitempty"`
	Filter    FilterConfig    `yaml:"filter,omitempty"`
}

const (
	defaultHost = "127.0.0.1"
	defaultPort = 8317
)

// Load reads, normalizes, and validates a configuration file.
func Load(path string) (*Config, error) {
	resolved, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize trims entries, drops empty providers, and fills defaults.
func (cfg *Config) Normalize() {
	if cfg == nil {
		return
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	cfg.LogDir = strings.TrimSpace(cfg.LogDir)

	out := cfg.Providers[:0]
	seen := make(map[string]struct{}, len(cfg.Providers))
	for i := range cfg.Providers {
		entry := cfg.Providers[i]
		entry.normalize()
		if entry.Name == "" || entry.BaseURL == "" {
			continue
		}
		key := strings.ToLower(entry.Name)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, entry)
	}
	cfg.Providers = out
}

// Validate checks the configuration is usable.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	for idx, entry := range cfg.Providers {
		if entry.Model == "" {
			return fmt.Errorf("provider[%d] %s: model is required", idx, entry.Name)
		}
		if !strings.HasPrefix(entry.BaseURL, "http://") && !strings.HasPrefix(entry.BaseURL, "https://") {
			return fmt.Errorf("provider[%d] %s: base-url must be an http(s) URL", idx, entry.Name)
		}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range", cfg.Port)
	}
	if cfg.Guard.MaxMessageLength < 0 {
		return fmt.Errorf("guard.max-message-length cannot be negative")
	}
	if cfg.Guard.DensityThreshold < 0 {
		return fmt.Errorf("guard.density-threshold cannot be negative")
	}
	return nil
}

// Addr returns the listen address.
func (cfg *Config) Addr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

func expandUserPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("config path is required")
	}
	if path[0] != '~' {
		return filepath.Clean(path), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if path == "~" {
		return filepath.Clean(home), nil
	}
	remainder := strings.TrimLeft(path[1:], "/\\")
	if remainder == "" {
		return filepath.Clean(home), nil
	}
	return filepath.Clean(filepath.Join(home, remainder)), nil
}
