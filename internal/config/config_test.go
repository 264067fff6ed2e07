package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
host: 0.0.0.0
port: 9000
debug: true
log-dir: /tmp/msgpipe-logs
providers:
  - name: primary
    base-url: https://api.example.com/v1/
    api-key-env: PRIMARY_KEY
    model: gpt-test
  - name: backup
    base-url: http://localhost:11434/v1
    model: local-model
guard:
  max-message-length: 5000
  density-threshold: 20
filter:
  placeholder: our assistant
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/msgpipe-logs", cfg.LogDir)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "https://api.example.com/v1", cfg.Providers[0].BaseURL, "trailing slash trimmed")
	assert.Equal(t, 5000, cfg.Guard.MaxMessageLength)
	assert.Equal(t, 20, cfg.Guard.DensityThreshold)
	assert.Equal(t, "our assistant", cfg.Filter.Placeholder)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: only
    base-url: https://api.example.com/v1
    model: m
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8317", cfg.Addr())
	assert.False(t, cfg.Debug)
	assert.Zero(t, cfg.Guard.MaxMessageLength, "zero keeps the package default")
}

func TestNormalizeDropsEmptyAndDuplicateProviders(t *testing.T) {
	cfg := &Config{Providers: []ProviderEntry{
		{Name: "  first  ", BaseURL: " https://a.example.com/ ", Model: "m"},
		{Name: "", BaseURL: "https://nameless.example.com", Model: "m"},
		{Name: "FIRST", BaseURL: "https://dup.example.com", Model: "m"},
		{Name: "second", BaseURL: "", Model: "m"},
	}}

	cfg.Normalize()

	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "first", cfg.Providers[0].Name)
	assert.Equal(t, "https://a.example.com", cfg.Providers[0].BaseURL)
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"no providers", Config{}},
		{"missing model", Config{Providers: []ProviderEntry{
			{Name: "p", BaseURL: "https://x.example.com"},
		}}},
		{"bad scheme", Config{Providers: []ProviderEntry{
			{Name: "p", BaseURL: "ftp://x.example.com", Model: "m"},
		}}},
		{"port out of range", Config{Port: 70000, Providers: []ProviderEntry{
			{Name: "p", BaseURL: "https://x.example.com", Model: "m"},
		}}},
		{"negative guard limit", Config{
			Guard: GuardConfig{MaxMessageLength: -1},
			Providers: []ProviderEntry{
				{Name: "p", BaseURL: "https://x.example.com", Model: "m"},
			},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.Normalize()
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "providers: [whoops")

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Error(t, err)
}

func TestProviderAPIKeyFromEnv(t *testing.T) {
	t.Setenv("MSGPIPE_TEST_KEY", "  secret-value  ")

	entry := ProviderEntry{APIKeyEnv: "MSGPIPE_TEST_KEY"}
	assert.Equal(t, "secret-value", entry.APIKey())

	assert.Empty(t, ProviderEntry{}.APIKey())
}

func TestExpandUserPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	resolved, err := expandUserPath("~/configs/msgpipe.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "configs", "msgpipe.yaml"), resolved)

	_, err = expandUserPath("   ")
	assert.Error(t, err)
}
