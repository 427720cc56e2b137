package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
cloud:
  supabase_url: https://example.supabase.co
  supabase_key: test-key
repos:
  - name: owner/repo
    path: /home/operator/repo
handlers:
  - name: on-failure
    event_type: check_run
    action: completed
    command: "echo {{repo}}"
    filters:
      - "payload.conclusion == 'failure'"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://example.supabase.co", cfg.Cloud.SupabaseURL)
	require.Equal(t, []string{"owner/repo"}, cfg.RepoNames())
	require.Equal(t, "/home/operator/repo", cfg.RepoPath("owner/repo"))
	require.Len(t, cfg.Handlers, 1)
	require.Equal(t, 300, cfg.Handlers[0].Timeout)
	require.True(t, cfg.Handlers[0].IsEnabled())
	require.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadMissingCloudCredentials(t *testing.T) {
	path := writeConfig(t, `
repos:
  - name: owner/repo
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadDuplicateRepoName(t *testing.T) {
	path := writeConfig(t, `
cloud:
  supabase_url: https://example.supabase.co
  supabase_key: test-key
repos:
  - name: owner/repo
  - name: owner/repo
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadInvalidHandler(t *testing.T) {
	path := writeConfig(t, `
cloud:
  supabase_url: https://example.supabase.co
  supabase_key: test-key
handlers:
  - name: broken
    event_type: check_run
    action: completed
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverridesCloudCredentials(t *testing.T) {
	path := writeConfig(t, `
cloud:
  supabase_url: https://example.supabase.co
  supabase_key: test-key
`)
	t.Setenv(envSupabaseURL, "https://override.supabase.co")
	t.Setenv(envSupabaseKey, "override-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://override.supabase.co", cfg.Cloud.SupabaseURL)
	require.Equal(t, "override-key", cfg.Cloud.SupabaseKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}
