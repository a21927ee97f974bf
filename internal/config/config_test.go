package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "shift_redeemer")

	cfg, err := Load(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())

	require.Equal(t, DefaultBaseUrl, cfg.BaseUrl)
	require.Equal(t, "steam", cfg.Platform)
	require.False(t, cfg.DryRun)
	require.Equal(t, DefaultSources, cfg.Sources)
	require.Equal(t, filepath.Join(dir, "shift_codes.txt"), cfg.HistoryFile())
	require.Equal(t, filepath.Join(dir, "shift_cookies.json"), cfg.CookieFile())
	require.Equal(t, filepath.Join(dir, "shift_redeemer.log"), cfg.LogFile())
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		platform: "epic",
		dry_run: true,
		sources: ["https://example.com/codes"],
	}`), 0600)
	require.NoError(t, err)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "epic", cfg.Platform)
	require.True(t, cfg.DryRun)
	require.Equal(t, []string{"https://example.com/codes"}, cfg.Sources)
	require.Equal(t, DefaultBaseUrl, cfg.BaseUrl)
	require.Equal(t, 10, cfg.HarvestTimeoutSeconds)
}

func TestValidate(t *testing.T) {
	table := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty platform", mutate: func(c *Config) { c.Platform = "" }},
		{name: "relative base url", mutate: func(c *Config) { c.BaseUrl = "/home" }},
		{name: "no sources", mutate: func(c *Config) { c.Sources = nil }},
		{name: "bad source", mutate: func(c *Config) { c.Sources = []string{"not a url"} }},
		{name: "zero timeout", mutate: func(c *Config) { c.HarvestTimeoutSeconds = 0 }},
	}

	require.NoError(t, Default().Validate())
	for _, row := range table {
		cfg := Default()
		row.mutate(&cfg)
		require.Error(t, cfg.Validate(), row.name)
	}
}
