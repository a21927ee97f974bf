package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Platform string   `json:"platform"`
	DryRun   bool     `json:"dry_run"`
	Sources  []string `json:"sources"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](path)
	require.ErrorIs(t, err, os.ErrNotExist)

	err = os.WriteFile(path, []byte(`{
		// comments are allowed
		platform: "steam",
		sources: ["https://example.com/codes"],
	}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "steam", cfg.Platform)
	require.False(t, cfg.DryRun)
	require.Equal(t, []string{"https://example.com/codes"}, cfg.Sources)

	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		platform: "epic",
		dry_run: true,
	}`), 0600)
	require.NoError(t, err)

	cfg, err = ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, "epic", cfg.Platform)
	require.True(t, cfg.DryRun)
	require.Equal(t, []string{"https://example.com/codes"}, cfg.Sources)
}

func TestReadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{platform: `), 0600))

	_, err := ReadConfig[testConfig](path)
	require.Error(t, err)
	require.NotErrorIs(t, err, os.ErrNotExist)
}

func TestLayers(t *testing.T) {
	table := []struct {
		input  string
		layers []string
	}{
		{input: "config.json5", layers: []string{"config.json5", "config.local.json5"}},
		{input: "dir/telemetry.json5", layers: []string{"dir/telemetry.json5", "dir/telemetry.local.json5"}},
		{input: "noext", layers: []string{"noext", "noext.local"}},
	}

	for _, row := range table {
		require.Equal(t, row.layers, Layers(row.input))
	}
}

func TestReadConfigLocalOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{dry_run: true}`), 0600))

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.True(t, cfg.DryRun)
}

func TestReadFrom(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0700))

	_, err := ReadFrom[testConfig](nested, "shift.json5")
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(filepath.Join(root, "shift.json5"), []byte(`{platform: "xbox"}`), 0600))
	cfg, err := ReadFrom[testConfig](nested, "shift.json5")
	require.NoError(t, err)
	require.Equal(t, "xbox", cfg.Platform)

	require.NoError(t, os.WriteFile(filepath.Join(nested, "shift.json5"), []byte(`{platform: "psn"}`), 0600))
	cfg, err = ReadFrom[testConfig](nested, "shift.json5")
	require.NoError(t, err)
	require.Equal(t, "psn", cfg.Platform)
}
