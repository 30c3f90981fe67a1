package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "homowarp.yaml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default configuration to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "src_points:")
	assert.Contains(t, string(data), "HOMOWARP_")

	_, _, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "config", "init", path, "--force")
	require.NoError(t, err)
}

func TestConfigShowUsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("warp:\n  width: 640\n  background: \"#112233\"\n"), 0o600))

	out, _, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "width: 640")
	assert.Contains(t, out, "#112233")
	assert.Contains(t, out, "log_level: info")
}

func TestConfigShowSkipsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  jpeg_quality: 0\n"), 0o600))

	out, _, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "jpeg_quality: 0")

	// Other commands refuse the same file.
	_, _, err = execute(t, "--config", path, "estimate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid jpeg quality")
}

func TestConfigPath(t *testing.T) {
	out, _, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "Search paths:")
	assert.Contains(t, out, "/etc/homowarp")
	assert.Contains(t, out, "Config file in use: (none)")

	path := filepath.Join(t.TempDir(), "homowarp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))
	out, _, err = execute(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, "Config file in use: "+path)
}

func TestConfigMissingFile(t *testing.T) {
	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}
