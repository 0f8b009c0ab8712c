package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNothingSet(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvBaseDir, "")
	t.Setenv(EnvBinDir, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "python-projects"), cfg.BaseDir)
	assert.Equal(t, filepath.Join(home, ".local", "bin"), cfg.BinDir)
	assert.Equal(t, "python3", cfg.Python)
	assert.Equal(t, "git", cfg.Git)
	assert.Equal(t, filepath.Join(cfg.BaseDir, ".pyproj-state.json"), cfg.StatePath)
	assert.Equal(t, filepath.Join(cfg.BaseDir, ".locks"), cfg.LockDir)
}

func TestLoad_FileThenEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	content := "config:\n  base_dir: " + filepath.Join(dir, "from-file") +
		"\n  bin_dir: " + filepath.Join(dir, "bin-file") +
		"\n  python: python3.12\n  remote: upstream\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	envBase := filepath.Join(dir, "from-env")
	t.Setenv(EnvBaseDir, envBase)
	t.Setenv(EnvBinDir, "")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, envBase, cfg.BaseDir)
	assert.Equal(t, filepath.Join(dir, "bin-file"), cfg.BinDir)
	assert.Equal(t, "python3.12", cfg.Python)
	assert.Equal(t, "upstream", cfg.Remote)
	assert.Equal(t, "git", cfg.Git)
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("config: [unterminated"), 0o644))

	_, err := Load(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestConfigPaths(t *testing.T) {
	cfg := Config{BaseDir: "/srv/projects", BinDir: "/srv/bin"}
	assert.Equal(t, "/srv/projects/demo", cfg.ProjectDir("demo"))
	assert.Equal(t, "/srv/projects/demo/venv", cfg.VenvDir("demo"))
	assert.Equal(t, "/srv/bin/demo", cfg.BinPath("demo"))
}
