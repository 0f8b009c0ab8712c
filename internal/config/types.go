package config

import "path/filepath"

// Fixed names inside a managed project directory.
const (
	VenvDirName      = "venv"
	RunScriptName    = "run.sh"
	BuildScriptName  = "build.sh"
	RequirementsName = "requirements.txt"
	EntryScriptName  = "main.py"
	CacheDirName     = "__pycache__"
)

// Bookkeeping entries kept directly under BaseDir. They are never project
// names.
const (
	StateFileName = ".pyproj-state.json"
	LockDirName   = ".locks"
)

// Environment variables that override the configured directories.
const (
	EnvBaseDir = "PYPROJ_BASE_DIR"
	EnvBinDir  = "PYPROJ_BIN_DIR"
)

// Config is the resolved configuration passed into every component.
// - BaseDir: Clone root; every project lives in BaseDir/<name>.
// - BinDir: Shared directory receiving one run target per project.
// - Python/Git: Commands used to create environments and talk to remotes.
// - Remote: Remote passed to `git pull`; empty means the tracking remote.
// - StatePath: JSON registry of managed projects.
// - LockDir: Directory holding per-project lock files.
type Config struct {
	BaseDir   string `yaml:"base_dir"`
	BinDir    string `yaml:"bin_dir"`
	Python    string `yaml:"python"`
	Git       string `yaml:"git"`
	Remote    string `yaml:"remote"`
	StatePath string `yaml:"state_path"`
	LockDir   string `yaml:"lock_dir"`
}

// ProjectDir returns the clone directory for the named project.
func (c Config) ProjectDir(name string) string {
	return filepath.Join(c.BaseDir, name)
}

// BinPath returns the shared bin entry for the named project.
func (c Config) BinPath(name string) string {
	return filepath.Join(c.BinDir, name)
}

// VenvDir returns the virtual environment directory of the named project.
func (c Config) VenvDir(name string) string {
	return filepath.Join(c.ProjectDir(name), VenvDirName)
}
