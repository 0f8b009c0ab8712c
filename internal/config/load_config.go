package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the location of the optional YAML config file.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pyproj", "config.yaml")
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolving home directory: %w", err)
	}
	return Config{
		BaseDir: filepath.Join(home, "python-projects"),
		BinDir:  filepath.Join(home, ".local", "bin"),
		Python:  "python3",
		Git:     "git",
	}, nil
}

// Load resolves the configuration in order: defaults, the YAML file at
// configFile (skipped when absent), a .env file in the working directory,
// then the PYPROJ_* environment variables. Later sources win.
func Load(configFile string) (Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return Config{}, err
	}

	if configFile != "" {
		raw, err := os.ReadFile(configFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// optional
		case err != nil:
			return Config{}, fmt.Errorf("failed to read %s: %w", configFile, err)
		default:
			var fileCfg struct {
				Config Config `yaml:"config"`
			}
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				return Config{}, fmt.Errorf("failed to unmarshal %s: %w", configFile, err)
			}
			cfg = merge(cfg, fileCfg.Config)
		}
	}

	// Load .env file (ignore error if file doesn't exist). Existing
	// environment variables are never overwritten.
	_ = godotenv.Load()

	if v := os.Getenv(EnvBaseDir); v != "" {
		cfg.BaseDir = v
	}
	if v := os.Getenv(EnvBinDir); v != "" {
		cfg.BinDir = v
	}

	return finalize(cfg)
}

// merge overlays the non-empty fields of override onto base.
func merge(base, override Config) Config {
	if override.BaseDir != "" {
		base.BaseDir = override.BaseDir
	}
	if override.BinDir != "" {
		base.BinDir = override.BinDir
	}
	if override.Python != "" {
		base.Python = override.Python
	}
	if override.Git != "" {
		base.Git = override.Git
	}
	if override.Remote != "" {
		base.Remote = override.Remote
	}
	if override.StatePath != "" {
		base.StatePath = override.StatePath
	}
	if override.LockDir != "" {
		base.LockDir = override.LockDir
	}
	return base
}

// finalize makes the directories absolute and derives the state and lock
// locations from BaseDir when they were not set explicitly.
func finalize(cfg Config) (Config, error) {
	var err error
	if cfg.BaseDir, err = filepath.Abs(cfg.BaseDir); err != nil {
		return Config{}, fmt.Errorf("resolving base directory: %w", err)
	}
	if cfg.BinDir, err = filepath.Abs(cfg.BinDir); err != nil {
		return Config{}, fmt.Errorf("resolving bin directory: %w", err)
	}
	if cfg.StatePath == "" {
		cfg.StatePath = filepath.Join(cfg.BaseDir, StateFileName)
	}
	if cfg.LockDir == "" {
		cfg.LockDir = filepath.Join(cfg.BaseDir, LockDirName)
	}
	return cfg, nil
}
