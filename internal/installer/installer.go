// Package installer clones, provisions, registers, updates and removes
// Python projects under the configured base directory.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"pyproj/internal/config"
	"pyproj/internal/logger"
	"pyproj/internal/runner"
	"pyproj/internal/state"
)

// Installer carries the configuration and collaborators shared by every operation.
type Installer struct {
	Cfg    config.Config
	Runner runner.Runner
	// In supplies answers to confirmation prompts.
	In io.Reader
	// Out receives prompts.
	Out io.Writer
	// Now stamps state records; tests pin it.
	Now func() time.Time
}

// New returns an Installer reading prompts from stdin.
func New(cfg config.Config, r runner.Runner) *Installer {
	return &Installer{
		Cfg:    cfg,
		Runner: r,
		In:     os.Stdin,
		Out:    os.Stdout,
		Now:    time.Now,
	}
}

// SetupOptions selects what Setup does for one project.
type SetupOptions struct {
	Name      string
	SourceURL string
	// ForceCreate generates a wrapper even when the project ships run.sh.
	ForceCreate bool
}

// Setup runs the full provisioning pipeline: tools check, clone, venv,
// dependencies and run target. Any returned error is fatal.
func (in *Installer) Setup(ctx context.Context, opts SetupOptions) (state.RunTargetKind, error) {
	logger.Debug("[DEBUG] Setup: %+v\n", opts)

	// Each stage returns a fatal error or logs its warnings and continues
	if err := in.CheckTools(); err != nil {
		return "", err
	}
	projectDir, err := in.PrepareEnvironment(ctx, opts.Name, opts.SourceURL)
	if err != nil {
		return "", err
	}
	if err := in.InstallDependencies(ctx, opts.Name); err != nil {
		return "", err
	}
	kind, err := in.ResolveRunTarget(opts.Name, opts.ForceCreate)
	if err != nil {
		return "", err
	}

	// Registry errors are logged by the state package, never returned
	state.Record(in.Cfg.StatePath, opts.Name, state.ProjectState{
		SourceURL: opts.SourceURL,
		RunTarget: kind,
		BinPath:   in.Cfg.BinPath(opts.Name),
		UpdatedAt: in.Now(),
	})
	logger.Info("[INFO] %s is ready in %s (run target: %s at %s)\n", opts.Name, projectDir, kind, in.Cfg.BinPath(opts.Name))
	return kind, nil
}

// CheckTools verifies the external tools every setup needs are on PATH.
func (in *Installer) CheckTools() error {
	for _, tool := range []string{in.Cfg.Git, in.Cfg.Python} {
		if _, err := in.Runner.LookPath(tool); err != nil {
			return fmt.Errorf("required tool %q not found: %w", tool, err)
		}
		logger.Debug("[DEBUG] Found required tool %s\n", tool)
	}
	return nil
}
