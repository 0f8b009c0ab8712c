package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pyproj/internal/config"
	"pyproj/internal/logger"
	"pyproj/internal/runner"
)

// cloneUnsetEnv lists variables that could make git reach for credentials
// or an agent and block on a prompt.
var cloneUnsetEnv = []string{
	"SSH_AUTH_SOCK",
	"SSH_AGENT_PID",
	"SSH_ASKPASS",
	"GIT_ASKPASS",
	"GIT_SSH",
	"GIT_SSH_COMMAND",
}

// cloneSetEnv disables every interactive credential path.
var cloneSetEnv = map[string]string{
	"GIT_TERMINAL_PROMPT": "0",
	"GCM_INTERACTIVE":     "never",
}

// PrepareEnvironment ensures the base and bin directories exist, clones the
// project if absent, and creates its virtual environment if absent.
// It returns the project directory.
func (in *Installer) PrepareEnvironment(ctx context.Context, name, sourceURL string) (string, error) {
	projectDir, err := SafeProjectPath(in.Cfg.BaseDir, name)
	if err != nil {
		return "", err
	}

	// Base and bin roots are shared by every project
	for _, dir := range []string{in.Cfg.BaseDir, in.Cfg.BinDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}

	if err := in.clone(ctx, projectDir, sourceURL); err != nil {
		return "", err
	}
	if err := in.createVenv(ctx, projectDir); err != nil {
		return "", err
	}
	return projectDir, nil
}

// clone runs `git clone` into projectDir with every credential prompt
// disabled. An existing directory is kept as is.
func (in *Installer) clone(ctx context.Context, projectDir, sourceURL string) error {
	if exists(projectDir) {
		logger.Warn("[WARN] %s already exists. Skipping clone.\n", projectDir)
		return nil
	}
	if sourceURL == "" {
		return fmt.Errorf("%s does not exist and no source URL was given", projectDir)
	}

	logger.Info("[INFO] Cloning %s into %s...\n", sourceURL, projectDir)
	// No Dir: the destination is absolute and may not exist yet
	cmd := runner.Command{
		Name:   in.Cfg.Git,
		Args:   []string{"clone", sourceURL, projectDir},
		Set:    cloneSetEnv,
		Unset:  cloneUnsetEnv,
		Stream: true,
	}
	if res := in.Runner.Run(ctx, cmd); res.Classify(runner.SeverityFatal) == runner.SeverityFatal {
		return fmt.Errorf("clone failed: %w", res.Failure(cmd))
	}
	return nil
}

// createVenv creates <project>/venv unless it already exists, then makes
// its executables group-executable.
func (in *Installer) createVenv(ctx context.Context, projectDir string) error {
	venvDir := filepath.Join(projectDir, config.VenvDirName)
	if exists(venvDir) {
		logger.Warn("[WARN] Virtual environment %s already exists. Skipping creation.\n", venvDir)
	} else {
		logger.Info("[INFO] Creating virtual environment in %s...\n", venvDir)
		cmd := runner.Command{
			Name:   in.Cfg.Python,
			Args:   []string{"-m", "venv", venvDir},
			Dir:    projectDir,
			Stream: true,
		}
		if res := in.Runner.Run(ctx, cmd); !res.OK() {
			return fmt.Errorf("virtual environment creation failed: %w", res.Failure(cmd))
		}
	}

	// Best effort, so a shared group can run the project
	if err := markGroupExecutable(filepath.Join(venvDir, "bin")); err != nil {
		logger.Warn("[WARN] Could not mark %s executables group-executable: %v\n", venvDir, err)
	}
	return nil
}

// InstallDependencies runs build.sh when present, otherwise installs
// requirements.txt into the venv. Neither being present is a warning.
func (in *Installer) InstallDependencies(ctx context.Context, name string) error {
	projectDir := in.Cfg.ProjectDir(name)
	buildScript := filepath.Join(projectDir, config.BuildScriptName)
	requirements := filepath.Join(projectDir, config.RequirementsName)

	// build.sh takes precedence over requirements.txt
	switch {
	case isFile(buildScript):
		return in.runBuildScript(ctx, projectDir, buildScript)
	case isFile(requirements):
		return in.installRequirements(ctx, in.Cfg.VenvDir(name), projectDir, requirements)
	default:
		logger.Warn("[WARN] No %s or %s found in %s. Skipping dependency installation.\n",
			config.BuildScriptName, config.RequirementsName, projectDir)
		return nil
	}
}

// runBuildScript makes script executable and runs it from the project root.
func (in *Installer) runBuildScript(ctx context.Context, projectDir, script string) error {
	logger.Info("[INFO] Running %s...\n", script)
	if err := makeExecutable(script); err != nil {
		return fmt.Errorf("chmod failed for %s: %w", script, err)
	}
	cmd := runner.Command{Name: script, Dir: projectDir, Stream: true}
	if res := in.Runner.Run(ctx, cmd); !res.OK() {
		return fmt.Errorf("build script failed: %w", res.Failure(cmd))
	}
	return nil
}

// installRequirements runs the venv's pip against requirements with the
// venv activated for that one command.
func (in *Installer) installRequirements(ctx context.Context, venvDir, projectDir, requirements string) error {
	logger.Info("[INFO] Installing dependencies from %s...\n", requirements)

	act := activate(venvDir)
	cmd := runner.Command{
		Name:   filepath.Join(venvDir, "bin", "pip"),
		Args:   []string{"install", "--no-input", "-r", requirements},
		Dir:    projectDir,
		Set:    act.set,
		Unset:  act.unset,
		Stream: true,
	}
	res := in.Runner.Run(ctx, cmd)
	act.deactivate()

	// Reported only after deactivation
	if !res.OK() {
		return fmt.Errorf("dependency installation failed: %w", res.Failure(cmd))
	}
	return nil
}

// activation is the environment a venv's activate script would produce,
// scoped to the commands it is attached to.
type activation struct {
	venvDir string
	set     map[string]string
	unset   []string
}

// activate mirrors `source venv/bin/activate`: VIRTUAL_ENV set, venv/bin
// first on PATH, PYTHONHOME cleared.
func activate(venvDir string) activation {
	logger.Debug("[DEBUG] Activating %s\n", venvDir)
	return activation{
		venvDir: venvDir,
		set: map[string]string{
			"VIRTUAL_ENV": venvDir,
			"PATH":        filepath.Join(venvDir, "bin") + string(os.PathListSeparator) + os.Getenv("PATH"),
		},
		unset: []string{"PYTHONHOME"},
	}
}

// deactivate ends the activation scope. Nothing is left to undo because the
// parent environment was never modified.
func (a activation) deactivate() {
	logger.Debug("[DEBUG] Deactivated %s\n", a.venvDir)
}
