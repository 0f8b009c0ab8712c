package installer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"pyproj/internal/config"
	"pyproj/internal/logger"
	"pyproj/internal/state"
)

// wrapperTemplate renders the standalone launcher written to the bin
// directory when a project has no usable run.sh.
var wrapperTemplate = template.Must(template.New("wrapper").Funcs(template.FuncMap{
	"quote": shellQuote,
}).Parse(`#!/usr/bin/env bash
# Generated by pyproj. Regenerated on every setup.

PROJECT_NAME={{ quote .Name }}
PROJECT_DIR={{ quote .ProjectDir }}
ENTRY_SCRIPT="$PROJECT_DIR"/{{ quote .EntryScript }}
ACTIVATE_SCRIPT="$PROJECT_DIR"/{{ quote .ActivateScript }}

if [ ! -d "$PROJECT_DIR" ]; then
    echo "$PROJECT_NAME: project directory $PROJECT_DIR not found" >&2
    exit 1
fi

if [ ! -f "$ENTRY_SCRIPT" ]; then
    echo "$PROJECT_NAME: entry script $ENTRY_SCRIPT not found" >&2
    exit 1
fi

if [ ! -f "$ACTIVATE_SCRIPT" ]; then
    echo "$PROJECT_NAME: virtual environment activation script $ACTIVATE_SCRIPT not found" >&2
    exit 1
fi

# shellcheck disable=SC1090
source "$ACTIVATE_SCRIPT"

python "$ENTRY_SCRIPT" "$@"
status=$?

deactivate

exit $status
`))

// wrapperData holds the values substituted into wrapperTemplate. The
// script paths are relative to ProjectDir.
type wrapperData struct {
	Name           string
	ProjectDir     string
	EntryScript    string
	ActivateScript string
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// RenderWrapper returns the wrapper script for the named project.
func RenderWrapper(name, projectDir string) ([]byte, error) {
	var buf bytes.Buffer
	err := wrapperTemplate.Execute(&buf, wrapperData{
		Name:           name,
		ProjectDir:     projectDir,
		EntryScript:    config.EntryScriptName,
		ActivateScript: filepath.Join(config.VenvDirName, "bin", "activate"),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering wrapper for %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// ResolveRunTarget registers the project's entry point in the bin directory.
// A project run.sh is symlinked unless forceCreate is set; otherwise a wrapper
// is generated. Any previous entry at the bin path is replaced.
func (in *Installer) ResolveRunTarget(name string, forceCreate bool) (state.RunTargetKind, error) {
	projectDir := in.Cfg.ProjectDir(name)
	binPath := in.Cfg.BinPath(name)
	runScript := filepath.Join(projectDir, config.RunScriptName)

	// Never replace a directory, whatever it holds
	if info, err := os.Lstat(binPath); err == nil && info.IsDir() {
		return "", fmt.Errorf("bin path %s is a directory; refusing to replace it", binPath)
	}
	if err := os.MkdirAll(in.Cfg.BinDir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create bin directory %s: %w", in.Cfg.BinDir, err)
	}

	// Project ships its own launcher: link to it
	if isFile(runScript) && !forceCreate {
		logger.Info("[INFO] Found %s. Linking %s -> %s\n", config.RunScriptName, binPath, runScript)
		if err := makeExecutable(runScript); err != nil {
			return "", fmt.Errorf("chmod failed for %s: %w", runScript, err)
		}
		target, err := filepath.Abs(runScript)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", runScript, err)
		}
		if err := placeSymlink(target, binPath); err != nil {
			return "", err
		}
		return state.RunTargetSymlink, nil
	}

	// Otherwise generate a wrapper that activates the venv around main.py
	if forceCreate {
		logger.Info("[INFO] Generating wrapper for %s (forced)\n", name)
	} else {
		logger.Info("[INFO] No %s in %s. Generating wrapper at %s\n", config.RunScriptName, projectDir, binPath)
	}
	content, err := RenderWrapper(name, projectDir)
	if err != nil {
		return "", err
	}
	if err := placeFile(binPath, content); err != nil {
		return "", err
	}
	return state.RunTargetWrapper, nil
}

// placeSymlink points binPath at target, replacing any previous entry by
// renaming a temporary link into place.
func placeSymlink(target, binPath string) error {
	tmp := tempSibling(binPath)
	_ = os.Remove(tmp) // stale link from an interrupted run
	if err := os.Symlink(target, tmp); err != nil {
		return fmt.Errorf("failed to create symlink %s -> %s: %w", binPath, target, err)
	}
	if err := os.Rename(tmp, binPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to create symlink %s -> %s: %w", binPath, target, err)
	}
	return nil
}

// placeFile writes an executable file at binPath through a temporary
// sibling and a rename.
func placeFile(binPath string, content []byte) error {
	f, err := os.CreateTemp(filepath.Dir(binPath), "."+filepath.Base(binPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write wrapper %s: %w", binPath, err)
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("failed to write wrapper %s: %w", binPath, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to write wrapper %s: %w", binPath, err)
	}
	if err := os.Chmod(tmp, 0o755); err != nil {
		cleanup()
		return fmt.Errorf("failed to make wrapper %s executable: %w", binPath, err)
	}
	if err := os.Rename(tmp, binPath); err != nil {
		cleanup()
		return fmt.Errorf("failed to install wrapper %s: %w", binPath, err)
	}
	return nil
}

// tempSibling names a hidden per-process entry next to path, on the same
// filesystem so the final rename is atomic.
func tempSibling(path string) string {
	return filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d", filepath.Base(path), os.Getpid()))
}
