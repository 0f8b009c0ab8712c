package installer

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"pyproj/internal/logger"
	"pyproj/internal/state"
)

// confirm prints question and reports whether the answer was y or yes.
// EOF or a read error counts as no.
func (in *Installer) confirm(question string) bool {
	fmt.Fprintf(in.Out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in.In).ReadString('\n')
	if err != nil && answer == "" {
		fmt.Fprintln(in.Out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Remove deletes the project's bin entry and its directory after an
// interactive confirmation. It returns removed=false with a nil error when
// the user declines.
func (in *Installer) Remove(name string) (removed bool, err error) {
	// Containment is checked before the prompt so nothing unsafe is ever offered
	projectDir, err := SafeProjectPath(in.Cfg.BaseDir, name)
	if err != nil {
		return false, fmt.Errorf("invalid removal target: %w", err)
	}

	if !in.confirm(fmt.Sprintf("Remove project %s (%s) and its bin entry?", name, projectDir)) {
		logger.Info("[INFO] Removal of %s cancelled.\n", name)
		return false, nil
	}

	// Remove the run target first; a leftover entry is only a warning
	binPath := in.Cfg.BinPath(name)
	if exists(binPath) {
		if err := os.Remove(binPath); err != nil {
			logger.Warn("[WARN] Failed to remove %s: %v\n", binPath, err)
		} else {
			logger.Info("[INFO] Removed %s\n", binPath)
		}
	} else {
		logger.Debug("[DEBUG] No bin entry at %s\n", binPath)
	}

	// The project directory itself must go, otherwise the removal failed
	if exists(projectDir) {
		if err := os.RemoveAll(projectDir); err != nil {
			return false, fmt.Errorf("failed to remove %s: %w", projectDir, err)
		}
		logger.Info("[INFO] Removed %s\n", projectDir)
	} else {
		logger.Warn("[WARN] Project directory %s does not exist.\n", projectDir)
	}

	state.Drop(in.Cfg.StatePath, name)
	return true, nil
}
