package installer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pyproj/internal/config"
	"pyproj/internal/logger"
)

// exists reports whether path exists without following a final symlink.
func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// isDir reports whether path exists and is a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isFile reports whether path exists and is not a directory.
func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// makeExecutable adds the execute bits matching the existing read bits.
func makeExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	mode |= (mode & 0o444) >> 2
	mode |= 0o100
	return os.Chmod(path, mode)
}

// SafeProjectPath resolves base/name and refuses anything that is empty,
// the filesystem root, the base directory itself, or outside base. The
// state file and lock directory that share base are refused too.
func SafeProjectPath(base, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("refusing to operate on an empty project name")
	}
	if strings.TrimSpace(base) == "" {
		return "", errors.New("refusing to operate without a base directory")
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolving base directory %s: %w", base, err)
	}
	target := filepath.Join(absBase, name)

	if target == "" || target == string(filepath.Separator) {
		return "", fmt.Errorf("refusing to operate on filesystem root for project %q", name)
	}
	if target == absBase {
		return "", fmt.Errorf("project %q resolves to the base directory %s", name, absBase)
	}
	rel, err := filepath.Rel(absBase, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("project %q resolves to %s, outside %s", name, target, absBase)
	}
	if strings.ContainsRune(rel, filepath.Separator) {
		return "", fmt.Errorf("project %q must be a single directory name under %s", name, absBase)
	}
	if rel == config.StateFileName || rel == config.LockDirName {
		return "", fmt.Errorf("project %q is reserved for pyproj bookkeeping in %s", name, absBase)
	}
	return target, nil
}

// markGroupExecutable adds g+x to every regular file directly under dir.
// Failures are collected and returned together; the caller treats them as warnings.
func markGroupExecutable(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		info, err := os.Stat(path)
		if err != nil {
			// dangling interpreter links are common in venv/bin
			logger.Debug("[DEBUG] Skipping %s: %v\n", path, err)
			continue
		}
		if info.IsDir() {
			continue
		}
		if err := os.Chmod(path, info.Mode().Perm()|0o010); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// removeCacheDirs deletes every __pycache__ directory under root and returns
// how many were removed.
func removeCacheDirs(root string) (int, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == config.CacheDirName {
			found = append(found, path)
			return filepath.SkipDir
		}
		return nil
	})

	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	removed := 0
	for _, dir := range found {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			errs = append(errs, rmErr)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
