// Package lock serializes pyproj invocations per project with an advisory
// file lock. A second setup, update or removal of the same project fails fast.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// Acquire takes an exclusive lock on <lockDir>/<name>.lock so that two
// invocations cannot operate on the same project at once. The caller must
// call Release on the returned handle.
//
// name must be a single path element; anything that could place the lock
// file outside lockDir is refused before the directory is touched.
func Acquire(lockDir, name string) (*flock.Flock, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", lockDir, err)
	}
	fl := flock.New(filepath.Join(lockDir, name+".lock"))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for %s: %w", name, err)
	}
	if !locked {
		return nil, fmt.Errorf("another pyproj invocation is operating on %s", name)
	}
	return fl, nil
}

func validName(name string) error {
	switch {
	case strings.TrimSpace(name) == "", name == ".", name == "..":
		return fmt.Errorf("invalid lock name %q", name)
	case strings.ContainsRune(name, '/'), strings.ContainsRune(name, filepath.Separator):
		return fmt.Errorf("invalid lock name %q: must not contain a path separator", name)
	}
	return nil
}

// Release unlocks fl. A nil handle is ignored.
func Release(fl *flock.Flock) {
	if fl != nil {
		_ = fl.Unlock()
	}
}
