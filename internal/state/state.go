package state

import (
	"encoding/json" // For JSON encoding and decoding of the state file
	"os"            // For file system operations like reading and writing files
	"path/filepath"
	"sort"
	"time"

	"pyproj/internal/logger" // Custom logger package for logging errors and debug info
)

// RunTargetKind names the form of a project's shared bin entry.
type RunTargetKind string

const (
	RunTargetSymlink RunTargetKind = "symlink"
	RunTargetWrapper RunTargetKind = "wrapper"
)

// ProjectState represents the saved record of a managed project.
// It records where the project came from and which run target was registered for it.
type ProjectState struct {
	SourceURL string        `json:"source_url,omitempty"` // Clone URL used at first setup
	RunTarget RunTargetKind `json:"run_target"`           // Form of the entry in the shared bin directory
	BinPath   string        `json:"bin_path"`             // Absolute path of the shared bin entry
	UpdatedAt time.Time     `json:"updated_at"`           // Last successful setup or update
}

// State holds the entire saved registry keyed by project name.
type State struct {
	Projects map[string]ProjectState `json:"projects"`
}

// LoadState loads the saved state from a JSON file at the given path.
// If the file does not exist or cannot be read, it returns a new empty State.
func LoadState(path string) *State {
	file, err := os.ReadFile(path)
	if err != nil {
		return &State{Projects: make(map[string]ProjectState)}
	}

	var st State
	if err := json.Unmarshal(file, &st); err != nil {
		logger.Warn("[WARN] Ignoring unreadable state file %s: %v\n", path, err)
	}
	if st.Projects == nil {
		st.Projects = make(map[string]ProjectState)
	}
	return &st
}

// SaveState writes the given State to a JSON file at the given path.
// Errors during marshalling or writing are logged but not propagated.
func SaveState(path string, st *State) {
	file, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		logger.Error("[ERROR] Failed to marshal state: %v\n", err)
		return
	}

	logger.Debug("[DEBUG] Writing state to %s:\n%s\n", path, string(file))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Error("[ERROR] Failed to create state directory for %s: %v\n", path, err)
		return
	}
	if err := os.WriteFile(path, file, 0o644); err != nil {
		logger.Error("[ERROR] Failed to write state file %s: %v\n", path, err)
	}
}

// Names returns the managed project names in sorted order.
func (s *State) Names() []string {
	names := make([]string, 0, len(s.Projects))
	for name := range s.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record loads the state at path, stores ps under name and saves it.
// An existing SourceURL is kept when ps does not carry one.
func Record(path, name string, ps ProjectState) {
	st := LoadState(path)
	if prev, ok := st.Projects[name]; ok && ps.SourceURL == "" {
		ps.SourceURL = prev.SourceURL
	}
	st.Projects[name] = ps
	SaveState(path, st)
}

// Touch refreshes UpdatedAt for a recorded project. Unknown names are ignored.
func Touch(path, name string, at time.Time) {
	st := LoadState(path)
	ps, ok := st.Projects[name]
	if !ok {
		return
	}
	ps.UpdatedAt = at
	st.Projects[name] = ps
	SaveState(path, st)
}

// Drop removes name from the state at path.
func Drop(path, name string) {
	st := LoadState(path)
	if _, ok := st.Projects[name]; !ok {
		return
	}
	delete(st.Projects, name)
	SaveState(path, st)
}
