// Package cli turns the raw argument list into a single Invocation.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"pyproj/internal/logger"
)

// ErrUsage marks an invocation that is missing required arguments.
var ErrUsage = errors.New("usage error")

// Mode is the operation selected by the command line.
type Mode int

const (
	ModeSetup Mode = iota
	ModeBuildRun
	ModeForceCreateRun
	ModeUpdate
	ModeRemove
	ModeList
	ModeHelp
)

func (m Mode) String() string {
	switch m {
	case ModeSetup:
		return "setup"
	case ModeBuildRun:
		return "build-python-run"
	case ModeForceCreateRun:
		return "force-create-run"
	case ModeUpdate:
		return "update"
	case ModeRemove:
		return "remove"
	case ModeList:
		return "list"
	case ModeHelp:
		return "help"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Invocation is the classified command line.
type Invocation struct {
	Mode      Mode
	Name      string
	SourceURL string
	Debug     bool
}

// ForceCreate reports whether a wrapper must be generated even when the
// project ships its own run script.
func (i Invocation) ForceCreate() bool {
	return i.Mode == ModeForceCreateRun
}

// IsSetup reports whether the invocation is one of the setup variants.
func (i Invocation) IsSetup() bool {
	switch i.Mode {
	case ModeSetup, ModeBuildRun, ModeForceCreateRun:
		return true
	}
	return false
}

// modeFlags maps every recognised token to its mode. A higher Mode value
// takes precedence when several are given.
var modeFlags = map[string]Mode{
	"--help":             ModeHelp,
	"-h":                 ModeHelp,
	"--list":             ModeList,
	"-l":                 ModeList,
	"--remove":           ModeRemove,
	"-r":                 ModeRemove,
	"--update":           ModeUpdate,
	"-u":                 ModeUpdate,
	"--force-create-run": ModeForceCreateRun,
	"-fcr":               ModeForceCreateRun,
	"--build-python-run": ModeBuildRun,
	"-bpr":               ModeBuildRun,
}

// Usage is printed for --help and on usage errors.
const Usage = `Usage:
  pyproj <name> <url>                         Clone, provision and register a project
  pyproj --build-python-run|-bpr <name> <url> Same as default setup
  pyproj --force-create-run|-fcr <name> <url> Setup and always generate a wrapper script
  pyproj --update|-u <name>                   Stash local changes, pull, restore
  pyproj --remove|-r <name>                   Remove the project and its bin entry
  pyproj --list|-l                            List managed projects
  pyproj --help|-h                            Show this help

Flags:
  --debug   Enable debug logging

Environment:
  PYPROJ_BASE_DIR   Clone root (default $HOME/python-projects)
  PYPROJ_BIN_DIR    Shared bin directory (default $HOME/.local/bin)
`

// Classify consumes args once and selects exactly one mode. Unknown flags
// and surplus positionals are logged and ignored.
func Classify(args []string) (Invocation, error) {
	inv := Invocation{Mode: ModeSetup}
	var positionals []string

	for _, arg := range args {
		if arg == "--debug" {
			inv.Debug = true
			continue
		}
		if m, ok := modeFlags[arg]; ok {
			if m > inv.Mode {
				inv.Mode = m
			}
			continue
		}
		if strings.HasPrefix(arg, "-") && arg != "-" {
			logger.Warn("[WARN] Ignoring unknown flag %s\n", arg)
			continue
		}
		positionals = append(positionals, arg)
	}

	switch inv.Mode {
	case ModeHelp, ModeList:
		if len(positionals) > 0 {
			logger.Warn("[WARN] Ignoring extra arguments: %s\n", strings.Join(positionals, " "))
		}
		return inv, nil
	}

	if len(positionals) == 0 {
		return inv, fmt.Errorf("%w: %s requires a project name", ErrUsage, inv.Mode)
	}
	inv.Name = positionals[0]

	want := 1
	if inv.IsSetup() {
		want = 2
		if len(positionals) > 1 {
			inv.SourceURL = positionals[1]
		}
	}
	if len(positionals) > want {
		logger.Warn("[WARN] Ignoring extra arguments: %s\n", strings.Join(positionals[want:], " "))
	}
	return inv, nil
}
