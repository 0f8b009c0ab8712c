// Package runner invokes external tools and reports their outcome as a Result
// so callers can decide whether a failure is a warning or fatal.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"pyproj/internal/logger"
)

// Severity classifies the outcome of an external command.
type Severity int

const (
	// SeveritySuccess: the command exited zero.
	SeveritySuccess Severity = iota
	// SeverityWarning: logged, execution continues.
	SeverityWarning
	// SeverityFatal: returned as an error, the invocation stops.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityFatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Command describes one external tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Set adds or replaces variables in the inherited environment.
	Set map[string]string
	// Unset removes variables from the inherited environment.
	Unset []string
	// Stream copies output to the terminal while it is captured.
	Stream bool
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of running a Command.
// ExitCode is -1 when the process could not be started.
type Result struct {
	ExitCode int
	Output   []byte
	Err      error
}

// OK reports whether the command started and exited zero.
func (r Result) OK() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Classify maps the result to a severity, using onFailure for any
// non-successful outcome.
func (r Result) Classify(onFailure Severity) Severity {
	if r.OK() {
		return SeveritySuccess
	}
	return onFailure
}

// Failure describes a failed result, or returns nil for a successful one.
func (r Result) Failure(cmd Command) error {
	if r.OK() {
		return nil
	}
	if r.ExitCode < 0 {
		return fmt.Errorf("%s: %w", cmd, r.Err)
	}
	return fmt.Errorf("%s: exit status %d", cmd, r.ExitCode)
}

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
	LookPath(name string) (string, error)
}

// Exec runs commands as child processes.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns a Runner streaming to the process stdout and stderr.
func NewExec() *Exec {
	return &Exec{Stdout: os.Stdout, Stderr: os.Stderr}
}

// LookPath searches PATH for the named executable.
func (e *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes cmd and blocks until it exits. No timeout is applied; only
// ctx cancellation stops the child.
func (e *Exec) Run(ctx context.Context, cmd Command) Result {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = Environ(os.Environ(), cmd.Set, cmd.Unset)

	// Output is always captured; streaming additionally tees it to the terminal
	var buf bytes.Buffer
	if cmd.Stream {
		c.Stdout = io.MultiWriter(&buf, e.Stdout)
		c.Stderr = io.MultiWriter(&buf, e.Stderr)
	} else {
		c.Stdout = &buf
		c.Stderr = &buf
	}

	logger.Debug("[DEBUG] Running command: %s (dir=%s)\n", cmd, cmd.Dir)
	err := c.Run()
	res := Result{Output: buf.Bytes()}

	// Distinguish a non-zero exit from a process that never started
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		res.Err = err
	default:
		res.ExitCode = -1
		res.Err = err
	}
	logger.Debug("[DEBUG] Command %s finished with exit code %d\n", cmd.Name, res.ExitCode)
	return res
}

// Environ applies set and unset to base and returns a new environment slice.
// Unset wins over set for the same key.
func Environ(base []string, set map[string]string, unset []string) []string {
	// Keys being set or unset are dropped from base first
	drop := make(map[string]bool, len(unset)+len(set))
	for _, k := range unset {
		drop[k] = true
	}
	for k := range set {
		drop[k] = true
	}

	env := make([]string, 0, len(base)+len(set))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if drop[key] {
			continue
		}
		env = append(env, kv)
	}
	// Then the set values are appended, except keys that are also unset
	removed := make(map[string]bool, len(unset))
	for _, k := range unset {
		removed[k] = true
	}
	for k, v := range set {
		if removed[k] {
			continue
		}
		env = append(env, k+"="+v)
	}
	return env
}
