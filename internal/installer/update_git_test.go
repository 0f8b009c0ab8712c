package installer

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyproj/internal/logger"
	"pyproj/internal/runner"
)

// gitEnv isolates git from the user's configuration. The returned path is
// the global config file, which callers may append to.
func gitEnv(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available, skipping")
	}
	home := t.TempDir()
	global := filepath.Join(home, ".gitconfig")
	writeFile(t, global, "[init]\n\tdefaultBranch = main\n[pull]\n\trebase = false\n[user]\n\tname = Test\n\temail = test@example.com\n", 0o644)

	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GIT_CONFIG_GLOBAL", global)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
	return global
}

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return string(out)
}

// upstreamClone publishes a two-file project to a bare repository and clones
// it as project name under the installer's base directory. It returns the
// seed checkout used to push further upstream commits.
func upstreamClone(t *testing.T, in *Installer, name string) string {
	t.Helper()
	root := t.TempDir()
	bare := filepath.Join(root, "upstream.git")
	seed := filepath.Join(root, "seed")

	gitRun(t, root, "init", "--bare", bare)
	gitRun(t, root, "clone", bare, seed)
	writeFile(t, filepath.Join(seed, "main.py"), "print('v1')\n", 0o644)
	writeFile(t, filepath.Join(seed, "util.py"), "VALUE = 1\n", 0o644)
	gitRun(t, seed, "add", ".")
	gitRun(t, seed, "commit", "-m", "initial")
	gitRun(t, seed, "push", "origin", "HEAD")

	require.NoError(t, os.MkdirAll(in.Cfg.BaseDir, 0o755))
	gitRun(t, in.Cfg.BaseDir, "clone", bare, name)
	return seed
}

// parkUserStash leaves an older stash entry in dir, as a user would.
func parkUserStash(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "util.py"), "VALUE = 'older parked work'\n", 0o644)
	gitRun(t, dir, "stash", "push", "-m", "user parked work")
}

func stashList(t *testing.T, dir string) []string {
	t.Helper()
	out := strings.TrimSpace(gitRun(t, dir, "stash", "list"))
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// newGitInstaller runs commands through the real git binary with output
// captured instead of streamed to the terminal.
func newGitInstaller(t *testing.T) *Installer {
	t.Helper()
	in, _ := newTestInstaller(t, nil)
	var out bytes.Buffer
	in.Runner = &runner.Exec{Stdout: &out, Stderr: &out}
	logger.SetOutput(&out, &out)
	t.Cleanup(func() { logger.SetOutput(nil, nil) })
	return in
}

func TestUpdate_GitKeepsLocalEditsAndPulls(t *testing.T) {
	gitEnv(t)
	in := newGitInstaller(t)
	seed := upstreamClone(t, in, "demo")
	dir := in.Cfg.ProjectDir("demo")

	parkUserStash(t, dir)

	writeFile(t, filepath.Join(seed, "upstream.py"), "print('from upstream')\n", 0o644)
	gitRun(t, seed, "add", "upstream.py")
	gitRun(t, seed, "commit", "-m", "upstream change")
	gitRun(t, seed, "push", "origin", "HEAD")

	writeFile(t, filepath.Join(dir, "main.py"), "print('local edit')\n", 0o644)
	writeFile(t, filepath.Join(dir, "notes.txt"), "scratch\n", 0o644)

	require.NoError(t, in.Update(context.Background(), "demo"))

	assert.Equal(t, "print('from upstream')\n", readFile(t, filepath.Join(dir, "upstream.py")))
	assert.Equal(t, "print('local edit')\n", readFile(t, filepath.Join(dir, "main.py")))
	assert.Equal(t, "scratch\n", readFile(t, filepath.Join(dir, "notes.txt")))
	assert.Equal(t, "VALUE = 1\n", readFile(t, filepath.Join(dir, "util.py")))

	stashes := stashList(t, dir)
	require.Len(t, stashes, 1)
	assert.Contains(t, stashes[0], "user parked work")
}

func TestUpdate_GitIgnoredOnlyGloballyKeepsOlderStash(t *testing.T) {
	global := gitEnv(t)
	in := newGitInstaller(t)
	upstreamClone(t, in, "demo")
	dir := in.Cfg.ProjectDir("demo")

	excludes := filepath.Join(filepath.Dir(global), "ignore")
	writeFile(t, excludes, "*.swp\n", 0o644)
	f, err := os.OpenFile(global, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("[core]\n\texcludesFile = " + excludes + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	parkUserStash(t, dir)
	// Seen as untracked by worktree status, but git itself has nothing to save.
	writeFile(t, filepath.Join(dir, ".main.py.swp"), "swap", 0o644)

	require.NoError(t, in.Update(context.Background(), "demo"))

	assert.Equal(t, "VALUE = 1\n", readFile(t, filepath.Join(dir, "util.py")))
	assert.FileExists(t, filepath.Join(dir, ".main.py.swp"))
	stashes := stashList(t, dir)
	require.Len(t, stashes, 1)
	assert.Contains(t, stashes[0], "user parked work")
}
