package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"pyproj/internal/config"
	"pyproj/internal/logger"
	"pyproj/internal/runner"
	"pyproj/internal/state"
)

// LocalChanges summarizes uncommitted work in a project worktree.
type LocalChanges struct {
	Staged    []string
	Unstaged  []string
	Untracked []string
}

// Any reports whether there is anything to stash.
func (c LocalChanges) Any() bool {
	return len(c.Staged)+len(c.Unstaged)+len(c.Untracked) > 0
}

// openRepository opens projectDir as a git repository.
func openRepository(projectDir string) (*git.Repository, error) {
	repo, err := git.PlainOpen(projectDir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s is not a git repository", projectDir)
		}
		return nil, fmt.Errorf("opening repository %s: %w", projectDir, err)
	}
	return repo, nil
}

// stashRef is where git records the most recent stash entry.
const stashRef = plumbing.ReferenceName("refs/stash")

// stashHead returns the commit refs/stash points at, or the zero hash when
// the repository has no stash.
func stashHead(repo *git.Repository) (plumbing.Hash, error) {
	ref, err := repo.Reference(stashRef, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return plumbing.ZeroHash, nil
	}
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("reading %s: %w", stashRef, err)
	}
	return ref.Hash(), nil
}

// DetectLocalChanges reports staged, unstaged and untracked paths. Ignored
// files and the project's virtual environment are not counted.
func DetectLocalChanges(repo *git.Repository) (LocalChanges, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return LocalChanges{}, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return LocalChanges{}, fmt.Errorf("reading worktree status: %w", err)
	}

	var changes LocalChanges
	for path, fs := range status {
		if path == config.VenvDirName || strings.HasPrefix(path, config.VenvDirName+"/") {
			continue
		}
		switch {
		case fs.Worktree == git.Untracked:
			changes.Untracked = append(changes.Untracked, path)
		default:
			if fs.Staging != git.Unmodified {
				changes.Staged = append(changes.Staged, path)
			}
			if fs.Worktree != git.Unmodified {
				changes.Unstaged = append(changes.Unstaged, path)
			}
		}
	}
	sort.Strings(changes.Staged)
	sort.Strings(changes.Unstaged)
	sort.Strings(changes.Untracked)
	return changes, nil
}

// Update cleans caches, stashes local changes, pulls and restores the stash.
// Only a missing project directory or a non-repository is fatal.
func (in *Installer) Update(ctx context.Context, name string) error {
	// Preconditions: everything up to the tool check is fatal
	projectDir, err := SafeProjectPath(in.Cfg.BaseDir, name)
	if err != nil {
		return err
	}
	if !isDir(projectDir) {
		return fmt.Errorf("project directory %s does not exist", projectDir)
	}
	repo, err := openRepository(projectDir)
	if err != nil {
		return err
	}
	if _, err := in.Runner.LookPath(in.Cfg.Git); err != nil {
		return fmt.Errorf("required tool %q not found: %w", in.Cfg.Git, err)
	}

	logger.Info("[INFO] Updating %s in %s\n", name, projectDir)

	// Step 1: drop bytecode caches
	if n, err := removeCacheDirs(projectDir); err != nil {
		logger.Warn("[WARN] Cache cleanup in %s was incomplete: %v\n", projectDir, err)
	} else {
		logger.Debug("[DEBUG] Removed %d %s directories\n", n, config.CacheDirName)
	}

	// Step 2: park local work, if there is any
	stashed := false
	changes, err := DetectLocalChanges(repo)
	if err != nil {
		logger.Warn("[WARN] Could not inspect local changes: %v. Continuing without stash.\n", err)
	} else if changes.Any() {
		logger.Info("[INFO] Stashing local changes (%d staged, %d unstaged, %d untracked)\n",
			len(changes.Staged), len(changes.Unstaged), len(changes.Untracked))
		stashed = in.stash(ctx, repo, projectDir, name)
	} else {
		logger.Debug("[DEBUG] No local changes in %s\n", projectDir)
	}

	// Step 3: pull, from the configured remote when one is set
	pullArgs := []string{"pull"}
	if in.Cfg.Remote != "" {
		pullArgs = append(pullArgs, in.Cfg.Remote)
	}
	if in.git(ctx, projectDir, "pull", pullArgs...) {
		logger.Info("[INFO] Pulled latest changes for %s\n", name)
	}

	// Step 4: restore only what this run stashed
	if stashed {
		if in.git(ctx, projectDir, "stash pop", "stash", "pop") {
			logger.Info("[INFO] Restored local changes\n")
		} else {
			logger.Warn("[WARN] Resolve the conflicts in %s manually, then run `git stash pop`.\n", projectDir)
		}
	}

	state.Touch(in.Cfg.StatePath, name, in.Now())
	logger.Info("[INFO] Update of %s finished\n", name)
	return nil
}

// stash pushes the local changes and reports whether this call created a new
// stash entry. git exits 0 without stashing when it sees nothing to save (for
// example files ignored only through core.excludesFile). Only a moved
// refs/stash counts as a stash.
func (in *Installer) stash(ctx context.Context, repo *git.Repository, projectDir, name string) bool {
	before, err := stashHead(repo)
	if err != nil {
		logger.Warn("[WARN] %v. Continuing without stash.\n", err)
		return false
	}
	if !in.git(ctx, projectDir, "stash push", in.stashArgs(name)...) {
		return false
	}
	after, err := stashHead(repo)
	if err != nil {
		logger.Warn("[WARN] %v. Local changes may be in the stash; restore them with `git stash pop`.\n", err)
		return false
	}
	if after == before {
		logger.Warn("[WARN] git found nothing to stash in %s. Existing stash entries are left alone.\n", projectDir)
		return false
	}
	logger.Debug("[DEBUG] Stashed local changes as %s\n", after)
	return true
}

// stashArgs builds the stash push command line. The venv is excluded by
// pathspec so it is never swept into the stash.
func (in *Installer) stashArgs(name string) []string {
	label := fmt.Sprintf("pyproj auto-stash %s %s", name, in.Now().UTC().Format(time.RFC3339))
	return []string{
		"stash", "push", "--include-untracked", "-m", label,
		"--", ".", ":(exclude)" + filepath.ToSlash(config.VenvDirName),
	}
}

// git runs a git subcommand in dir and reports success. Failures are
// logged as warnings labelled with what.
func (in *Installer) git(ctx context.Context, dir, what string, args ...string) bool {
	cmd := runner.Command{Name: in.Cfg.Git, Args: args, Dir: dir, Stream: true}
	res := in.Runner.Run(ctx, cmd)
	if res.Classify(runner.SeverityWarning) == runner.SeverityWarning {
		logger.Warn("[WARN] git %s failed: %v\n", what, res.Failure(cmd))
		return false
	}
	return true
}
