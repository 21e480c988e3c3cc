// Package git provides the Git operations shove needs: repository
// detection, branch listing, remote credentials and pushing.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultRemoteName is used when no remote is configured or detected.
const DefaultRemoteName = "origin"

// Repo holds repository information.
type Repo struct {
	// Root is the worktree root directory.
	Root string

	// GitDir is the path to the common .git directory.
	GitDir string

	// IsBare indicates if this is a bare repository.
	IsBare bool

	// DefaultBranch is the default branch (main, master, etc).
	DefaultBranch string
}

// currentRepo caches the current repository info.
var (
	currentRepo *Repo
	repoMu      sync.RWMutex
)

// GetRepo returns the current repository information.
// It caches the result for subsequent calls.
func GetRepo() (*Repo, error) {
	repoMu.RLock()
	if currentRepo != nil {
		defer repoMu.RUnlock()
		return currentRepo, nil
	}
	repoMu.RUnlock()

	repoMu.Lock()
	defer repoMu.Unlock()

	// Double-check after acquiring write lock
	if currentRepo != nil {
		return currentRepo, nil
	}

	repo, err := detectRepo("")
	if err != nil {
		return nil, err
	}
	currentRepo = repo
	return repo, nil
}

// OpenRepo detects the repository containing dir without touching the
// process-wide cache.
func OpenRepo(dir string) (*Repo, error) {
	return detectRepo(dir)
}

// ResetRepo clears the cached repository info.
func ResetRepo() {
	repoMu.Lock()
	defer repoMu.Unlock()
	currentRepo = nil
}

// detectRepo detects the Git repository containing dir ("" = cwd).
func detectRepo(dir string) (*Repo, error) {
	gitDir, err := runGitInDir(dir, "rev-parse", "--git-common-dir")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	gitDir = strings.TrimSpace(gitDir)

	if !filepath.IsAbs(gitDir) {
		base := dir
		if base == "" {
			base, err = os.Getwd()
			if err != nil {
				return nil, err
			}
		}
		gitDir = filepath.Join(base, gitDir)
	}
	gitDir = filepath.Clean(gitDir)

	isBareStr, err := runGitInDir(dir, "rev-parse", "--is-bare-repository")
	if err != nil {
		return nil, err
	}
	isBare := strings.TrimSpace(isBareStr) == "true"

	root := gitDir
	if !isBare {
		root, err = runGitInDir(dir, "rev-parse", "--show-toplevel")
		if err != nil {
			return nil, err
		}
		root = strings.TrimSpace(root)
	}

	return &Repo{
		Root:          root,
		GitDir:        gitDir,
		IsBare:        isBare,
		DefaultBranch: detectDefaultBranch(dir, ""),
	}, nil
}

// GetPrimaryRemote returns the remote to push to.
// If configuredRemote is non-empty, it's used directly.
// Otherwise:
// 1. If there's only one remote, use it
// 2. If "origin" exists, prefer it
// 3. Otherwise use the first remote alphabetically
func GetPrimaryRemote(dir, configuredRemote string) string {
	if configuredRemote != "" {
		return configuredRemote
	}

	output, err := runGitInDir(dir, "remote")
	if err != nil {
		return DefaultRemoteName
	}

	remotes := strings.Fields(strings.TrimSpace(output))
	if len(remotes) == 0 {
		return DefaultRemoteName
	}
	if len(remotes) == 1 {
		return remotes[0]
	}
	for _, r := range remotes {
		if r == DefaultRemoteName {
			return r
		}
	}
	return remotes[0]
}

// detectDefaultBranch tries to detect the default branch of remote.
func detectDefaultBranch(dir, configuredRemote string) string {
	remote := GetPrimaryRemote(dir, configuredRemote)

	output, err := runGitInDir(dir, "symbolic-ref", "refs/remotes/"+remote+"/HEAD")
	if err == nil {
		ref := strings.TrimSpace(output)
		prefix := "refs/remotes/" + remote + "/"
		if strings.HasPrefix(ref, prefix) {
			return strings.TrimPrefix(ref, prefix)
		}
	}

	for _, branch := range []string{"main", "master"} {
		if _, err := runGitInDir(dir, "rev-parse", "--verify", "refs/heads/"+branch); err == nil {
			return branch
		}
	}

	return "main"
}

// waitDelay bounds how long a killed git command may hold its pipes.
const waitDelay = time.Second

// runGit executes a git command in the current directory.
func runGit(args ...string) (string, error) {
	return runGitInDir("", args...)
}

// runGitInDir executes a git command in a specific directory ("" = cwd).
func runGitInDir(dir string, args ...string) (string, error) {
	return runGitContext(context.Background(), dir, "", nil, args...)
}

// runGitContext executes a git command feeding stdin, with extra
// environment variables appended to the process environment. When ctx ends
// git is killed; output pipes held open by its children are abandoned after
// waitDelay.
func runGitContext(ctx context.Context, dir, stdin string, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.WaitDelay = waitDelay
	cmd.Dir = dir
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
