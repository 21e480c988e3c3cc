package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/gofrs/flock"

	"github.com/henri123lemoine/shove/internal/debug"
)

// ErrPushLocked is returned when another process holds the push lock of the
// repository.
var ErrPushLocked = errors.New("another push is running in this repository")

// pushLockName is the lock file created in the git dir while pushing.
const pushLockName = "shove-push.lock"

// PushOptions describes a single push.
type PushOptions struct {
	Remote     string
	Branch     string
	Credential *BasicAuthCredential

	// SetUpstream records Remote/Branch as the branch's upstream after a
	// successful push if it has none.
	SetUpstream bool

	// Progress receives snapshots while the push runs. May be nil.
	Progress func(PushProgress)
}

// Pusher pushes branches of one repository with go-git.
type Pusher struct {
	// Dir is any directory inside the repository.
	Dir string

	// LockPath is the flock file guarding concurrent pushes ("" = no lock).
	LockPath string
}

// NewPusher returns a Pusher for repo. With lock set, pushes from several
// shove processes on the same repository are serialized through a file
// lock in the git dir.
func NewPusher(repo *Repo, lock bool) *Pusher {
	p := &Pusher{Dir: repo.Root}
	if lock {
		p.LockPath = filepath.Join(repo.GitDir, pushLockName)
	}
	return p
}

// Push pushes opts.Branch to the branch of the same name on opts.Remote.
// A remote that is already up to date is not an error.
func (p *Pusher) Push(ctx context.Context, opts PushOptions) error {
	defer debug.Timed(fmt.Sprintf("push %s to %s", opts.Branch, opts.Remote))()

	if p.LockPath != "" {
		fileLock := flock.New(p.LockPath)
		locked, err := fileLock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire push lock: %w", err)
		}
		if !locked {
			return ErrPushLocked
		}
		defer fileLock.Unlock()
	}

	report := func(pp PushProgress) {
		if opts.Progress != nil {
			opts.Progress(pp)
		}
	}
	report(PushProgress{State: PushProgressAddingObjects})

	dir := p.Dir
	if dir == "" {
		dir = "."
	}
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(opts.Branch)
	pushOpts := &gogit.PushOptions{
		RemoteName: opts.Remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(ref.String() + ":" + ref.String())},
		Progress:   newProgressWriter(report),
	}
	if opts.Credential != nil {
		pushOpts.Auth = &githttp.BasicAuth{
			Username: opts.Credential.Username,
			Password: opts.Credential.Password,
		}
	}

	err = repo.PushContext(ctx, pushOpts)
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return err
	}
	report(PushProgress{State: PushProgressPushing, Progress: 100})

	if opts.SetUpstream {
		if err := setUpstream(repo, opts.Branch, opts.Remote, ref); err != nil {
			debug.Logger().Warn().Err(err).Str("branch", opts.Branch).Msg("set upstream failed")
		}
	}
	return nil
}

// setUpstream records remote/ref as branch's upstream unless one exists.
func setUpstream(repo *gogit.Repository, branch, remote string, ref plumbing.ReferenceName) error {
	cfg, err := repo.Config()
	if err != nil {
		return err
	}
	if b, ok := cfg.Branches[branch]; ok && b.Remote != "" {
		return nil
	}
	cfg.Branches[branch] = &gitconfig.Branch{
		Name:   branch,
		Remote: remote,
		Merge:  ref,
	}
	return repo.SetConfig(cfg)
}
