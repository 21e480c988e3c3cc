package asyncgit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/henri123lemoine/shove/internal/debug"
	"github.com/henri123lemoine/shove/internal/git"
)

// ErrBusy is returned by Request while another push is running.
var ErrBusy = errors.New("a push is already running")

// PushRequest describes a push to run.
type PushRequest struct {
	// ID tags the notifications of this request.
	ID string

	Remote          string
	Branch          string
	BasicCredential *git.BasicAuthCredential
}

// Pusher performs a blocking push. *git.Pusher implements it.
type Pusher interface {
	Push(ctx context.Context, opts git.PushOptions) error
}

// PushOptions tunes an AsyncPush.
type PushOptions struct {
	// ProgressThrottle is the minimum gap between two progress
	// notifications. The final notification is never throttled.
	ProgressThrottle time.Duration

	// SetUpstream asks the pusher to record the upstream of pushed
	// branches that have none.
	SetUpstream bool
}

// errPushFailed stands in for a push error with an empty message.
const errPushFailed = "push failed"

type pushResult struct {
	id     string
	failed bool
	err    string
}

// AsyncPush runs one push at a time on its own goroutine.
type AsyncPush struct {
	mu         sync.Mutex
	pending    *PushRequest
	progress   *git.PushProgress
	lastResult *pushResult
	lastNotify time.Time

	sender chan<- Notification
	pusher Pusher
	opts   PushOptions
}

// NewAsyncPush creates an engine that pushes through pusher and notifies on
// sender.
func NewAsyncPush(sender chan<- Notification, pusher Pusher, opts PushOptions) *AsyncPush {
	return &AsyncPush{
		sender: sender,
		pusher: pusher,
		opts:   opts,
	}
}

// Request starts req in the background. It fails with ErrBusy if a push is
// still running; the running push is not affected.
func (a *AsyncPush) Request(req PushRequest) error {
	if req.Branch == "" {
		return errors.New("push request without branch")
	}

	a.mu.Lock()
	if a.pending != nil {
		a.mu.Unlock()
		return ErrBusy
	}
	r := req
	a.pending = &r
	a.progress = nil
	a.lastResult = nil
	a.lastNotify = time.Time{}
	a.mu.Unlock()

	debug.Logger().Info().
		Str("request", req.ID).
		Str("remote", req.Remote).
		Str("branch", req.Branch).
		Bool("auth", req.BasicCredential != nil).
		Msg("push requested")

	go a.run(r)
	return nil
}

func (a *AsyncPush) run(req PushRequest) {
	err := a.pusher.Push(context.Background(), git.PushOptions{
		Remote:      req.Remote,
		Branch:      req.Branch,
		Credential:  req.BasicCredential,
		SetUpstream: a.opts.SetUpstream,
		Progress: func(p git.PushProgress) {
			a.setProgress(req.ID, p)
		},
	})

	result := &pushResult{id: req.ID}
	if err != nil {
		result.failed = true
		result.err = err.Error()
		debug.Logger().Warn().Str("request", req.ID).Err(err).Msg("push failed")
	} else {
		debug.Logger().Info().Str("request", req.ID).Msg("push finished")
	}

	a.mu.Lock()
	a.lastResult = result
	a.pending = nil
	a.mu.Unlock()

	if a.sender != nil {
		a.sender <- Notification{Kind: NotificationPush, RequestID: req.ID}
	}
}

func (a *AsyncPush) setProgress(id string, p git.PushProgress) {
	a.mu.Lock()
	a.progress = &p
	now := time.Now()
	notify := a.opts.ProgressThrottle <= 0 || now.Sub(a.lastNotify) >= a.opts.ProgressThrottle
	if notify {
		a.lastNotify = now
	}
	a.mu.Unlock()

	if !notify || a.sender == nil {
		return
	}
	// Dropping a progress tick is harmless: the next poll sees the latest
	// snapshot anyway.
	select {
	case a.sender <- Notification{Kind: NotificationPush, RequestID: id}:
	default:
	}
}

// IsPending reports whether a push is running.
func (a *AsyncPush) IsPending() (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil, nil
}

// PendingID returns the ID of the running push, or "".
func (a *AsyncPush) PendingID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return ""
	}
	return a.pending.ID
}

// Progress returns the latest snapshot of the current or last push, or nil
// before the first one arrives.
func (a *AsyncPush) Progress() (*git.PushProgress, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.progress == nil {
		return nil, nil
	}
	p := *a.progress
	return &p, nil
}

// LastResult returns the error message of the last finished push. An empty
// string means it succeeded, or that no push has finished since the last
// Request.
func (a *AsyncPush) LastResult() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastResult == nil || !a.lastResult.failed {
		return "", nil
	}
	if a.lastResult.err == "" {
		return errPushFailed, nil
	}
	return a.lastResult.err, nil
}
