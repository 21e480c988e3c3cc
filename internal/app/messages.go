package app

import (
	"github.com/henri123lemoine/shove/internal/asyncgit"
	"github.com/henri123lemoine/shove/internal/git"
	"github.com/henri123lemoine/shove/internal/queue"
)

// Message types for the bubbletea app.

// BranchesLoadedMsg is sent when branches are loaded.
type BranchesLoadedMsg struct {
	Branches       []git.Branch
	RemoteBranches []git.Branch
	Err            error
}

// NotificationMsg carries a notification from the push engine or the
// repository watcher.
type NotificationMsg struct {
	Notification asyncgit.Notification

	// Closed is set when the notification channel was closed.
	Closed bool
}

// QueueEventMsg carries an event drained from the status queue.
type QueueEventMsg struct {
	Event  queue.InternalEvent
	Closed bool
}

// ErrorMsg is a general error message.
type ErrorMsg struct {
	Err error
}
