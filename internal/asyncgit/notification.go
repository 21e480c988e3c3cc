// Package asyncgit runs slow git operations off the UI goroutine and
// reports their progress through notifications.
//
// Engines expose poll-style queries (IsPending, Progress, LastResult) that
// are safe to call at any time. Whenever an operation advances, the engine
// sends a Notification tagged with its subsystem on the channel given at
// construction; the owner of the channel reacts by polling.
package asyncgit

// NotificationKind identifies the subsystem a notification is about.
type NotificationKind int

const (
	// NotificationPush: a push advanced or finished.
	NotificationPush NotificationKind = iota
	// NotificationStatus: the repository changed on disk.
	NotificationStatus
)

// String returns the kind name used in logs.
func (k NotificationKind) String() string {
	switch k {
	case NotificationPush:
		return "push"
	case NotificationStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Notification is a "something changed" signal.
type Notification struct {
	Kind NotificationKind

	// RequestID is the ID of the request this notification is about, if
	// any.
	RequestID string
}
