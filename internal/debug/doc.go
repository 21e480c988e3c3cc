// Package debug provides debug logging for shove.
//
// When enabled via the --debug flag or the [log] config section, it writes
// structured JSON lines about git operations, push requests and controller
// state transitions to a rotating log file. Disabled, every call is a no-op.
package debug
