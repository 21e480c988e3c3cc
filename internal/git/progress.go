package git

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// PushProgressState is a stage of a push.
type PushProgressState int

const (
	// PushProgressAddingObjects: enumerating/counting objects to send.
	PushProgressAddingObjects PushProgressState = iota
	// PushProgressDeltas: compressing objects into deltas.
	PushProgressDeltas
	// PushProgressPushing: writing the pack to the remote.
	PushProgressPushing
)

// String returns the state name used in logs.
func (s PushProgressState) String() string {
	switch s {
	case PushProgressAddingObjects:
		return "adding-objects"
	case PushProgressDeltas:
		return "deltas"
	case PushProgressPushing:
		return "pushing"
	default:
		return "unknown"
	}
}

// PushProgress is a snapshot of push progress.
type PushProgress struct {
	State    PushProgressState
	Progress uint8 // percent, 0-100
}

// NewPushProgress builds a snapshot from an item count.
func NewPushProgress(state PushProgressState, current, total int) PushProgress {
	return PushProgress{State: state, Progress: percent(current, total)}
}

func percent(current, total int) uint8 {
	if total <= 0 || current <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	return uint8(current * 100 / total)
}

var (
	progressCountRe   = regexp.MustCompile(`(\d+)% \((\d+)/(\d+)\)`)
	progressPercentRe = regexp.MustCompile(`(\d+)%`)
)

// ParseProgressLine maps one line of git progress output ("Counting
// objects: 40% (2/5)", "remote: Resolving deltas: 100% (3/3), done.") to a
// snapshot. ok is false for lines that carry no progress.
func ParseProgressLine(line string) (p PushProgress, ok bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "remote:")
	line = strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(line, "Enumerating objects"), strings.HasPrefix(line, "Counting objects"):
		p.State = PushProgressAddingObjects
	case strings.HasPrefix(line, "Compressing objects"), strings.HasPrefix(line, "Delta compression"):
		p.State = PushProgressDeltas
	case strings.HasPrefix(line, "Writing objects"), strings.HasPrefix(line, "Resolving deltas"):
		p.State = PushProgressPushing
	default:
		return PushProgress{}, false
	}

	if m := progressCountRe.FindStringSubmatch(line); m != nil {
		current, _ := strconv.Atoi(m[2])
		total, _ := strconv.Atoi(m[3])
		p.Progress = percent(current, total)
		return p, true
	}
	if m := progressPercentRe.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 100 {
			n = 100
		}
		p.Progress = uint8(n)
		return p, true
	}
	if strings.Contains(line, "done") {
		p.Progress = 100
	}
	return p, true
}

// progressWriter turns a git progress stream (lines separated by \r or \n)
// into PushProgress callbacks.
type progressWriter struct {
	mu  sync.Mutex
	buf []byte
	fn  func(PushProgress)
}

func newProgressWriter(fn func(PushProgress)) *progressWriter {
	return &progressWriter{fn: fn}
}

func (w *progressWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexAny(w.buf, "\r\n")
		if i < 0 {
			break
		}
		line := string(w.buf[:i])
		w.buf = w.buf[i+1:]
		if p, ok := ParseProgressLine(line); ok && w.fn != nil {
			w.fn(p)
		}
	}
	return len(b), nil
}
