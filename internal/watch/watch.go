// Package watch notices changes to the refs of a repository and reports
// them as status notifications.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/henri123lemoine/shove/internal/asyncgit"
	"github.com/henri123lemoine/shove/internal/debug"
)

// DefaultDelay is the debounce delay used when none is configured.
const DefaultDelay = 350 * time.Millisecond

// Watcher watches a git dir and sends asyncgit.NotificationStatus when
// branches or HEAD change.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	debounce *Debouncer
	done     chan struct{}
}

// Start begins watching gitDir. Notifications are sent without blocking;
// one dropped status notification is superseded by the next change.
func Start(gitDir string, delay time.Duration, sender chan<- asyncgit.Notification) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	for _, path := range watchPaths(gitDir) {
		debug.Logger().Debug().Str("path", path).Msg("watching")
		if err := fw.Add(path); err != nil {
			err := errors.Join(err, fw.Close())
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}

	w := &Watcher{
		watcher: fw,
		done:    make(chan struct{}),
	}
	w.debounce = NewDebouncer(delay, func() {
		select {
		case sender <- asyncgit.Notification{Kind: asyncgit.NotificationStatus}:
		default:
			debug.Logger().Debug().Msg("status notification dropped")
		}
	})
	go w.loop(fw)
	return w, nil
}

func (w *Watcher) loop(fw *fsnotify.Watcher) {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnore(ev.Name) {
				continue
			}
			debug.Logger().Debug().
				Str("op", ev.Op.String()).
				Str("path", ev.Name).
				Msg("fsnotify event")
			// New ref namespaces (feature/x) show up as directories.
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := fw.Add(ev.Name); err != nil {
						debug.Logger().Warn().Err(err).Str("path", ev.Name).Msg("watch add failed")
					}
				}
			}
			w.mu.Lock()
			if w.debounce != nil {
				w.debounce.Trigger()
			}
			w.mu.Unlock()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			debug.Logger().Error().Err(err).Msg("fsnotify error")
		}
	}
}

// Close stops watching. Pending notifications are cancelled.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	fw := w.watcher
	w.watcher = nil
	w.mu.Unlock()

	if fw == nil {
		return nil
	}
	err := fw.Close()
	<-w.done
	return err
}

// watchPaths returns the git dir and every directory under refs/heads and
// refs/remotes. fsnotify is not recursive.
func watchPaths(gitDir string) []string {
	if gitDir == "" {
		return nil
	}
	paths := []string{gitDir}
	for _, sub := range []string{"refs/heads", "refs/remotes"} {
		root := filepath.Join(gitDir, filepath.FromSlash(sub))
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				paths = append(paths, path)
			}
			return nil
		})
	}
	return paths
}

func shouldIgnore(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".lock" || ext == ".ipc" {
		return true
	}
	// Objects and the index change on every commit without touching refs.
	base := filepath.Base(name)
	return base == "index" || strings.Contains(filepath.ToSlash(name), "/objects/")
}
