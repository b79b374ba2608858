package agent

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// tailWatcher wakes the read loop when the input file grows. fsnotify is
// best-effort; the poll interval covers filesystems without notification
// support and events the watcher misses.
type tailWatcher struct {
	watcher *fsnotify.Watcher
	base    string
	poll    time.Duration
}

func newTailWatcher(path string, poll time.Duration) *tailWatcher {
	t := &tailWatcher{base: filepath.Base(path), poll: poll}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn().Err(err).Msg("fsnotify unavailable, polling instead")
		return t
	}
	// Watch the directory, not the file: editors and log rotation replace
	// the file node, and a directory watch survives that.
	if err := w.Add(filepath.Dir(path)); err != nil {
		logger.Warn().Err(err).Str("dir", filepath.Dir(path)).Msg("watch failed, polling instead")
		_ = w.Close()
		return t
	}
	t.watcher = w
	return t
}

// Wait blocks until the input file is written, the poll interval elapses,
// or ctx is cancelled.
func (t *tailWatcher) Wait(ctx context.Context) error {
	timer := time.NewTimer(t.poll)
	defer timer.Stop()
	if t.watcher == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case ev, ok := <-t.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != t.base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			return nil
		case werr, ok := <-t.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(werr).Msg("watch error")
		}
	}
}

func (t *tailWatcher) Close() {
	if t.watcher != nil {
		_ = t.watcher.Close()
	}
}
