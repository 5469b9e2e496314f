package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback receives the key of a file that changed on disk.
// removed is true when the file no longer exists.
type ChangeCallback func(key string, removed bool)

// debounce collapses bursts of events (editors often write, chmod and
// rename in quick succession) into one callback per key.
const debounce = 150 * time.Millisecond

// Watch observes the data directory of f and reports changes to stored
// keys until ctx is cancelled. Temp files from Save are ignored, so the
// callback also fires for the store's own writes; callers compare
// checksums to tell external edits apart.
func Watch(ctx context.Context, f *FS, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.Root()); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", f.Root()))

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			for key, removed := range pending {
				logger.Debug("watcher: changed", slog.String("key", key), slog.Bool("removed", removed))
				if cb != nil {
					cb(key, removed)
				}
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			key, ok := f.KeyForPath(ev.Name)
			if !ok {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[key] = false
				schedule()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// A rename onto the key arrives as Create; a rename away
				// or a delete leaves the key missing.
				pending[key] = true
				schedule()
			}

		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", werr.Error()))
		}
	}
}
