// Package watch detects edits made to the data file by other processes.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/devtally/internal/checksum"
)

// Source is a file-backed store that can tell its own writes apart.
type Source interface {
	// Path returns the absolute path of the data file.
	Path() string
	// Owns reports whether sum is the checksum of content the store itself
	// last read or wrote ("" for a missing file).
	Owns(sum string) bool
}

// ChangeCallback is called with the data file path after a foreign edit.
type ChangeCallback func(path string)

const settle = 200 * time.Millisecond

// Watch observes the directory holding the data file and reports changes
// the store did not make itself until ctx is cancelled. Events are debounced
// so an editor's write-rename sequence is checked once.
func Watch(ctx context.Context, src Source, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	path := filepath.Clean(src.Path())
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", path))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(settle)
			timerCh = timer.C
		} else {
			timer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			timer, timerCh = nil, nil
			check(src, path, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func check(src Source, path string, logger *slog.Logger, cb ChangeCallback) {
	sum, err := checksum.File(path)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if src.Owns(sum) {
		return
	}
	logger.Warn("watcher: data file changed outside the bot; edits made while running may be overwritten",
		slog.String("path", path))
	if cb != nil {
		cb(path)
	}
}
