package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports writes to files in a worktree.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewWatcher watches root and every non-ignored directory below it.
func NewWatcher(root string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{root: root, watcher: fw, logger: logger}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		name, err := Rel(w.root, path)
		if err != nil {
			return err
		}
		if name != "." && ShouldIgnore(name) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
}

// Run calls onChange with the worktree name of every file created or written
// until ctx is done. Calls happen on the Run goroutine, one at a time. Errors
// from onChange are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context, onChange func(name string) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event, onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, onChange func(string) error) {
	name, err := Rel(w.root, event.Name)
	if err != nil {
		w.logger.Warn("ignoring event outside worktree", zap.String("path", event.Name), zap.Error(err))
		return
	}
	if ShouldIgnore(name) {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Removed again before we got here
		return
	}
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Error("watching new directory", zap.String("path", name), zap.Error(err))
			}
		}
		return
	}

	if err := onChange(name); err != nil {
		w.logger.Warn("handling change", zap.String("path", name), zap.Error(err))
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
