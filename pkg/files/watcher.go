package files

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/filefinder/pkg/log"
)

// DefaultDebounce is how long the watcher waits for a burst of changes to
// settle before triggering a rescan.
const DefaultDebounce = 2 * time.Second

// Trigger requests a rescan of a user's home.
type Trigger interface {
	Trigger(user string) bool
}

// Watcher triggers rescans when files change below a home directory.
type Watcher struct {
	watcher  *fsnotify.Watcher
	homes    map[string]string
	trigger  Trigger
	debounce time.Duration
	logger   *log.Logger
}

// NewWatcher watches every directory below the given homes.
func NewWatcher(homes map[string]string, trigger Trigger, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		watcher:  fw,
		homes:    make(map[string]string, len(homes)),
		trigger:  trigger,
		debounce: debounce,
		logger:   log.ForService("watcher"),
	}
	for user, dir := range homes {
		abs, err := filepath.Abs(dir)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolving home of %s: %w", user, err)
		}
		w.homes[user] = abs
		if err := w.addTree(abs); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// owner returns the user whose home contains p.
func (w *Watcher) owner(p string) (string, bool) {
	for user, home := range w.homes {
		if p == home || strings.HasPrefix(p, home+string(filepath.Separator)) {
			return user, true
		}
	}
	return "", false
}

// Run delivers debounced rescan triggers until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			user, ok := w.owner(event.Name)
			if !ok {
				continue
			}
			if event.Has(fsnotify.Create) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Debugf("not watching %s: %v", event.Name, err)
				}
			}
			if len(pending) == 0 {
				timer.Reset(w.debounce)
			}
			pending[user] = true
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnf("watch error: %v", err)
		case <-timer.C:
			for user := range pending {
				w.logger.Debugf("changes detected in home of %s", user)
				w.trigger.Trigger(user)
			}
			clear(pending)
		}
	}
}
