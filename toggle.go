package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Well-known toggles consulted by viewer collaborators.
const (
	ToggleShowAxis        = "show_axis"
	ToggleConsoleRedirect = "console_redirect"
)

// Toggle is a set of named boolean feature flags. Readers see a consistent
// snapshot; writers replace the whole set.
type Toggle struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func NewToggle(flags map[string]bool) *Toggle {
	t := &Toggle{}
	t.Replace(flags)
	return t
}

// Get reports the flag value; unknown flags are false.
func (t *Toggle) Get(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.flags[name]
}

func (t *Toggle) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.flags))
	for name := range t.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of all flags.
func (t *Toggle) Snapshot() map[string]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]bool, len(t.flags))
	for k, v := range t.flags {
		out[k] = v
	}
	return out
}

func (t *Toggle) Replace(flags map[string]bool) {
	next := make(map[string]bool, len(flags))
	for k, v := range flags {
		next[k] = v
	}
	t.mu.Lock()
	t.flags = next
	t.mu.Unlock()
}

// WatchToggles reloads t from the config file at path whenever it changes,
// until ctx is done.
func WatchToggles(ctx context.Context, path string, t *Toggle) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		var debounce *time.Timer
		const debounceDelay = 200 * time.Millisecond
		reload := func() {
			cfg, err := LoadConfig(path)
			if err != nil {
				Logger().Warn("toggle reload failed", zap.String("path", path), zap.Error(err))
				return
			}
			t.Replace(cfg.Toggles)
			Logger().Info("toggles reloaded", zap.String("path", path), zap.Strings("flags", t.Names()))
		}

		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, reload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				Logger().Warn("config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
