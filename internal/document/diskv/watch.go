package diskv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/julianstephens/umbral/internal/document"
	"github.com/julianstephens/umbral/internal/logger"
)

// Watch streams change events until ctx is cancelled. Callers should drain
// the returned channel; events are dropped rather than blocking the watcher
// when the consumer lags, and a later event covers the same collection
// reload.
func (s *Store) Watch(ctx context.Context) (<-chan document.Event, error) {
	if err := os.MkdirAll(s.basePath, 0o700); err != nil {
		return nil, fmt.Errorf("ensure base path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				logger.Warn("Watcher close failed", "error", err)
			}
		})
	}

	dirs, err := collectDirs(s.basePath)
	if err != nil {
		closeWatcher()
		return nil, fmt.Errorf("enumerate directories: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			closeWatcher()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	events := make(chan document.Event, 64)

	go func() {
		defer close(events)
		defer closeWatcher()

		watched := make(map[string]struct{}, len(dirs))
		for _, dir := range dirs {
			watched[dir] = struct{}{}
		}

		send := func(ev document.Event) {
			select {
			case events <- ev:
			default:
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Watcher error", "error", err)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}

				if evt.Op&fsnotify.Create == fsnotify.Create {
					// New directories appear when a collection gets its
					// first document; watch them so subsequent writes are
					// seen.
					if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
						absDir := filepath.Clean(evt.Name)
						if _, found := watched[absDir]; !found {
							if err := watcher.Add(absDir); err != nil {
								logger.Warn("Failed to watch new directory", "dir", absDir, "error", err)
							} else {
								watched[absDir] = struct{}{}
							}
						}
						continue
					}
				}

				if collection := s.collectionForPath(evt.Name); collection != "" {
					send(document.Event{Collection: collection})
				}
			}
		}
	}()

	return events, nil
}

// collectDirs walks base and returns all directories that should be watched.
func collectDirs(base string) ([]string, error) {
	dirs := []string{base}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != base {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

// collectionForPath derives the collection prefix from a file event path.
func (s *Store) collectionForPath(path string) string {
	rel, err := filepath.Rel(s.basePath, path)
	if err != nil || rel == "." {
		return ""
	}
	rel = filepath.ToSlash(rel)
	idx := strings.LastIndexByte(rel, '/')
	if idx <= 0 {
		// A file at the root is not part of any collection.
		return ""
	}
	return rel[:idx]
}
