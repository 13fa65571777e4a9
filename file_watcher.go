package gram

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher watches one file and emits its contents whenever it is
// written or replaced. sysfs attributes only raise inotify events when the
// driver calls sysfs_notify, so on real hardware a FileWatcher sees changes
// made through the attribute itself (including other writers) but not
// firmware-side changes.
type FileWatcher struct {
	path string
}

// NewFileWatcher creates a FileWatcher for the given path.
func NewFileWatcher(path string) *FileWatcher {
	return &FileWatcher{path: path}
}

// NewFeatureWatcher creates a FileWatcher on a setting's attribute.
func NewFeatureWatcher(store *Store, id string) *FileWatcher {
	return NewFileWatcher(store.Path(id))
}

// Watch begins watching the file. The current contents are emitted first.
func (w *FileWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if _, err := os.Stat(w.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	// Watch the directory so editors and tests that replace the file by
	// rename keep being observed.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	out := make(chan []byte)
	target := filepath.Clean(w.path)

	go func() {
		defer close(out)
		defer watcher.Close()

		// Truncate-then-write shows up as two events; only distinct
		// contents are forwarded.
		var last []byte
		emit := func() bool {
			data, err := os.ReadFile(w.path)
			if err != nil || (last != nil && bytes.Equal(data, last)) {
				return true
			}
			last = data
			select {
			case out <- data:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				if !emit() {
					return
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, nil
}
