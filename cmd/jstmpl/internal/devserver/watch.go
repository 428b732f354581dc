package devserver

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/build"
)

// Watch calls onChange once per burst of template changes in the builder's
// directories until ctx is done.
func Watch(ctx context.Context, b *build.Builder, debounce time.Duration, onChange func()) error {
	w, err := newWatcher(b, debounce)
	if err != nil {
		return err
	}
	defer w.Close()
	w.Run(ctx, onChange)
	return nil
}

// watcher turns bursts of template file events into single rebuilds.
type watcher struct {
	fs       *fsnotify.Watcher
	builder  *build.Builder
	debounce time.Duration
}

func newWatcher(b *build.Builder, debounce time.Duration) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &watcher{fs: fw, builder: b, debounce: debounce}
	if w.debounce <= 0 {
		w.debounce = 100 * time.Millisecond
	}
	for _, dir := range b.Dirs() {
		if err := w.addTree(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// addTree watches dir and its subdirectories, skipping hidden ones.
func (w *watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

func (w *watcher) Close() error {
	return w.fs.Close()
}

// isRelevant reports whether an event can change the bundle.
func (w *watcher) isRelevant(event fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	if w.builder.IsTemplate(event.Name) {
		return true
	}
	// A removed or renamed directory may have held templates.
	return event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

// Run calls rebuild once per burst of relevant events until ctx is done or
// the watcher is closed.
func (w *watcher) Run(ctx context.Context, rebuild func()) {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer
	pending := false

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						log.Printf("⚠️  Failed to watch %s: %v", event.Name, err)
					}
					pending = true
					debounce.Reset(w.debounce)
					continue
				}
			}
			if !w.isRelevant(event) {
				continue
			}
			pending = true
			debounce.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Println("Watcher error:", err)

		case <-debounce.C:
			if pending {
				pending = false
				rebuild()
			}
		}
	}
}
