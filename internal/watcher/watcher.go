// Package watcher reports debounced changes to manifest files and
// directories.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/routegate/internal/log"
	"github.com/zjrosen/routegate/internal/manifest"
)

// Change lists the files touched during one debounce window, sorted.
type Change struct {
	Paths []string
}

// Watcher monitors manifest sources and sends one Change per burst of edits.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     []string
	match     func(name string) bool
	debounce  time.Duration
	files     map[string]struct{} // explicitly watched files; dirs match any manifest file
	onChange  chan Change
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// Paths are manifest files or directories. Directories are watched
	// recursively.
	Paths []string

	// DebounceDur is how long the watcher waits after the last event
	// before sending a Change.
	DebounceDur time.Duration

	// Match filters file names. Defaults to manifest.IsManifestFile.
	Match func(name string) bool
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(paths ...string) Config {
	return Config{
		Paths:       paths,
		DebounceDur: 200 * time.Millisecond,
		Match:       manifest.IsManifestFile,
	}
}

// New creates a new manifest watcher.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Paths) == 0 {
		return nil, fmt.Errorf("no paths to watch")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	match := cfg.Match
	if match == nil {
		match = manifest.IsManifestFile
	}

	return &Watcher{
		fsWatcher: fsw,
		paths:     cfg.Paths,
		match:     match,
		debounce:  cfg.DebounceDur,
		files:     make(map[string]struct{}),
		onChange:  make(chan Change, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. Files are watched through their parent directory.
// Returns a channel that receives a Change when manifests are edited.
func (w *Watcher) Start() (<-chan Change, error) {
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}

		if info.IsDir() {
			if err := w.addTree(abs); err != nil {
				return nil, err
			}
			continue
		}

		w.files[abs] = struct{}{}
		if err := w.fsWatcher.Add(filepath.Dir(abs)); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", filepath.Dir(abs), err)
		}
	}

	log.Debug(log.CatWatcher, "Watcher started", "paths", w.paths, "debounce", w.debounce)
	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// addTree watches root and every non-hidden directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		return nil
	})
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending = make(map[string]struct{})
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			w.followNewDir(event)
			if !w.isRelevantEvent(event) {
				continue
			}
			pending[event.Name] = struct{}{}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if len(pending) == 0 {
				continue
			}
			change := Change{Paths: make([]string, 0, len(pending))}
			for p := range pending {
				change.Paths = append(change.Paths, p)
			}
			slices.Sort(change.Paths)
			clear(pending)

			// Non-blocking send - drop if the consumer has not read the last one
			select {
			case w.onChange <- change:
				log.Debug(log.CatWatcher, "Manifest change detected", "paths", change.Paths)
			default:
				log.Debug(log.CatWatcher, "Change dropped, previous still pending", "paths", change.Paths)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "fsnotify error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// followNewDir starts watching directories created under a watched tree.
func (w *Watcher) followNewDir(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.IsDir() || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}
	if _, explicit := w.files[event.Name]; explicit {
		return
	}
	if err := w.addTree(event.Name); err != nil {
		log.ErrorErr(log.CatWatcher, "Failed to watch new directory", err, "dir", event.Name)
	}
}

// isRelevantEvent checks if the event should trigger a reload.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if !w.match(filepath.Base(event.Name)) {
		return false
	}
	if _, ok := w.files[event.Name]; ok {
		return true
	}
	return w.underWatchedDir(event.Name)
}

// underWatchedDir reports whether name lies inside one of the configured
// directories, as opposed to a sibling of a configured file.
func (w *Watcher) underWatchedDir(name string) bool {
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if _, isFile := w.files[abs]; isFile {
			continue
		}
		if rel, err := filepath.Rel(abs, name); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}
