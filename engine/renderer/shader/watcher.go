package shader

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports shader files that changed on disk. Events are collected by a background
// goroutine; Changes is polled from the render thread.
type Watcher interface {
	// Changes drains the pending changes and returns their slash-separated paths relative to the
	// watched directory, deduplicated and sorted. It never blocks.
	Changes() []string

	// Close stops watching.
	Close() error
}

// watcher is the implementation of the Watcher interface.
type watcher struct {
	dir     string
	watch   *fsnotify.Watcher
	changes chan string
	done    chan bool
	logger  *slog.Logger
}

var _ Watcher = &watcher{}

// NewWatcher watches dir and every directory below it for writes, creates and renames.
//
// Parameters:
//   - dir: the shader root directory
//   - logger: the logger watch errors are written to
//
// Returns:
//   - Watcher: the running watcher
//   - error: an error if the watcher could not be created or a directory could not be added
func NewWatcher(dir string, logger *slog.Logger) (Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watch.Add(path)
		}
		return nil
	})
	if err != nil {
		watch.Close()
		return nil, err
	}

	w := &watcher{
		dir:     dir,
		watch:   watch,
		changes: make(chan string, 256),
		done:    make(chan bool),
		logger:  logger,
	}
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watch.Events:
			if !ok {
				return
			}
			switch {
			case event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Rename == fsnotify.Rename:
				rel, err := filepath.Rel(w.dir, event.Name)
				if err != nil {
					continue
				}
				select {
				case w.changes <- filepath.ToSlash(rel):
				default:
					w.logger.Warn("shader watcher queue full, dropping change", "path", rel)
				}
			}
		case err, ok := <-w.watch.Errors:
			if !ok {
				return
			}
			w.logger.Error("shader watcher error", "error", err)
		}
	}
}

func (w *watcher) Changes() []string {
	var out []string
	for {
		select {
		case p := <-w.changes:
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		default:
			slices.Sort(out)
			return out
		}
	}
}

func (w *watcher) Close() error {
	close(w.done)
	return w.watch.Close()
}
