package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the project config file whenever it changes on disk.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	path      string
	updates   chan *Config
	errors    chan error
}

// WatchProjectConfig starts watching dir's project config file (if any) for
// changes, pushing a freshly-reloaded Config to Updates() on every write.
// The watch is on the file's directory rather than the file itself, so
// editors that replace the file (write-then-rename) still produce a Create
// event for the config path.
func WatchProjectConfig(ctx context.Context, dir string) (*Watcher, error) {
	path, _ := ProjectConfigPath(dir)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		dir:       dir,
		path:      path,
		updates:   make(chan *Config, 1),
		errors:    make(chan error, 1),
	}
	go w.run(ctx)
	return w, nil
}

// Updates delivers a reloaded Config after each observed change to the
// project config file.
func (w *Watcher) Updates() <-chan *Config { return w.updates }

// Errors delivers reload failures (e.g. the file became invalid YAML).
func (w *Watcher) Errors() <-chan error { return w.errors }

// Close stops the watcher.
func (w *Watcher) Close() error { return w.fsWatcher.Close() }

func (w *Watcher) run(ctx context.Context) {
	defer close(w.updates)
	defer close(w.errors)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			cfg, err := Load(w.dir)
			if err != nil {
				select {
				case w.errors <- err:
				default:
				}
				continue
			}
			select {
			case w.updates <- cfg:
			default:
				// an unread update is already buffered; this one is dropped
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}
