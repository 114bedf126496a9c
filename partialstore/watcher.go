package partialstore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Op describes what happened to a partial file.
type Op int

const (
	// OpCreate means a partial file appeared.
	OpCreate Op = iota

	// OpUpdate means a partial file was modified.
	OpUpdate

	// OpRemove means a partial file was deleted or renamed away.
	OpRemove
)

// Event is one change to a partial file in a watched directory.
type Event struct {
	Op   Op
	Path string
}

// Watch emits an Event for every created, modified, or removed partial
// template file in dir. The channel is closed when ctx is cancelled or the
// underlying watcher fails. Reload policy is the caller's; a typical
// response is to LoadDirectory again and swap registries between renders.
func Watch(ctx context.Context, dir string) (<-chan Event, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !partialExtensions[filepath.Ext(ev.Name)] {
					continue
				}
				out, relevant := translate(ev)
				if !relevant {
					continue
				}
				select {
				case ch <- out:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("partial watcher error", slog.Any("error", err))
			}
		}
	}()
	return ch, nil
}

func translate(ev fsnotify.Event) (Event, bool) {
	switch {
	case ev.Has(fsnotify.Create):
		return Event{Op: OpCreate, Path: ev.Name}, true
	case ev.Has(fsnotify.Write):
		return Event{Op: OpUpdate, Path: ev.Name}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return Event{Op: OpRemove, Path: ev.Name}, true
	}
	return Event{}, false
}
