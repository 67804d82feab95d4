package family

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Directory whenever its YAML file changes on disk.
type Watcher struct {
	dir     *Directory
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts reloading d from path until ctx is done or Close is called.
// The parent directory is watched so editors that replace the file by
// renaming are picked up too.
func Watch(ctx context.Context, d *Directory, path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		dir:     d,
		path:    abs,
		watcher: fw,
		done:    make(chan struct{}),
	}
	go w.run(ctx)

	slog.Info("Watching family file", "path", abs)
	return w, nil
}

// Close stops the watcher and waits for its loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Family file watcher error", "err", err)
		}
	}
}

func (w *Watcher) reload() {
	members, err := ReadFile(w.path)
	if err != nil {
		// half-written files are retried on the next event
		slog.Warn("Family file reload failed, keeping current members", "path", w.path, "err", err)
		return
	}
	w.dir.Replace(members)
	slog.Info("Family file reloaded", "path", w.path, "members", len(members))
}
