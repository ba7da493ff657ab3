package records

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultQuiet = 250 * time.Millisecond

// Watch calls onChange after the file at path is written, created or renamed into place,
// once no further events arrived for quiet. It blocks until ctx is done. The parent
// directory is watched so editors that replace the file atomically are handled.
func Watch(ctx context.Context, path string, quiet time.Duration, logger *slog.Logger, onChange func(ctx context.Context)) error {
	dw, err := newDatasetWatcher(path, logger)
	if err != nil {
		return err
	}
	return dw.run(ctx, quiet, onChange)
}

type datasetWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// newDatasetWatcher registers the watch on the parent directory; events after it returns
// are observed by run.
func newDatasetWatcher(path string, logger *slog.Logger) (*datasetWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Info("watching dataset", "path", abs)
	return &datasetWatcher{path: abs, watcher: watcher, logger: logger}, nil
}

// relevant reports whether event may have changed the dataset's contents.
func (d *datasetWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != d.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// run debounces events and closes the watcher when it returns.
func (d *datasetWatcher) run(ctx context.Context, quiet time.Duration, onChange func(ctx context.Context)) error {
	defer d.watcher.Close()
	if quiet <= 0 {
		quiet = defaultQuiet
	}

	timer := time.NewTimer(quiet)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-d.watcher.Events:
			if !ok {
				return nil
			}
			if !d.relevant(event) {
				continue
			}
			d.logger.Debug("dataset event", "op", event.Op.String())
			pending = true
			timer.Reset(quiet)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.Warn("dataset watcher error", "error", err)

		case <-timer.C:
			if pending {
				pending = false
				onChange(ctx)
			}
		}
	}
}
