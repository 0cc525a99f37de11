package location

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ErrNoRoot is returned when watching a service without a root.
var ErrNoRoot = errors.New("location service has no root")

// Watcher invalidates every location when the storage root is removed or
// renamed underneath the process.
//
// The root's parent directory is watched, so the root itself does not need to
// exist yet.
type Watcher struct {
	service *RootService
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewWatcher creates a watcher for the service's root.
func NewWatcher(service *RootService, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		service: service,
		watcher: watcher,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. The watch is registered before Start returns;
// events are processed in a background goroutine until ctx is cancelled or
// Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	root := w.service.Root()
	if root == "" {
		return ErrNoRoot
	}
	parent := filepath.Dir(root)
	if err := w.watcher.Add(parent); err != nil {
		return err
	}
	w.logger.Debug("watching storage root", "root", root, "parent", parent)

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("storage root watcher error", "err", err)

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if filepath.Clean(event.Name) != w.service.Root() {
		return
	}
	w.logger.Warn("storage root removed, invalidating all stores", "root", event.Name, "op", event.Op.String())
	w.service.InvalidateAll(true)
}

// Close stops the watcher and waits for the event loop to exit. Safe to call
// more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		err = w.watcher.Close()
		if w.cancel != nil {
			<-w.done
		}
	})
	return err
}
