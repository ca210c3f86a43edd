package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Store when its file changes on disk.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewWatcher creates a watcher for the store's file. Events are coalesced
// over the debounce window so editors that write in several steps trigger
// one reload.
func NewWatcher(store *Store, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		store:    store,
		watcher:  fw,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Watch starts watching. The parent directory is watched rather than the
// file itself so replace-by-rename (as done by configmap mounts) is seen.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.store.Path())); err != nil {
		return err
	}
	w.started = true
	go w.processEvents()
	return nil
}

func (w *Watcher) processEvents() {
	defer close(w.done)

	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ERROR: config watcher: %v", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		_ = w.store.Reload()
	})
}

// Close stops watching and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	if w.started {
		<-w.done
	}

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}
