// Package watch turns filesystem events in the vault into pipeline work:
// source edits become build tasks, review edits become review sync, and
// edits to generated files become in-place summary refinements.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/queue"
)

// Config names the two watched trees and their debounce windows. Review and
// shadow files share the shorter window.
type Config struct {
	SourcesRoot string
	ShadowRoot  string
	SourceDelay time.Duration
	ShadowDelay time.Duration
}

// Watcher owns the fsnotify instance, the per-path debouncers, and the
// dispatch into the task queue. It never executes handlers inline; every
// fired debounce enqueues a task for the worker pool.
type Watcher struct {
	fs     *fsnotify.Watcher
	cfg    Config
	proc   *Processor
	queue  *queue.Queue
	log    logging.Logger
	source *Debouncer
	shadow *Debouncer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(cfg Config, proc *Processor, q *queue.Queue, log logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.SourceDelay <= 0 {
		cfg.SourceDelay = 2 * time.Second
	}
	if cfg.ShadowDelay <= 0 {
		cfg.ShadowDelay = time.Second
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:     fsw,
		cfg:    cfg,
		proc:   proc,
		queue:  q,
		log:    log,
		source: NewDebouncer(cfg.SourceDelay),
		shadow: NewDebouncer(cfg.ShadowDelay),
	}
	for _, root := range []string{cfg.SourcesRoot, cfg.ShadowRoot} {
		if err := os.MkdirAll(root, 0o755); err != nil {
			_ = fsw.Close()
			return nil, err
		}
		if err := w.addTree(root, false); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Start launches the event loop and performs an initial scan of the sources
// tree. The scan goes through the same debounced path as live events; hash
// idempotence makes it a no-op for documents that are already built.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case event, ok := <-w.fs.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				w.log.Logf("watcher error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	w.scanSources()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.source.Cancel(event.Name)
		w.shadow.Cancel(event.Name)
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// New directory: watch it and pick up files that arrived with it
			// (moves produce no per-file events).
			if err := w.addTree(event.Name, true); err != nil {
				w.log.Logf("watch new dir %s: %v", event.Name, err)
			}
			return
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	w.dispatch(event.Name)
}

func (w *Watcher) dispatch(path string) {
	switch Classify(path, w.cfg.SourcesRoot, w.cfg.ShadowRoot) {
	case EventSource:
		w.source.Schedule(path, func() {
			w.enqueue("source "+filepath.Base(path), path, w.proc.HandleSource)
		})
	case EventReview:
		w.shadow.Schedule(path, func() {
			w.enqueue("review "+filepath.Base(path), path, w.proc.HandleReview)
		})
	case EventShadow:
		w.shadow.Schedule(path, func() {
			w.enqueue("shadow "+filepath.Base(path), path, w.proc.HandleShadow)
		})
	}
}

func (w *Watcher) enqueue(name, path string, handler func(context.Context, string) error) {
	ok := w.queue.Enqueue(queue.Task{
		Name: name,
		Run: func(ctx context.Context) error {
			return handler(ctx, path)
		},
	})
	if !ok {
		w.log.Logf("dropped %s", name)
	}
}

// addTree watches root and every non-hidden directory below it. With
// dispatchFiles set, files already present are dispatched too; that is only
// wanted for directories that appeared after startup, since existing shadow
// files must not look like fresh human edits.
func (w *Watcher) addTree(root string, dispatchFiles bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Logf("walk %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if err := w.fs.Add(path); err != nil {
				w.log.Logf("watch %s: %v", path, err)
			}
			return nil
		}
		if dispatchFiles {
			w.dispatch(path)
		}
		return nil
	})
}

// scanSources re-dispatches every file in the sources tree. Used at startup
// to catch edits made while the daemon was down.
func (w *Watcher) scanSources() {
	_ = filepath.WalkDir(w.cfg.SourcesRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			if d != nil && d.IsDir() && path != w.cfg.SourcesRoot && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		w.dispatch(path)
		return nil
	})
}

// Close stops the event loop and the pending debounce timers.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.source.Stop()
	w.shadow.Stop()
	err := w.fs.Close()
	w.wg.Wait()
	return err
}
