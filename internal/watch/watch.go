// Package watch wakes the run loop early when watched files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/asheshgoplani/ogle/internal/logging"
)

var watchLog = logging.ForComponent(logging.CompWatch)

// DefaultDebounce is how long a burst of file events is collected before a
// single change is reported.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes under a set of paths. Directories are watched
// non-recursively.
type Watcher struct {
	paths    []string
	debounce time.Duration
	limiter  *rate.Limiter
	watcher  *fsnotify.Watcher
	changes  chan string
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a watcher for paths. Reported changes are spaced at least
// minInterval apart; a change arriving sooner is dropped.
func New(paths []string, debounce, minInterval time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	for _, p := range paths {
		if err := fw.Add(p); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
	}

	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		paths:    paths,
		debounce: debounce,
		limiter:  rate.NewLimiter(limit, 1),
		watcher:  fw,
		changes:  make(chan string, 1),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start processes file events until Stop is called. Must be called in a
// goroutine.
func (w *Watcher) Start() {
	var (
		mu      sync.Mutex
		timer   *time.Timer
		pending string
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			mu.Lock()
			pending = event.Name
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				mu.Lock()
				name := pending
				mu.Unlock()
				w.report(name)
			})
			mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			watchLog.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) report(name string) {
	if w.ctx.Err() != nil {
		return
	}
	if !w.limiter.Allow() {
		watchLog.Debug("watch_change_throttled", slog.String("path", name))
		return
	}
	watchLog.Debug("watch_change", slog.String("path", name))
	select {
	case w.changes <- name:
	default:
	}
}

// Changes delivers the path of the last changed file of each burst. At most
// one change is buffered.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Limit returns the rate at which changes may be reported.
func (w *Watcher) Limit() rate.Limit {
	return w.limiter.Limit()
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	w.cancel()
	_ = w.watcher.Close()
}
