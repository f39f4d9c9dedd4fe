package policy

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor emits on save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a Holder when its file changes on disk.
type Watcher struct {
	holder   *Holder
	logger   logger.Logger
	debounce time.Duration
	fs       *fsnotify.Watcher
	target   string

	onReload func(Policy)
	stopOnce sync.Once
}

// NewWatcher watches the directory containing the policy file so that
// atomic rename-over saves are seen.
func NewWatcher(h *Holder, log logger.Logger, debounce time.Duration) (*Watcher, error) {
	if h.Path() == "" {
		return nil, fmt.Errorf("policy watcher: no policy file configured")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	target, err := filepath.Abs(h.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve policy path: %w", err)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(target)); err != nil {
		_ = fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	return &Watcher{
		holder:   h,
		logger:   log,
		debounce: debounce,
		fs:       fs,
		target:   target,
	}, nil
}

// OnReload registers a callback run after each successful reload.
func (w *Watcher) OnReload(fn func(Policy)) {
	w.onReload = fn
}

// Run blocks until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("policy watcher error", logger.Error(err))

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.target {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	p, err := w.holder.Reload()
	if err != nil {
		w.logger.Error("policy file rejected, keeping last good policy",
			logger.String("path", w.target),
			logger.Error(err),
		)
		return
	}
	w.logger.Info("policy reloaded",
		logger.String("path", w.target),
		logger.Int("doi_initiators", len(p.DoiPrecedence)),
		logger.Int("topic_selections", len(p.TopicOrder)),
	)
	if w.onReload != nil {
		w.onReload(p)
	}
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.fs.Close()
	})
	return err
}
