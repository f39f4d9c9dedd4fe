package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
	"github.com/MrSnakeDoc/dockmetrics/internal/policy"
)

// DefaultPolicyReloadInterval backs up the file watcher on filesystems
// that do not deliver change events.
const DefaultPolicyReloadInterval = time.Hour

// PolicyReloader re-reads the precedence policy periodically, on manual
// trigger and, when a watcher is attached, whenever the file changes.
type PolicyReloader struct {
	holder        *policy.Holder
	watcher       *policy.Watcher
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

func NewPolicyReloader(
	holder *policy.Holder,
	watcher *policy.Watcher,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *PolicyReloader {
	if interval <= 0 {
		interval = DefaultPolicyReloadInterval
	}
	return &PolicyReloader{
		holder:        holder,
		watcher:       watcher,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic reload process. The holder was already loaded
// at startup, so there is no initial reload.
func (pr *PolicyReloader) Start(ctx context.Context) error {
	if pr.watcher != nil {
		go pr.watcher.Run(ctx)
	}

	ticker := time.NewTicker(pr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = pr.Reload(ctx)
			case <-pr.manualTrigger:
				pr.logger.Info("manual policy reload triggered")
				_ = pr.Reload(ctx)
			case <-pr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader and closes the watcher.
func (pr *PolicyReloader) Stop() {
	close(pr.stopCh)
	if pr.watcher != nil {
		if err := pr.watcher.Close(); err != nil {
			pr.logger.Warn("failed to close policy watcher", logger.Error(err))
		}
	}
}

// Reload re-reads the policy file. An invalid file keeps the last good
// policy in place; the error is logged and returned.
func (pr *PolicyReloader) Reload(_ context.Context) error {
	if pr.holder.Path() == "" {
		pr.logger.Debug("no policy file configured, keeping built-in policy")
		return nil
	}

	pr.logger.Info("reloading precedence policy",
		logger.String("file", pr.holder.Path()))

	p, err := pr.holder.Reload()
	if err != nil {
		pr.logger.Error("policy file rejected, keeping last good policy",
			logger.Error(err))
		return err
	}

	pr.logger.Info("precedence policy loaded",
		logger.Int("doi_initiators", len(p.DoiPrecedence)),
		logger.Int("topic_selections", len(p.TopicOrder)))
	return nil
}
