package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
	redisstore "github.com/MrSnakeDoc/dockmetrics/internal/store/redis"
)

// DefaultAggregateInterval is used when no interval is configured.
const DefaultAggregateInterval = 5 * time.Minute

// AggregationStore is the part of the Redis store the sweeper drives.
type AggregationStore interface {
	PendingAggregation(ctx context.Context) ([]redisstore.VersionRef, error)
	RebuildAll(ctx context.Context, entryID, versionName string) (*domain.Metrics, error)
	MarkAggregated(ctx context.Context, ref redisstore.VersionRef, at time.Time) error
}

// SweepResult summarises one pass.
type SweepResult struct {
	Pending    int
	Aggregated int
	Dropped    int
	Failed     int
}

// AggregationSweeper rebuilds the ALL row of every version that received
// metrics since its last aggregation and stamps its aggregation date.
type AggregationSweeper struct {
	store         AggregationStore
	logger        logger.Logger
	interval      time.Duration
	now           func() time.Time
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

func NewAggregationSweeper(
	store AggregationStore,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *AggregationSweeper {
	if interval <= 0 {
		interval = DefaultAggregateInterval
	}
	return &AggregationSweeper{
		store:         store,
		logger:        log,
		interval:      interval,
		now:           time.Now,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start sweeps once, then on every tick or manual trigger.
func (as *AggregationSweeper) Start(ctx context.Context) error {
	if _, err := as.Sweep(ctx); err != nil {
		as.logger.Warn("initial aggregation sweep failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(as.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := as.Sweep(ctx); err != nil {
					as.logger.Error("aggregation sweep failed",
						logger.Error(err))
				}
			case <-as.manualTrigger:
				as.logger.Info("manual aggregation triggered")
				if _, err := as.Sweep(ctx); err != nil {
					as.logger.Error("aggregation sweep failed",
						logger.Error(err))
				}
			case <-as.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (as *AggregationSweeper) Stop() {
	close(as.stopCh)
}

// Sweep processes the pending set once. A version that fails is left
// pending for the next pass; only listing the set is a hard error.
func (as *AggregationSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	refs, err := as.store.PendingAggregation(ctx)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list pending versions: %w", err)
	}
	res := SweepResult{Pending: len(refs)}
	if len(refs) == 0 {
		as.logger.Debug("no versions pending aggregation")
		return res, nil
	}

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		// Submissions committed after this instant keep the version pending.
		started := as.now()

		all, err := as.store.RebuildAll(ctx, ref.EntryID, ref.VersionName)
		if err == nil {
			err = as.store.MarkAggregated(ctx, ref, started)
		}
		switch {
		case errors.Is(err, domain.ErrNotFound):
			as.logger.Warn("dropping pending version that no longer exists",
				logger.String("version", ref.String()))
			res.Dropped++
		case err != nil:
			as.logger.Error("failed to aggregate version",
				logger.String("version", ref.String()),
				logger.String("code", domain.Code(err)),
				logger.Error(err))
			res.Failed++
		default:
			runs := 0
			if all.ExecutionStatusCount != nil {
				runs = all.ExecutionStatusCount.NumberOfExecutions()
			}
			as.logger.Debug("version aggregated",
				logger.String("version", ref.String()),
				logger.Int("executions", runs))
			res.Aggregated++
		}
	}

	as.logger.Info("aggregation sweep completed",
		logger.Int("pending", res.Pending),
		logger.Int("aggregated", res.Aggregated),
		logger.Int("dropped", res.Dropped),
		logger.Int("failed", res.Failed))
	return res, nil
}
