package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/dockmetrics/internal/index"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
)

// EntryLister enumerates registered entries.
type EntryLister interface {
	ListEntryIDs(ctx context.Context) ([]string, error)
}

// PartnerWarmer fills the partner cache from Redis on startup
type PartnerWarmer struct {
	store  EntryLister
	index  *index.PartnerIndex
	logger logger.Logger
}

func NewPartnerWarmer(store EntryLister, idx *index.PartnerIndex, log logger.Logger) *PartnerWarmer {
	return &PartnerWarmer{
		store:  store,
		index:  idx,
		logger: log,
	}
}

// Warm loads the partner sets of every entry into the cache
func (pw *PartnerWarmer) Warm(ctx context.Context) error {
	pw.logger.Info("warming partner cache from redis")

	ids, err := pw.store.ListEntryIDs(ctx)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		pw.logger.Info("no entries found in redis")
		return nil
	}

	n, err := pw.index.Warm(ctx, ids)
	if err != nil {
		return err
	}

	pw.logger.Info("partner cache warmed",
		logger.Int("count", n))

	return nil
}
