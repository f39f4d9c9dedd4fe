package scheduler

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
	"github.com/MrSnakeDoc/dockmetrics/internal/sources/catalog"
)

// EntryRegistrar creates entries without overwriting existing ones.
type EntryRegistrar interface {
	RegisterEntry(ctx context.Context, actor domain.Actor, e domain.Entry) (domain.Entry, bool, error)
}

// SeedActor is recorded as the user behind catalog registrations.
var SeedActor = domain.NewActor("catalog-seeder")

// CatalogSeeder registers the entries of a seed catalog that do not exist yet
type CatalogSeeder struct {
	loader    *catalog.Loader
	mapper    *catalog.Mapper
	registrar EntryRegistrar
	logger    logger.Logger
}

func NewCatalogSeeder(catalogFile string, registrar EntryRegistrar, log logger.Logger) *CatalogSeeder {
	return &CatalogSeeder{
		loader:    catalog.NewLoader(catalogFile),
		mapper:    catalog.NewMapper(),
		registrar: registrar,
		logger:    log,
	}
}

// SeedResult counts what a seed run did.
type SeedResult struct {
	Created  int
	Existing int
}

// Seed loads the catalog and registers each entry. Entries already present
// are left untouched.
func (cs *CatalogSeeder) Seed(ctx context.Context) (SeedResult, error) {
	cs.logger.Info("seeding entries from catalog",
		logger.String("file", cs.loader.Path()))

	cat, err := cs.loader.Load()
	if err != nil {
		return SeedResult{}, fmt.Errorf("failed to load catalog: %w", err)
	}

	entries, err := cs.mapper.MapEntries(cat)
	if err != nil {
		return SeedResult{}, fmt.Errorf("failed to map catalog: %w", err)
	}

	var res SeedResult
	for _, e := range entries {
		stored, created, err := cs.registrar.RegisterEntry(ctx, SeedActor, e)
		if err != nil {
			return res, fmt.Errorf("failed to register %s: %w", e.TRSID(), err)
		}
		if created {
			res.Created++
			continue
		}
		res.Existing++
		cs.logger.Debug("catalog entry already registered",
			logger.String("entry", stored.ID))
	}

	cs.logger.Info("catalog seeded",
		logger.Int("created", res.Created),
		logger.Int("existing", res.Existing))

	return res, nil
}
