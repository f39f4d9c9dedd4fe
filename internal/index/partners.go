// Package index caches the execution and validation partner sets of entries.
//
// Partner sets change only when metrics are submitted, so they are served
// from an expiring LRU in front of Redis and invalidated on submission.
// Invalidation is process-local: another instance serving the same Redis
// keeps its copy until the TTL expires.
package index

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSize = 4096
	DefaultTTL  = 10 * time.Minute
)

// PartnerLoader reads partner sets from the backing store.
type PartnerLoader interface {
	ExecutionPartners(ctx context.Context, entryID string) (domain.PartnerSet, error)
	ValidationPartners(ctx context.Context, entryID string) (domain.PartnerSet, error)
}

// PartnerSets is the cached value for one entry.
type PartnerSets struct {
	Execution  domain.PartnerSet
	Validation domain.PartnerSet
	LoadedAt   time.Time
}

// Stats reports cache effectiveness for /infra.
type Stats struct {
	Entries  int       `json:"entries"`
	Hits     int64     `json:"hits"`
	Misses   int64     `json:"misses"`
	LastWarm time.Time `json:"lastWarm,omitzero"`
}

// PartnerIndex is safe for concurrent use.
type PartnerIndex struct {
	cache  *expirable.LRU[string, PartnerSets]
	loader PartnerLoader

	// mu orders cache fills against invalidations. A load that started
	// before an invalidation of its entry must not fill the cache.
	mu    sync.Mutex
	gens  map[string]uint64
	epoch uint64

	hits     atomic.Int64
	misses   atomic.Int64
	lastWarm atomic.Int64
}

// NewPartnerIndex builds the cache. Non-positive size or ttl fall back to defaults.
func NewPartnerIndex(loader PartnerLoader, size int, ttl time.Duration) *PartnerIndex {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PartnerIndex{
		cache:  expirable.NewLRU[string, PartnerSets](size, nil, ttl),
		loader: loader,
		gens:   make(map[string]uint64),
	}
}

// Get returns the partner sets of an entry, loading them on a miss.
func (idx *PartnerIndex) Get(ctx context.Context, entryID string) (PartnerSets, error) {
	if sets, ok := idx.cache.Get(entryID); ok {
		idx.hits.Add(1)
		return sets, nil
	}
	idx.misses.Add(1)
	return idx.load(ctx, entryID)
}

type generation struct{ epoch, gen uint64 }

func (idx *PartnerIndex) generationLocked(entryID string) generation {
	return generation{epoch: idx.epoch, gen: idx.gens[entryID]}
}

func (idx *PartnerIndex) load(ctx context.Context, entryID string) (PartnerSets, error) {
	idx.mu.Lock()
	started := idx.generationLocked(entryID)
	idx.mu.Unlock()

	exec, err := idx.loader.ExecutionPartners(ctx, entryID)
	if err != nil {
		return PartnerSets{}, fmt.Errorf("failed to load execution partners: %w", err)
	}
	val, err := idx.loader.ValidationPartners(ctx, entryID)
	if err != nil {
		return PartnerSets{}, fmt.Errorf("failed to load validation partners: %w", err)
	}
	sets := PartnerSets{Execution: exec, Validation: val, LoadedAt: time.Now()}

	idx.mu.Lock()
	if idx.generationLocked(entryID) == started {
		idx.cache.Add(entryID, sets)
	}
	idx.mu.Unlock()
	return sets, nil
}

// Invalidate drops an entry so the next Get reloads it. Loads already in
// flight for the entry return their result without caching it.
func (idx *PartnerIndex) Invalidate(entryID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.gens[entryID]++
	idx.cache.Remove(entryID)
}

// Warm loads the given entries, replacing anything cached for them.
// It stops at the first error and reports how many entries were loaded.
func (idx *PartnerIndex) Warm(ctx context.Context, entryIDs []string) (int, error) {
	n := 0
	for _, id := range entryIDs {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := idx.load(ctx, id); err != nil {
			return n, fmt.Errorf("warm %s: %w", id, err)
		}
		n++
	}
	idx.lastWarm.Store(time.Now().UnixNano())
	return n, nil
}

// Purge empties the cache and discards loads in flight.
func (idx *PartnerIndex) Purge() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.epoch++
	clear(idx.gens)
	idx.cache.Purge()
}

func (idx *PartnerIndex) Len() int {
	return idx.cache.Len()
}

func (idx *PartnerIndex) Stats() Stats {
	s := Stats{
		Entries: idx.cache.Len(),
		Hits:    idx.hits.Load(),
		Misses:  idx.misses.Load(),
	}
	if ns := idx.lastWarm.Load(); ns != 0 {
		s.LastWarm = time.Unix(0, ns)
	}
	return s
}
