package index

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
)

type fakeLoader struct {
	mu    sync.Mutex
	exec  map[string]domain.PartnerSet
	val   map[string]domain.PartnerSet
	calls int
	err   error
}

func (f *fakeLoader) ExecutionPartners(_ context.Context, id string) (domain.PartnerSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.exec[id], nil
}

func (f *fakeLoader) ValidationPartners(_ context.Context, id string) (domain.PartnerSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.val[id], nil
}

func newLoader() *fakeLoader {
	return &fakeLoader{
		exec: map[string]domain.PartnerSet{"e1": domain.NewPartnerSet(domain.PartnerTerra)},
		val:  map[string]domain.PartnerSet{"e1": domain.NewPartnerSet(domain.PartnerAGC, domain.PartnerGalaxy)},
	}
}

func TestPartnerIndexCachesUntilInvalidated(t *testing.T) {
	loader := newLoader()
	idx := NewPartnerIndex(loader, 0, 0)
	ctx := context.Background()

	sets, err := idx.Get(ctx, "e1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !sets.Execution.Contains(domain.PartnerTerra) || len(sets.Validation) != 2 {
		t.Errorf("Get() = %+v", sets)
	}

	loader.mu.Lock()
	loader.exec["e1"] = domain.NewPartnerSet(domain.PartnerTerra, domain.PartnerCGC)
	loader.mu.Unlock()

	if sets, _ := idx.Get(ctx, "e1"); len(sets.Execution) != 1 {
		t.Errorf("cached Get() = %v, want the stale set", sets.Execution)
	}
	if loader.calls != 1 {
		t.Errorf("loader calls = %d, want 1", loader.calls)
	}

	idx.Invalidate("e1")
	if sets, _ := idx.Get(ctx, "e1"); len(sets.Execution) != 2 {
		t.Errorf("Get() after Invalidate = %v", sets.Execution)
	}

	st := idx.Stats()
	if st.Hits != 1 || st.Misses != 2 || st.Entries != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestPartnerIndexExpires(t *testing.T) {
	loader := newLoader()
	idx := NewPartnerIndex(loader, 8, 20*time.Millisecond)
	ctx := context.Background()

	if _, err := idx.Get(ctx, "e1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, err := idx.Get(ctx, "e1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if loader.calls != 2 {
		t.Errorf("loader calls = %d, want a reload after expiry", loader.calls)
	}
}

func TestPartnerIndexLoadError(t *testing.T) {
	loader := newLoader()
	loader.err = errors.New("redis down")
	idx := NewPartnerIndex(loader, 8, time.Minute)

	if _, err := idx.Get(context.Background(), "e1"); err == nil {
		t.Fatal("Get() should fail when the loader fails")
	}
	if idx.Len() != 0 {
		t.Errorf("failed load was cached")
	}
}

func TestPartnerIndexWarm(t *testing.T) {
	loader := newLoader()
	idx := NewPartnerIndex(loader, 8, time.Minute)

	n, err := idx.Warm(context.Background(), []string{"e1", "e2"})
	if err != nil || n != 2 {
		t.Fatalf("Warm() = %d, %v", n, err)
	}
	if idx.Len() != 2 || idx.Stats().LastWarm.IsZero() {
		t.Errorf("Stats() after warm = %+v", idx.Stats())
	}

	idx.Purge()
	if idx.Len() != 0 {
		t.Errorf("Len() after Purge = %d", idx.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := idx.Warm(ctx, []string{"e1"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Warm(cancelled) error = %v", err)
	}
}

// gatedLoader snapshots the execution set when called, then blocks until released.
type gatedLoader struct {
	*fakeLoader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedLoader) ExecutionPartners(ctx context.Context, id string) (domain.PartnerSet, error) {
	ps, err := g.fakeLoader.ExecutionPartners(ctx, id)
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return ps, err
}

func TestPartnerIndexLoadRacingInvalidate(t *testing.T) {
	loader := &gatedLoader{
		fakeLoader: &fakeLoader{exec: map[string]domain.PartnerSet{}, val: map[string]domain.PartnerSet{}},
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	idx := NewPartnerIndex(loader, 8, time.Minute)
	ctx := context.Background()

	done := make(chan PartnerSets, 1)
	go func() {
		sets, _ := idx.Get(ctx, "e1")
		done <- sets
	}()

	<-loader.started
	// a submission commits and invalidates while the miss is still loading
	loader.mu.Lock()
	loader.exec["e1"] = domain.NewPartnerSet(domain.PartnerTerra)
	loader.mu.Unlock()
	idx.Invalidate("e1")
	close(loader.release)

	if sets := <-done; len(sets.Execution) != 0 {
		t.Errorf("in-flight Get() = %v, want the set it read", sets.Execution)
	}
	if idx.Len() != 0 {
		t.Errorf("Len() = %d, the load that raced the invalidation was cached", idx.Len())
	}

	sets, err := idx.Get(ctx, "e1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sets.Execution) != 1 || !sets.Execution.Contains(domain.PartnerTerra) {
		t.Errorf("Get() after invalidation = %v, want [TERRA]", sets.Execution)
	}
}
