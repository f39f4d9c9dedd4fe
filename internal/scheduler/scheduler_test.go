package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/dockmetrics/internal/domain"
	"github.com/MrSnakeDoc/dockmetrics/internal/index"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
	"github.com/MrSnakeDoc/dockmetrics/internal/policy"
	"github.com/MrSnakeDoc/dockmetrics/internal/service"
	redisstore "github.com/MrSnakeDoc/dockmetrics/internal/store/redis"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*redisstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.NewStore(client), mr
}

func saveEntry(t *testing.T, s *redisstore.Store, repo string, versions ...string) domain.Entry {
	t.Helper()
	e, err := domain.NewEntry(domain.KindWorkflow, nil, &domain.WorkflowDetails{
		SourceControl: "github.com", Organization: "dockstore", Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewEntry() error = %v", err)
	}
	for _, name := range versions {
		if e, err = e.AddVersion(domain.Version{Name: name}); err != nil {
			t.Fatalf("AddVersion() error = %v", err)
		}
	}
	if err := s.SaveEntry(context.Background(), e); err != nil {
		t.Fatalf("SaveEntry() error = %v", err)
	}
	return e
}

func successes(n int) domain.Batch {
	return domain.Batch{StatusCounts: map[domain.ExecutionStatus]int{domain.StatusSuccessful: n}}
}

func TestAggregationSweeper_Sweep(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	e := saveEntry(t, s, "hello", "1.0", "2.0")

	for _, p := range []domain.Partner{domain.PartnerTerra, domain.PartnerAGC} {
		if err := s.SubmitMetrics(ctx, e.ID, "1.0", p, successes(2), t0); err != nil {
			t.Fatalf("SubmitMetrics(%s) error = %v", p, err)
		}
	}

	sweeper := NewAggregationSweeper(s, logger.NewNop(), time.Hour, nil)
	sweeper.now = func() time.Time { return t0.Add(time.Second) }

	res, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if res.Pending != 1 || res.Aggregated != 1 || res.Failed != 0 {
		t.Errorf("Sweep() = %+v", res)
	}

	pending, _ := s.PendingAggregation(ctx)
	if len(pending) != 0 {
		t.Errorf("pending after sweep = %v", pending)
	}
	stored, _ := s.GetEntry(ctx, e.ID)
	v, _ := stored.Version("1.0")
	if v.LatestMetricsAggregationDate == nil || !v.LatestMetricsAggregationDate.Equal(t0.Add(time.Second)) {
		t.Errorf("aggregation date = %v", v.LatestMetricsAggregationDate)
	}

	all, err := s.GetPartnerMetrics(ctx, e.ID, "1.0", domain.PartnerAll)
	if err != nil {
		t.Fatalf("GetPartnerMetrics(ALL) error = %v", err)
	}
	if got := all.ExecutionStatusCount.NumberOfExecutions(); got != 4 {
		t.Errorf("ALL executions = %d, want 4", got)
	}
}

// A submission newer than the sweep start keeps the version pending.
func TestAggregationSweeper_LateSubmissionStaysPending(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	e := saveEntry(t, s, "hello", "1.0")

	if err := s.SubmitMetrics(ctx, e.ID, "1.0", domain.PartnerTerra, successes(1), t0.Add(time.Minute)); err != nil {
		t.Fatalf("SubmitMetrics() error = %v", err)
	}

	sweeper := NewAggregationSweeper(s, logger.NewNop(), time.Hour, nil)
	sweeper.now = func() time.Time { return t0 }

	if _, err := sweeper.Sweep(ctx); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	pending, _ := s.PendingAggregation(ctx)
	if len(pending) != 1 {
		t.Errorf("pending = %v, want the version to stay pending", pending)
	}
}

func TestAggregationSweeper_DropsDeletedEntries(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	e := saveEntry(t, s, "gone", "1.0")

	if err := s.SubmitMetrics(ctx, e.ID, "1.0", domain.PartnerTerra, successes(1), t0); err != nil {
		t.Fatalf("SubmitMetrics() error = %v", err)
	}
	mr.Del(redisstore.EntryKey(e.ID))

	sweeper := NewAggregationSweeper(s, logger.NewNop(), time.Hour, nil)
	res, err := sweeper.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if res.Dropped != 1 {
		t.Errorf("Sweep() = %+v, want one dropped", res)
	}
	if pending, _ := s.PendingAggregation(ctx); len(pending) != 0 {
		t.Errorf("pending = %v", pending)
	}
}

func TestAggregationSweeper_ManualTrigger(t *testing.T) {
	s, _ := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := saveEntry(t, s, "hello", "1.0")

	trigger := make(chan struct{})
	sweeper := NewAggregationSweeper(s, logger.NewNop(), time.Hour, trigger)
	if err := sweeper.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer sweeper.Stop()

	if err := s.SubmitMetrics(ctx, e.ID, "1.0", domain.PartnerTerra, successes(1), time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("SubmitMetrics() error = %v", err)
	}
	trigger <- struct{}{}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pending, _ := s.PendingAggregation(ctx); len(pending) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("manual trigger did not sweep the pending version")
}

func TestPartnerWarmer_Warm(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	a := saveEntry(t, s, "a", "1.0")
	saveEntry(t, s, "b", "1.0")

	if err := s.SubmitMetrics(ctx, a.ID, "1.0", domain.PartnerGalaxy, successes(1), t0); err != nil {
		t.Fatalf("SubmitMetrics() error = %v", err)
	}

	idx := index.NewPartnerIndex(s, 16, time.Minute)
	if err := NewPartnerWarmer(s, idx, logger.NewNop()).Warm(ctx); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if idx.Len() != 2 {
		t.Errorf("cached entries = %d, want 2", idx.Len())
	}

	sets, _ := idx.Get(ctx, a.ID)
	if !sets.Execution.Contains(domain.PartnerGalaxy) {
		t.Errorf("execution partners = %v", sets.Execution)
	}
	if st := idx.Stats(); st.Hits != 1 || st.Misses != 0 {
		t.Errorf("Stats() = %+v, want the warmed entry served from cache", st)
	}
}

const seedCatalog = `entries:
  - kind: workflow
    source_control: github.com
    organization: dockstore
    repository: hello
    default_version: "1.0"
    versions:
      - name: "1.0"
        description: first
  - kind: tool
    registry: quay.io
    namespace: dockstore
    name: bwa
`

func TestCatalogSeeder_Seed(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	svc := service.New(s, nil, nil, nil, logger.NewNop())

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(seedCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	seeder := NewCatalogSeeder(path, svc, logger.NewNop())

	res, err := seeder.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if res.Created != 2 || res.Existing != 0 {
		t.Errorf("first Seed() = %+v", res)
	}

	// user changes survive a second seed
	if _, err := svc.SetPublished(ctx, domain.NewActor("bob"), "#workflow/github.com/dockstore/hello", true); err != nil {
		t.Fatalf("SetPublished() error = %v", err)
	}
	res, err = seeder.Seed(ctx)
	if err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if res.Created != 0 || res.Existing != 2 {
		t.Errorf("second Seed() = %+v", res)
	}
	e, _ := s.GetEntry(ctx, "#workflow/github.com/dockstore/hello")
	if !e.IsPublished || e.DefaultVersion != "1.0" {
		t.Errorf("entry after reseed = published %v default %q", e.IsPublished, e.DefaultVersion)
	}
}

func TestCatalogSeeder_MissingFile(t *testing.T) {
	s, _ := newStore(t)
	svc := service.New(s, nil, nil, nil, logger.NewNop())
	seeder := NewCatalogSeeder(filepath.Join(t.TempDir(), "none.yaml"), svc, logger.NewNop())
	if _, err := seeder.Seed(context.Background()); err == nil {
		t.Error("Seed() with a missing file should fail")
	}
}

func TestPolicyReloader_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("doi_precedence: [GITHUB, USER, DOCKSTORE]\n"), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	holder, err := policy.NewHolder(path)
	if err != nil {
		t.Fatalf("NewHolder() error = %v", err)
	}
	reloader := NewPolicyReloader(holder, nil, logger.NewNop(), 0, nil)

	if err := os.WriteFile(path, []byte("doi_precedence: [USER]\n"), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if err := reloader.Reload(context.Background()); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("Reload(invalid) error = %v", err)
	}
	if got := holder.Current().DoiPrecedence[0]; got != domain.DoiInitiatorGitHub {
		t.Errorf("policy after invalid reload starts with %s", got)
	}

	if err := os.WriteFile(path, []byte("doi_precedence: [DOCKSTORE, USER, GITHUB]\n"), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if err := reloader.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := holder.Current().DoiPrecedence[0]; got != domain.DoiInitiatorDockstore {
		t.Errorf("policy after reload starts with %s", got)
	}

	static := NewPolicyReloader(policy.NewStaticHolder(policy.Default()), nil, logger.NewNop(), 0, nil)
	if err := static.Reload(context.Background()); err != nil {
		t.Errorf("Reload() without a file error = %v", err)
	}
}
