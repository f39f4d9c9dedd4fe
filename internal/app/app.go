package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/dockmetrics/internal/blob"
	"github.com/MrSnakeDoc/dockmetrics/internal/config"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver"
	"github.com/MrSnakeDoc/dockmetrics/internal/httpserver/deps"
	"github.com/MrSnakeDoc/dockmetrics/internal/index"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
	"github.com/MrSnakeDoc/dockmetrics/internal/policy"
	"github.com/MrSnakeDoc/dockmetrics/internal/redis"
	"github.com/MrSnakeDoc/dockmetrics/internal/scheduler"
	"github.com/MrSnakeDoc/dockmetrics/internal/service"
	redisstore "github.com/MrSnakeDoc/dockmetrics/internal/store/redis"
	"github.com/MrSnakeDoc/dockmetrics/internal/utils"
	"github.com/MrSnakeDoc/dockmetrics/internal/version"
)

type App struct {
	cfg            *config.Config
	logger         logger.Logger
	server         *httpserver.Server
	redisClient    *goredis.Client
	store          *redisstore.Store
	partners       *index.PartnerIndex
	service        *service.Service
	sweeper        *scheduler.AggregationSweeper
	policyReloader *scheduler.PolicyReloader // nil without a policy file
}

// Connect opens Redis and builds the store with the configured retry budget.
func Connect(ctx context.Context, cfg *config.Config, log logger.Logger) (*goredis.Client, *redisstore.Store, error) {
	client, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return client, redisstore.NewStore(client, redisstore.WithMaxRetries(cfg.SubmitRetries)), nil
}

// NewBlobStore selects the raw submission backend.
func NewBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		client, err := blob.NewS3Client(ctx, blob.S3Options{
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			UsePathStyle: cfg.S3PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return blob.NewS3Store(client, cfg.BlobBucket)
	case config.BlobBackendMinio:
		return blob.NewMinioStore(blob.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Region:    cfg.S3Region,
			Bucket:    cfg.BlobBucket,
		})
	default:
		return blob.Nop{}, nil
	}
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Fail fast if Redis is unavailable
	redisClient, store, err := Connect(ctx, cfg, loggerClient.Named("redis"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	blobs, err := NewBlobStore(ctx, cfg)
	if err != nil {
		utils.CloseLogged(redisClient, loggerClient, "redis")
		return nil, fmt.Errorf("failed to initialize %s blob store: %w", cfg.BlobBackend, err)
	}
	loggerClient.Info("blob store initialized", logger.String("backend", blobs.Backend()))
	if blobs.Backend() == config.BlobBackendNone {
		loggerClient.Warn("raw submissions are not kept, only aggregates")
	}

	holder, err := policy.NewHolder(cfg.PolicyFile)
	if err != nil {
		utils.CloseLogged(redisClient, loggerClient, "redis")
		return nil, err
	}

	partners := index.NewPartnerIndex(store, cfg.PartnerCacheSize, cfg.PartnerCacheTTL)
	svc := service.New(store, blobs, partners, holder, loggerClient.Named("service"))

	if cfg.CatalogFile != "" {
		res, err := scheduler.NewCatalogSeeder(cfg.CatalogFile, svc, loggerClient.Named("seeder")).Seed(ctx)
		if err != nil {
			utils.CloseLogged(redisClient, loggerClient, "redis")
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		loggerClient.Info("catalog seeded",
			logger.Int("created", res.Created),
			logger.Int("existing", res.Existing))
	}

	if err := scheduler.NewPartnerWarmer(store, partners, loggerClient.Named("warmer")).Warm(ctx); err != nil {
		loggerClient.Warn("failed to warm partner cache, entries will load on demand",
			logger.Error(err))
	}

	aggregateTrigger := make(chan struct{}, 1)
	sweeper := scheduler.NewAggregationSweeper(store, loggerClient.Named("sweeper"), cfg.AggregateInterval, aggregateTrigger)

	var (
		policyReloader      *scheduler.PolicyReloader
		policyReloadTrigger chan struct{}
	)
	if cfg.PolicyFile != "" {
		watcher, err := policy.NewWatcher(holder, loggerClient.Named("policy"), policy.DefaultDebounce)
		if err != nil {
			loggerClient.Warn("policy file watching disabled, falling back to periodic reload",
				logger.String("file", cfg.PolicyFile),
				logger.Error(err))
			watcher = nil
		}
		policyReloadTrigger = make(chan struct{}, 1)
		policyReloader = scheduler.NewPolicyReloader(holder, watcher, loggerClient.Named("policy"), cfg.PolicyReloadInterval, policyReloadTrigger)
	}

	d := deps.Deps{
		Logger:              loggerClient,
		StartTime:           time.Now(),
		Build:               version.Get(),
		TimeNow:             time.Now,
		AllowedHosts:        cfg.AllowedHosts,
		AllowedCIDRS:        cfg.AllowedCIDRS,
		TrustProxy:          cfg.TrustProxy,
		SubmitBurst:         cfg.SubmitBurst,
		SubmitRefillPerMin:  cfg.SubmitRefillPerMin,
		Service:             svc,
		Store:               store,
		Partners:            partners,
		Policy:              holder,
		PolicyReloadTrigger: policyReloadTrigger,
		AggregateTrigger:    aggregateTrigger,
	}

	return &App{
		cfg:            cfg,
		logger:         loggerClient,
		server:         httpserver.New(cfg, loggerClient, d),
		redisClient:    redisClient,
		store:          store,
		partners:       partners,
		service:        svc,
		sweeper:        sweeper,
		policyReloader: policyReloader,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting dockmetrics",
		logger.String("listen", a.cfg.ListenPort),
		logger.String("build", version.Get().String()))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start aggregation sweeper: %w", err)
	}
	a.logger.Info("aggregation sweeper started",
		logger.Duration("interval", a.cfg.AggregateInterval))

	if a.policyReloader != nil {
		if err := a.policyReloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start policy reloader: %w", err)
		}
		a.logger.Info("policy reloader started",
			logger.String("file", a.cfg.PolicyFile),
			logger.Duration("interval", a.cfg.PolicyReloadInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
	case runErr = <-errCh:
	}

	a.sweeper.Stop()
	if a.policyReloader != nil {
		a.policyReloader.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	utils.CloseLogged(a.redisClient, a.logger, "redis")
	_ = a.logger.Sync()

	if runErr == nil {
		a.logger.Info("dockmetrics stopped cleanly")
	}
	return runErr
}

// Aggregate runs a single aggregation sweep and exits.
func Aggregate(ctx context.Context, cfg *config.Config) (scheduler.SweepResult, error) {
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	client, store, err := Connect(ctx, cfg, log)
	if err != nil {
		return scheduler.SweepResult{}, err
	}
	defer utils.CloseLogged(client, log, "redis")

	return scheduler.NewAggregationSweeper(store, log, cfg.AggregateInterval, nil).Sweep(ctx)
}
