package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/dockmetrics/internal/index"
	"github.com/MrSnakeDoc/dockmetrics/internal/logger"
	"github.com/MrSnakeDoc/dockmetrics/internal/policy"
	"github.com/MrSnakeDoc/dockmetrics/internal/service"
	"github.com/MrSnakeDoc/dockmetrics/internal/version"
)

// Store is the slice of the Redis store the health handlers read directly.
type Store interface {
	Ping(ctx context.Context) error
	PendingCount(ctx context.Context) (int64, error)
}

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Build     version.Info
	TimeNow   func() time.Time // for testing, defaults to time.Now

	AllowedHosts []string // Host headers allowed on admin routes
	AllowedCIDRS []string // IPs allowed on admin routes
	TrustProxy   bool     // true if running behind a trusted reverse proxy

	SubmitBurst        int // per-ip submission burst
	SubmitRefillPerMin int // per-ip submission refill rate

	Service  *service.Service    // every external operation
	Store    Store               // readiness and pending aggregation count
	Partners *index.PartnerIndex // partner-set cache, for /infra
	Policy   *policy.Holder      // precedence policy in effect

	PolicyReloadTrigger chan struct{} // manual policy reload (nil when no policy file)
	AggregateTrigger    chan struct{} // manual aggregation sweep
}
