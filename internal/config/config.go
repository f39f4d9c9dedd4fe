package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Blob backends accepted by DOCKMETRICS_BLOB_BACKEND.
const (
	BlobBackendS3    = "s3"
	BlobBackendMinio = "minio"
	BlobBackendNone  = "none"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout applied by the router

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Raw submission storage
	BlobBackend    string // "s3" | "minio" | "none"
	BlobBucket     string
	S3Region       string
	S3Endpoint     string // optional, ex: http://localhost:4566
	S3PathStyle    bool
	MinioEndpoint  string // host:port
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	PolicyFile           string        // optional precedence policy (empty = built-in defaults)
	CatalogFile          string        // optional seed catalog (empty = no seeding)
	AggregateInterval    time.Duration // interval between aggregation sweeps
	PolicyReloadInterval time.Duration // periodic policy reload on top of file watching
	PartnerCacheSize     int
	PartnerCacheTTL      time.Duration
	SubmitRetries        int // optimistic transaction attempts before a conflict is reported

	AllowedHosts []string // optional, restrict admin routes to specific Host headers
	AllowedCIDRS []string // optional, restrict admin routes to specific IPs (e.g. "1.2.3.4, 10.0.0.0/8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers

	SubmitBurst        int // submissions allowed in a burst per client ip
	SubmitRefillPerMin int // tokens regained per client ip per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("DOCKMETRICS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("DOCKMETRICS_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("DOCKMETRICS_REQUEST_TIMEOUT", 10*time.Second),

		// Logging
		LogLevel:  getenv("DOCKMETRICS_LOG_LEVEL", "info"),
		PrettyLog: mustBool("DOCKMETRICS_PRETTY_LOG", false),

		// Redis settings
		RedisAddr:             requireEnv("DOCKMETRICS_REDIS_ADDR"),
		RedisUser:             getenv("DOCKMETRICS_REDIS_USERNAME", ""),
		RedisPasswordRequired: mustBool("DOCKMETRICS_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("DOCKMETRICS_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("DOCKMETRICS_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Blob storage
		BlobBackend:    strings.ToLower(getenv("DOCKMETRICS_BLOB_BACKEND", BlobBackendNone)),
		BlobBucket:     getenv("DOCKMETRICS_BLOB_BUCKET", ""),
		S3Region:       getenv("DOCKMETRICS_S3_REGION", ""),
		S3Endpoint:     getenv("DOCKMETRICS_S3_ENDPOINT", ""),
		S3PathStyle:    mustBool("DOCKMETRICS_S3_PATH_STYLE", false),
		MinioEndpoint:  getenv("DOCKMETRICS_MINIO_ENDPOINT", ""),
		MinioAccessKey: getenv("DOCKMETRICS_MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("DOCKMETRICS_MINIO_SECRET_KEY", ""),
		MinioUseSSL:    mustBool("DOCKMETRICS_MINIO_USE_SSL", true),

		// Sources and background jobs
		PolicyFile:           getenv("DOCKMETRICS_POLICY_FILE", ""),
		CatalogFile:          getenv("DOCKMETRICS_CATALOG_FILE", ""),
		AggregateInterval:    mustDuration("DOCKMETRICS_AGGREGATE_INTERVAL", 5*time.Minute),
		PolicyReloadInterval: mustDuration("DOCKMETRICS_POLICY_RELOAD_INTERVAL", time.Hour),
		PartnerCacheSize:     getenvInt("DOCKMETRICS_PARTNER_CACHE_SIZE", 4096),
		PartnerCacheTTL:      mustDuration("DOCKMETRICS_PARTNER_CACHE_TTL", 10*time.Minute),
		SubmitRetries:        getenvInt("DOCKMETRICS_SUBMIT_RETRIES", 5),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("DOCKMETRICS_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("DOCKMETRICS_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("DOCKMETRICS_TRUST_PROXY", false),

		SubmitBurst:        getenvInt("DOCKMETRICS_SUBMIT_BURST", 30),
		SubmitRefillPerMin: getenvInt("DOCKMETRICS_SUBMIT_REFILL_PER_MIN", 60),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: DOCKMETRICS_REDIS_PASSWORD is required when DOCKMETRICS_REDIS_PASSWORD_REQUIRED=true")
	}
	if err := cfg.validateBlob(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}
	if cfg.SubmitRetries < 1 {
		panic(fmt.Sprintf("❌ FATAL: DOCKMETRICS_SUBMIT_RETRIES must be >= 1, got %d", cfg.SubmitRetries))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		if cfg.MinioSecretKey != "" {
			cfgCopy.MinioSecretKey = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// validateBlob checks that the selected backend has what it needs to start.
func (c *Config) validateBlob() error {
	switch c.BlobBackend {
	case BlobBackendNone:
		return nil
	case BlobBackendS3:
		if c.BlobBucket == "" {
			return fmt.Errorf("DOCKMETRICS_BLOB_BUCKET is required for the %s backend", c.BlobBackend)
		}
		return nil
	case BlobBackendMinio:
		if c.BlobBucket == "" {
			return fmt.Errorf("DOCKMETRICS_BLOB_BUCKET is required for the %s backend", c.BlobBackend)
		}
		if c.MinioEndpoint == "" {
			return fmt.Errorf("DOCKMETRICS_MINIO_ENDPOINT is required for the %s backend", c.BlobBackend)
		}
		return nil
	default:
		return fmt.Errorf("unknown DOCKMETRICS_BLOB_BACKEND %q (want s3, minio or none)", c.BlobBackend)
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
