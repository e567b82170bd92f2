package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/property-radar/crawl/internal/errs"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// HTTP/Scraping
	HTTPTimeout    time.Duration
	BrowserTimeout time.Duration
	ProxyTimeout   time.Duration
	UserAgent      string
	Proxy          string

	// Rate limiting and robots
	RateLimitRPS   float64
	RateLimitBurst int
	RateMaxDelay   time.Duration
	RobotsTTL      time.Duration
	IgnoreRobots   bool

	// Caching
	CacheTTL          time.Duration
	CacheMaxSizeBytes int64

	// Walking
	MaxPages       int
	EmptyPageLimit int

	// Scheduling
	BatchSize     int
	BatchCooldown time.Duration
	PausePoll     time.Duration

	// Enrichment
	EnrichWorkers int
	EnrichCap     int
	EnrichTimeout time.Duration

	// Dedup
	DedupThreshold float64

	// Storage
	DataDir         string
	LockWaitTimeout time.Duration
	SkipSummary     bool

	// Anti-bot proxy provider
	ProxyAPIBase string
	ProxyAPIKey  string

	// Per-site declarative config
	SitesFile string
}

// Load builds a Config by combining defaults, a .env file when present,
// environment variables, and CLI flags. The caller passes the root
// *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	// .env is optional; ignore absence
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg := &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		HTTPTimeout:       DefaultHTTPTimeout,
		BrowserTimeout:    DefaultBrowserTimeout,
		ProxyTimeout:      DefaultProxyTimeout,
		UserAgent:         DefaultUserAgent,
		RateLimitRPS:      DefaultRateLimitRPS,
		RateLimitBurst:    DefaultRateLimitBurst,
		RateMaxDelay:      DefaultRateMaxDelay,
		RobotsTTL:         DefaultRobotsTTL,
		CacheTTL:          DefaultCacheTTL,
		CacheMaxSizeBytes: DefaultCacheMaxSizeBytes,
		MaxPages:          DefaultMaxPages,
		EmptyPageLimit:    DefaultEmptyPageLimit,
		BatchCooldown:     DefaultBatchCooldown,
		PausePoll:         DefaultPausePollEvery,
		EnrichWorkers:     DefaultEnrichWorkers,
		EnrichTimeout:     DefaultEnrichTimeout,
		DedupThreshold:    DefaultDedupThreshold,
		DataDir:           DefaultDataDir,
		LockWaitTimeout:   DefaultLockWaitTimeout,
		ProxyAPIBase:      DefaultProxyAPIBase,
		SitesFile:         DefaultSitesFile,
	}

	// Environment overrides
	if v := os.Getenv("PROPCRAWL_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("PROPCRAWL_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("PROPCRAWL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PROPCRAWL_SITES_FILE"); v != "" {
		cfg.SitesFile = v
	}
	if v := os.Getenv("PROPCRAWL_PROXY_API_BASE"); v != "" {
		cfg.ProxyAPIBase = v
	}
	if v := os.Getenv(ProxyAPIKeyEnv); v != "" {
		cfg.ProxyAPIKey = v
	}
	if v := os.Getenv("PROPCRAWL_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("PROPCRAWL_BATCH_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BatchCooldown = d
		}
	}
	if v := os.Getenv("PROPCRAWL_EMPTY_PAGE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EmptyPageLimit = n
		}
	}

	// CLI flag overrides
	if cmd != nil {
		if f := cmd.Flags().Lookup("user-agent"); f != nil && f.Value.String() != "" {
			cfg.UserAgent = f.Value.String()
		}
		if f := cmd.Flags().Lookup("proxy"); f != nil && f.Value.String() != "" {
			cfg.Proxy = f.Value.String()
		}
		if f := cmd.Flags().Lookup("sites"); f != nil && f.Value.String() != "" {
			cfg.SitesFile = f.Value.String()
		}
		if f := cmd.Flags().Lookup("data-dir"); f != nil && f.Value.String() != "" {
			cfg.DataDir = f.Value.String()
		}
		if f := cmd.Flags().Lookup("timeout"); f != nil && f.Value.String() != "" {
			if d, err := time.ParseDuration(f.Value.String()); err == nil {
				cfg.HTTPTimeout = d
			}
		}
		if f := cmd.Flags().Lookup("batch-size"); f != nil {
			if n, err := strconv.Atoi(f.Value.String()); err == nil && n > 0 {
				cfg.BatchSize = n
			}
		}
		if f := cmd.Flags().Lookup("workers"); f != nil {
			if n, err := strconv.Atoi(f.Value.String()); err == nil && n > 0 {
				cfg.EnrichWorkers = n
			}
		}
		if f := cmd.Flags().Lookup("json"); f != nil && f.Value.String() == "true" {
			cfg.JSONLog = true
		}
		if f := cmd.Flags().Lookup("verbose"); f != nil && f.Value.String() == "true" {
			cfg.LogLevel = "debug"
		}
		if f := cmd.Flags().Lookup("quiet"); f != nil && f.Value.String() == "true" {
			cfg.LogLevel = "error"
		}
		if f := cmd.Flags().Lookup("ignore-robots"); f != nil && f.Value.String() == "true" {
			cfg.IgnoreRobots = true
		}
	}

	if err := validate(cfg); err != nil {
		return nil, errs.Config("invalid configuration", err)
	}
	return cfg, nil
}
