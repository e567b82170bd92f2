package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel  = "info"
	DefaultJSONLog   = false
	DefaultUserAgent = "propcrawl/1.0 (+https://github.com/property-radar/crawl)"
	DefaultDataDir   = "data"
	DefaultSitesFile = "sites.yaml"

	DefaultHTTPTimeout    = 30 * time.Second
	DefaultBrowserTimeout = 60 * time.Second
	DefaultProxyTimeout   = 70 * time.Second

	DefaultRateLimitRPS   = 0.5
	DefaultRateLimitBurst = 2
	DefaultRateMaxDelay   = 20 * time.Second
	DefaultRobotsTTL      = time.Hour

	DefaultCacheTTL          = 5 * time.Minute
	DefaultCacheMaxSizeBytes = 50 * 1024 * 1024

	DefaultMaxPages        = 15
	DefaultEmptyPageLimit  = 2
	DefaultBatchCooldown   = 30 * time.Second
	DefaultPausePollEvery  = 2 * time.Second
	DefaultEnrichTimeout   = 25 * time.Second
	DefaultEnrichWorkers   = 1
	DefaultDedupThreshold  = 0.85
	DefaultLockWaitTimeout = 30 * time.Second

	// Env var and keyring names for the anti-bot proxy provider
	ProxyAPIKeyEnv      = "PROPCRAWL_PROXY_API_KEY"
	ProxyAPIKeyService  = "propcrawl"
	ProxyAPIKeyUser     = "proxy_api_key"
	DefaultProxyAPIBase = "https://api.scraperapi.com/"
)
