// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/internal/browser"
	"github.com/property-radar/crawl/internal/cache"
	"github.com/property-radar/crawl/internal/config"
	"github.com/property-radar/crawl/internal/policy"
	"github.com/property-radar/crawl/internal/proxy"
	"github.com/property-radar/crawl/internal/store"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config     *config.Config
	Logger     *zerolog.Logger
	Cache      *cache.MemoryCache
	Gate       *policy.DomainGate
	HTTPClient *http.Client
	Proxies    *proxy.Pool
	Store      *store.Store

	sessionMu sync.Mutex
	session   *browser.Session

	startTime time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// The browser session is not started here; it is created lazily via
// EnsureSession only when a site actually requests browser-based fetching
// or detail enrichment.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logLevel := zerolog.ErrorLevel
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.NewConsoleWriter()
	}
	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger

	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	pageCache := cache.NewMemoryCache(cfg.CacheMaxSizeBytes)
	logger.Debug().
		Int64("max_size_bytes", cfg.CacheMaxSizeBytes).
		Msg("Page cache initialized")

	proxies := proxy.NewPool(splitProxies(cfg.Proxy))
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &http.Transport{
			Proxy:               proxies.ProxyFunc(),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var robots *policy.RobotsCache
	if !cfg.IgnoreRobots {
		robots = policy.NewRobotsCache(httpClient, cfg.UserAgent, cfg.RobotsTTL)
	}
	gate := policy.NewDomainGate(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateMaxDelay, robots)
	logger.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Bool("robots", !cfg.IgnoreRobots).
		Msg("Domain gate initialized")

	storeOpts := []store.Option{store.WithLockWait(cfg.LockWaitTimeout)}
	if cfg.SkipSummary {
		storeOpts = append(storeOpts, store.WithoutSummary())
	}
	st, err := store.New(cfg.DataDir, storeOpts...)
	if err != nil {
		return nil, err
	}

	app := &Application{
		Config:     cfg,
		Logger:     &logger,
		Cache:      pageCache,
		Gate:       gate,
		HTTPClient: httpClient,
		Proxies:    proxies,
		Store:      st,
		startTime:  time.Now(),
	}

	logger.Debug().Msg("Application initialized")
	return app, nil
}

// EnsureSession lazily launches the shared browser session. The session is
// created at most once and reused across every fetch and enrichment call.
func (a *Application) EnsureSession(ctx context.Context) (*browser.Session, error) {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	if a.session != nil {
		return a.session, nil
	}

	a.Logger.Debug().Msg("Launching browser session on demand")
	session, err := browser.New(browser.Options{
		Headless:  true,
		UserAgent: a.Config.UserAgent,
		Proxy:     a.Proxies.Next(),
	})
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Browser session unavailable")
		return nil, err
	}
	a.session = session

	a.Logger.Info().Msg("Browser session ready")
	return session, nil
}

// Close gracefully shuts down the application and all its resources.
// Errors during shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Debug().Msg("Shutting down application")

	a.sessionMu.Lock()
	if a.session != nil {
		a.session.Close()
		a.session = nil
	}
	a.sessionMu.Unlock()

	if a.Cache != nil {
		a.Cache.Clear()
	}
	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}

func splitProxies(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
