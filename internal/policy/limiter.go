// Package policy gates outbound requests behind per-domain rate limits and
// robots.txt rules.
package policy

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/property-radar/crawl/internal/errs"
)

// Gate decides whether a request for a URL may proceed.
//
// Implementations are the one piece of shared mutable in-process state in the
// pipeline: the detail enricher's parallel mode queries them concurrently, so
// they must be safe for concurrent use.
type Gate interface {
	// Check returns nil if a request for the URL may proceed now, or a
	// BLOCKED_BY_POLICY error when robots rules or the domain's rate window
	// refuse it. A refusal is final for this attempt; callers must not fall
	// through to another fetch method.
	Check(ctx context.Context, urlStr string) error

	// Record counts one successful request against the URL's domain window.
	Record(urlStr string)
}

// DomainGate combines a token-bucket limiter per registered domain with a
// cached robots.txt check
type DomainGate struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	perHost  rate.Limit
	burst    int
	maxDelay time.Duration
	robots   *RobotsCache

	lastRequest time.Time
}

// NewDomainGate creates a gate allowing requestsPerSecond per registered
// domain with the given burst. A request whose rate reservation would delay
// it beyond maxDelay is refused rather than queued; pass robots as nil to
// skip robots.txt checks.
func NewDomainGate(requestsPerSecond float64, burst int, maxDelay time.Duration, robots *RobotsCache) *DomainGate {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	if burst <= 0 {
		burst = 1
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	return &DomainGate{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
		maxDelay: maxDelay,
		robots:   robots,
	}
}

// Check refuses the request when robots disallow it or when the domain's
// rate window cannot admit it within the gate's max delay. An admissible
// request blocks until its slot arrives so callers observe the configured
// per-domain interval.
func (g *DomainGate) Check(ctx context.Context, urlStr string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	domain := domainKey(urlStr)
	if domain == "" {
		// Invalid URL, let it fail in the fetcher instead
		return nil
	}

	if g.robots != nil && !g.robots.Allowed(ctx, urlStr) {
		log.Debug().Str("url", urlStr).Msg("Robots policy refused request")
		return errs.BlockedByPolicy(urlStr, nil)
	}

	res := g.limiter(domain).Reserve()
	if !res.OK() {
		return errs.BlockedByPolicy(urlStr, nil)
	}
	delay := res.Delay()
	if delay > g.maxDelay {
		res.Cancel()
		log.Debug().
			Str("domain", domain).
			Dur("delay", delay).
			Msg("Rate window refused request")
		return errs.BlockedByPolicy(urlStr, nil)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			res.Cancel()
			return errs.BlockedByPolicy(urlStr, ctx.Err())
		}
	}
	return nil
}

// Record counts one successful request against the domain window.
// The token was already consumed by Check's reservation, so this only
// updates the bookkeeping timestamp used for diagnostics.
func (g *DomainGate) Record(urlStr string) {
	domain := domainKey(urlStr)
	if domain == "" {
		return
	}
	g.mu.Lock()
	g.lastRequest = time.Now()
	g.mu.Unlock()
	log.Debug().Str("domain", domain).Msg("Request recorded against domain window")
}

// limiter returns or creates the limiter for a domain
func (g *DomainGate) limiter(domain string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	if lim, ok := g.limiters[domain]; ok {
		return lim
	}
	lim := rate.NewLimiter(g.perHost, g.burst)
	g.limiters[domain] = lim
	return lim
}

// SetLimit overrides the rate for one domain, used by per-site config
func (g *DomainGate) SetLimit(domain string, requestsPerSecond float64, burst int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if lim, ok := g.limiters[domain]; ok {
		lim.SetLimit(rate.Limit(requestsPerSecond))
		lim.SetBurst(burst)
		return
	}
	g.limiters[domain] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// SetLimitForURL applies SetLimit to the URL's registered domain
func (g *DomainGate) SetLimitForURL(urlStr string, requestsPerSecond float64, burst int) {
	if domain := domainKey(urlStr); domain != "" {
		g.SetLimit(domain, requestsPerSecond, burst)
	}
}

// domainKey reduces a URL to its registered domain so www.example.com and
// m.example.com share one window
func domainKey(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return ""
	}
	host := u.Hostname()
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}
