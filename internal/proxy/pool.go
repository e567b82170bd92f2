// Package proxy rotates outbound proxies with failure cooldown.
package proxy

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// failureCooldown is how long a proxy sits out after being marked failed
const failureCooldown = 5 * time.Minute

// Pool rotates a fixed list of outbound proxy URLs round-robin, skipping
// entries that failed recently. An empty pool means direct connections.
type Pool struct {
	mu      sync.Mutex
	proxies []string
	index   int
	failed  map[string]time.Time
}

// NewPool creates a pool over the given proxy URLs
func NewPool(proxies []string) *Pool {
	return &Pool{
		proxies: proxies,
		failed:  make(map[string]time.Time),
	}
}

// Next returns the next healthy proxy, or "" when the pool is empty. When
// every proxy is cooling down, the current rotation slot is returned anyway
// so callers always get a usable value.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	start := p.index
	for {
		candidate := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		if failedAt, ok := p.failed[candidate]; ok {
			if time.Since(failedAt) < failureCooldown {
				if p.index == start {
					return candidate
				}
				continue
			}
			delete(p.failed, candidate)
		}
		return candidate
	}
}

// MarkFailed sidelines a proxy for the cooldown period
func (p *Pool) MarkFailed(proxyURL string) {
	p.mu.Lock()
	p.failed[proxyURL] = time.Now()
	p.mu.Unlock()
}

// MarkHealthy clears a proxy's failure status
func (p *Pool) MarkHealthy(proxyURL string) {
	p.mu.Lock()
	delete(p.failed, proxyURL)
	p.mu.Unlock()
}

// ProxyFunc adapts the pool to http.Transport.Proxy, rotating per request.
// With an empty pool the transport connects directly.
func (p *Pool) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		next := p.Next()
		if next == "" {
			return nil, nil
		}
		return url.Parse(next)
	}
}
