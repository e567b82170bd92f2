package policy

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/temoto/robotstxt"
)

// RobotsCache fetches and caches robots.txt per host.
//
// A host whose robots.txt cannot be fetched or parsed is treated as allowing
// everything; only an explicit Disallow refuses a request.
type RobotsCache struct {
	client    *http.Client
	userAgent string
	ttl       time.Duration

	mu      sync.Mutex
	entries map[string]robotsEntry
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// NewRobotsCache creates a cache fetching robots.txt with the given client
// and evaluating rules for userAgent. Entries are refetched after ttl.
func NewRobotsCache(client *http.Client, userAgent string, ttl time.Duration) *RobotsCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RobotsCache{
		client:    client,
		userAgent: userAgent,
		ttl:       ttl,
		entries:   make(map[string]robotsEntry),
	}
}

// Allowed reports whether the user agent may fetch the URL under the host's
// robots.txt rules
func (rc *RobotsCache) Allowed(ctx context.Context, urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return true
	}

	data := rc.get(ctx, u.Scheme, u.Host)
	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, rc.userAgent)
}

func (rc *RobotsCache) get(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	rc.mu.Lock()
	entry, ok := rc.entries[host]
	rc.mu.Unlock()

	if ok && time.Since(entry.fetchedAt) < rc.ttl {
		return entry.data
	}

	data := rc.fetch(ctx, scheme, host)

	rc.mu.Lock()
	rc.entries[host] = robotsEntry{data: data, fetchedAt: time.Now()}
	rc.mu.Unlock()

	return data
}

func (rc *RobotsCache) fetch(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	if scheme == "" {
		scheme = "https"
	}
	robotsURL := scheme + "://" + host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("host", host).Msg("Failed to fetch robots.txt")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		log.Debug().Err(err).Str("host", host).Msg("Failed to parse robots.txt")
		return nil
	}

	log.Debug().Str("host", host).Int("status", resp.StatusCode).Msg("robots.txt cached")
	return data
}
