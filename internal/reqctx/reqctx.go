// Package reqctx carries per-site crawl identifiers through context for
// log correlation.
package reqctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

type ctxKey struct{}

// CrawlContext identifies one site's pass through the pipeline
type CrawlContext struct {
	ID      string
	Site    string
	Started time.Time
}

// WithCrawl attaches a fresh crawl context for the given site
func WithCrawl(ctx context.Context, site string) context.Context {
	return context.WithValue(ctx, ctxKey{}, &CrawlContext{
		ID:      newID(),
		Site:    site,
		Started: time.Now(),
	})
}

// FromContext returns the crawl context, or nil when absent
func FromContext(ctx context.Context) *CrawlContext {
	cc, _ := ctx.Value(ctxKey{}).(*CrawlContext)
	return cc
}

// ID returns the crawl id, or "" when no crawl context is attached
func ID(ctx context.Context) string {
	if cc := FromContext(ctx); cc != nil {
		return cc.ID
	}
	return ""
}

func newID() string {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "crawl-" + hex.EncodeToString([]byte(time.Now().Format("150405")))
	}
	return hex.EncodeToString(b[:])
}
