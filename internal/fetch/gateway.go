// Package fetch resolves URLs to complete HTML pages through an ordered
// fallback chain of fetch methods, gated by per-domain policy checks.
package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/internal/cache"
	"github.com/property-radar/crawl/internal/errs"
	"github.com/property-radar/crawl/internal/policy"
	"github.com/property-radar/crawl/pkg/models"
)

// Fetch method names, in typical priority order
const (
	MethodHTTP     = "http"
	MethodBrowser  = "browser"
	MethodProxyAPI = "proxy_api"
)

// Request describes one URL resolution
type Request struct {
	URL string
	// Methods is the ordered fallback chain; empty means the gateway default.
	Methods []string
	// ReadySelector, when set, is waited for by rendering methods before the
	// page is considered loaded.
	ReadySelector string
	// Site is the configured site key, used for telemetry only.
	Site    string
	Headers map[string]string
}

// Fetcher is one fetch method. Implementations carry their own hard per-call
// timeout, independent of caller-level deadlines.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, req Request) (*models.Page, error)
}

// Availabler is implemented by fetchers that may be unusable (e.g. a proxy
// provider without credentials). Unavailable fetchers are skipped silently.
type Availabler interface {
	Available() bool
}

// Gateway resolves one URL to HTML plus embedded structured data via the
// fallback chain. A policy refusal aborts the whole chain; a method failure
// silently falls through to the next method. The gateway never returns a
// partial page: the result parses as a complete HTML document or the attempt
// counts as failed.
type Gateway struct {
	gate     policy.Gate
	fetchers map[string]Fetcher
	order    []string
	pages    cache.PageCache
	cacheTTL time.Duration
}

// NewGateway creates a gateway with the given method implementations.
// defaultOrder is used when a request does not name its own chain.
func NewGateway(gate policy.Gate, fetchers []Fetcher, defaultOrder []string, pages cache.PageCache, cacheTTL time.Duration) *Gateway {
	m := make(map[string]Fetcher, len(fetchers))
	for _, f := range fetchers {
		m[f.Name()] = f
	}
	if len(defaultOrder) == 0 {
		defaultOrder = []string{MethodHTTP, MethodBrowser, MethodProxyAPI}
	}
	return &Gateway{
		gate:     gate,
		fetchers: m,
		order:    defaultOrder,
		pages:    pages,
		cacheTTL: cacheTTL,
	}
}

// Fetch resolves req through the fallback chain
func (g *Gateway) Fetch(ctx context.Context, req Request) (*models.Page, error) {
	if g.pages != nil {
		if page, ok := g.pages.Get(req.URL); ok {
			return page, nil
		}
	}

	methods := req.Methods
	if len(methods) == 0 {
		methods = g.order
	}

	var lastErr error
	for _, name := range methods {
		fetcher, ok := g.fetchers[name]
		if !ok {
			log.Warn().Str("method", name).Msg("Unknown fetch method in chain, skipping")
			continue
		}
		if av, ok := fetcher.(Availabler); ok && !av.Available() {
			log.Debug().Str("method", name).Msg("Fetch method unavailable, skipping")
			continue
		}

		// Policy refusal is final: no further methods may be tried.
		if err := g.gate.Check(ctx, req.URL); err != nil {
			log.Info().
				Str("url", req.URL).
				Str("site", req.Site).
				Msg("Fetch blocked by policy")
			return nil, err
		}

		page, err := fetcher.Fetch(ctx, req)
		if err != nil {
			lastErr = err
			log.Debug().
				Err(err).
				Str("method", name).
				Str("url", req.URL).
				Msg("Fetch method failed, falling through")
			continue
		}

		if err := validateComplete(page); err != nil {
			lastErr = err
			log.Debug().
				Err(err).
				Str("method", name).
				Str("url", req.URL).
				Msg("Fetch produced incomplete page, falling through")
			continue
		}

		page.Method = name
		page.Structured = append(page.Structured, ExtractStructured(page.HTML)...)
		g.gate.Record(req.URL)
		if g.pages != nil {
			g.pages.Set(req.URL, page, g.cacheTTL)
		}

		log.Info().
			Str("url", req.URL).
			Str("site", req.Site).
			Str("method", name).
			Int("status", page.StatusCode).
			Int("structured_blocks", len(page.Structured)).
			Msg("Fetch completed")
		return page, nil
	}

	return nil, errs.TransientFetch("no usable result for "+req.URL, lastErr)
}

// validateComplete enforces the gateway guarantee: either a complete parsed
// page or nothing
func validateComplete(page *models.Page) error {
	if page == nil || strings.TrimSpace(page.HTML) == "" {
		return errs.TransientFetch("empty document", nil)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return errs.TransientFetch("document failed to parse", err)
	}
	if doc.Find("body").Length() == 0 {
		return errs.TransientFetch("document has no body", nil)
	}
	return nil
}
