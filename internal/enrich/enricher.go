// Package enrich fetches each discovered listing's detail page through the
// shared browser session and merges extracted fields into the base records.
package enrich

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/property-radar/crawl/internal/config"
	"github.com/property-radar/crawl/pkg/models"
)

// Renderer resolves a detail URL to rendered HTML. The production
// implementation drives a tab in the shared browser session.
type Renderer interface {
	HTML(ctx context.Context, url, readySelector string) (string, error)
}

// Options bounds an enrichment pass
type Options struct {
	// Workers > 1 enables the bounded-parallel mode. The default of 1 keeps
	// execution strictly sequential, which is the safe choice for a shared
	// browser session.
	Workers int
	// Cap limits how many listings are enriched; 0 means all. Listings past
	// the cap pass through unmodified.
	Cap int
	// Timeout applies per item. An item that blows it keeps its base record.
	Timeout time.Duration
}

// Enricher merges detail-page fields over base listings
type Enricher struct {
	renderer Renderer
	opts     Options
}

// New creates an enricher over the given renderer
func New(renderer Renderer, opts Options) *Enricher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}
	return &Enricher{renderer: renderer, opts: opts}
}

// Enrich returns the listings with detail-page fields merged in. The result
// always has exactly as many records as the input: enrichment failures and
// the cap leave originals untouched, never dropped.
func (e *Enricher) Enrich(ctx context.Context, listings []models.Listing, site *config.Site) []models.Listing {
	out := make([]models.Listing, len(listings))
	copy(out, listings)

	limit := len(out)
	if e.opts.Cap > 0 && e.opts.Cap < limit {
		limit = e.opts.Cap
	}

	start := time.Now()
	enriched := 0

	if e.opts.Workers == 1 {
		for i := 0; i < limit; i++ {
			if ctx.Err() != nil {
				break
			}
			if e.enrichOne(ctx, &out[i], site) {
				enriched++
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.opts.Workers)
		results := make([]bool, limit)
		for i := 0; i < limit; i++ {
			i := i
			g.Go(func() error {
				results[i] = e.enrichOne(gctx, &out[i], site)
				return nil
			})
		}
		g.Wait()
		for _, ok := range results {
			if ok {
				enriched++
			}
		}
	}

	log.Info().
		Str("site", site.Key).
		Int("total", len(out)).
		Int("attempted", limit).
		Int("enriched", enriched).
		Dur("elapsed", time.Since(start)).
		Msg("Detail enrichment completed")

	return out
}

// enrichOne fetches and merges one detail page; returns whether any field
// was merged
func (e *Enricher) enrichOne(ctx context.Context, base *models.Listing, site *config.Site) bool {
	if base.URL == "" {
		return false
	}

	itemCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	html, err := e.renderer.HTML(itemCtx, base.URL, site.Detail.Container)
	if err != nil {
		log.Debug().Err(err).Str("url", base.URL).Msg("Detail fetch failed, keeping base record")
		return false
	}

	fields := ExtractDetailFields(html, site)
	if len(fields) == 0 {
		return false
	}

	MergeFields(base, fields)
	return true
}
