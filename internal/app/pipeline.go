package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/internal/config"
	"github.com/property-radar/crawl/internal/dedup"
	"github.com/property-radar/crawl/internal/enrich"
	"github.com/property-radar/crawl/internal/errs"
	"github.com/property-radar/crawl/internal/fetch"
	"github.com/property-radar/crawl/internal/images"
	"github.com/property-radar/crawl/internal/reqctx"
	"github.com/property-radar/crawl/internal/scheduler"
	"github.com/property-radar/crawl/internal/walker"
	"github.com/property-radar/crawl/pkg/models"
)

// PipelineOptions tunes one crawl run
type PipelineOptions struct {
	// Enrich visits each listing's detail page in the shared browser session
	Enrich bool
	// DedupPolicy names the survivor policy; "" means first-seen
	DedupPolicy string
	// DownloadImages fetches listing photos after storing
	DownloadImages bool
	// Headers are extra request headers applied to every fetch
	Headers map[string]string
}

// Pipeline drives one site end to end: walk the index, enrich details,
// resolve duplicates, append to the ledger.
type Pipeline struct {
	app      *Application
	sites    *config.Sites
	walker   *walker.Walker
	enricher *enrich.Enricher
	resolver *dedup.Resolver
	images   *images.Downloader
	opts     PipelineOptions
}

// NewPipeline assembles the pipeline for the given site set. The browser
// session is launched only when some site lists the browser method or
// enrichment is requested; if the launch fails the run degrades to the
// remaining fetch methods.
func NewPipeline(ctx context.Context, a *Application, sites *config.Sites, opts PipelineOptions) (*Pipeline, error) {
	cfg := a.Config

	needBrowser := opts.Enrich
	for _, site := range sites.Sites {
		for _, m := range site.FetchMethods {
			if m == fetch.MethodBrowser {
				needBrowser = true
			}
		}
		if site.RateRPS > 0 {
			a.Gate.SetLimitForURL(site.StartURL, site.RateRPS, cfg.RateLimitBurst)
		}
	}

	fetchers := []fetch.Fetcher{
		fetch.NewHTTPFetcher(a.HTTPClient, cfg.HTTPTimeout, cfg.UserAgent),
		fetch.NewProxyAPIFetcher(a.HTTPClient, cfg.ProxyAPIBase, cfg.ProxyAPIKey,
			config.ProxyAPIKeyService, config.ProxyAPIKeyUser, cfg.ProxyTimeout),
	}

	var enricher *enrich.Enricher
	if needBrowser {
		session, err := a.EnsureSession(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Continuing without browser-based fetching")
			opts.Enrich = false
		} else {
			fetchers = append(fetchers,
				fetch.NewBrowserFetcher(session, cfg.BrowserTimeout, true))
			if opts.Enrich {
				enricher = enrich.New(enrich.NewSessionRenderer(session), enrich.Options{
					Workers: cfg.EnrichWorkers,
					Cap:     cfg.EnrichCap,
					Timeout: cfg.EnrichTimeout,
				})
			}
		}
	}

	gateway := fetch.NewGateway(a.Gate, fetchers, nil, a.Cache, cfg.CacheTTL)

	threshold := cfg.DedupThreshold
	if sites.DedupThreshold > 0 {
		threshold = sites.DedupThreshold
	}

	p := &Pipeline{
		app:      a,
		sites:    sites,
		enricher: enricher,
		resolver: dedup.New(threshold, dedup.PolicyByName(opts.DedupPolicy)),
		opts:     opts,
	}
	p.walker = walker.New(&headerInjector{gateway: gateway, headers: opts.Headers},
		cfg.MaxPages, cfg.EmptyPageLimit)

	if opts.DownloadImages {
		p.images = images.New(a.HTTPClient, cfg.DataDir, cfg.EnrichWorkers)
	}

	return p, nil
}

// SiteRefs returns the scheduling view of the configured sites, optionally
// filtered to the given keys
func (p *Pipeline) SiteRefs(only []string) ([]scheduler.SiteRef, error) {
	keys := p.sites.Keys()
	if len(only) > 0 {
		for _, k := range only {
			if _, ok := p.sites.Sites[k]; !ok {
				return nil, errs.Config("unknown site key: "+k, nil)
			}
		}
		keys = only
	}
	refs := make([]scheduler.SiteRef, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, scheduler.SiteRef{Key: k, Priority: p.sites.Sites[k].Priority})
	}
	return refs, nil
}

// RunSite is the scheduler.SiteFunc: one site's full pass. Extraction gaps
// degrade the record set; only fetch failure of the first index page fails
// the site.
func (p *Pipeline) RunSite(ctx context.Context, siteKey string) error {
	site, ok := p.sites.Sites[siteKey]
	if !ok {
		return errs.Config("unknown site key: "+siteKey, nil)
	}

	ctx = reqctx.WithCrawl(ctx, siteKey)
	logger := log.With().Str("site", siteKey).Str("crawl_id", reqctx.ID(ctx)).Logger()

	result, err := p.walker.Walk(ctx, site)
	if err != nil {
		return err
	}
	logger.Info().
		Int("pages", result.PagesVisited).
		Int("listings", len(result.Listings)).
		Msg("Index walk finished")

	listings := result.Listings
	if p.enricher != nil && len(listings) > 0 {
		listings = p.enricher.Enrich(ctx, listings, site)
	}

	listings, groups := p.resolver.Resolve(listings)
	if len(groups) > 0 {
		logger.Info().Int("groups", len(groups)).Msg("Duplicates resolved")
	}

	stamp(listings, siteKey)
	added, err := p.app.Store.Append(ctx, siteKey, listings)
	if err != nil {
		return err
	}
	logger.Info().Int("new_rows", added).Msg("Site stored")

	if p.images != nil && len(listings) > 0 {
		p.images.DownloadAll(ctx, listings)
	}
	return nil
}

// stamp fills bookkeeping fields the extractor leaves empty
func stamp(listings []models.Listing, siteKey string) {
	for i := range listings {
		if listings[i].Site == "" {
			listings[i].Site = siteKey
		}
		if listings[i].Hash == "" {
			listings[i].ComputeHash()
		}
	}
}

// headerInjector adds run-level extra headers to every request before it
// reaches the gateway
type headerInjector struct {
	gateway *fetch.Gateway
	headers map[string]string
}

func (h *headerInjector) Fetch(ctx context.Context, req fetch.Request) (*models.Page, error) {
	if len(h.headers) > 0 {
		merged := make(map[string]string, len(h.headers)+len(req.Headers))
		for k, v := range h.headers {
			merged[k] = v
		}
		for k, v := range req.Headers {
			merged[k] = v
		}
		req.Headers = merged
	}
	return h.gateway.Fetch(ctx, req)
}
