// Package walker drives the fetch gateway across a paginated listing index.
//
// Pagination discovery runs three strategies in priority order, each tried
// only when the previous one failed to move past page 1: follow the explicit
// "next" control, visit numbered pagination links found on page 1, and
// finally probe synthesized ?page=N and /page/N URLs.
package walker

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/internal/config"
	"github.com/property-radar/crawl/internal/errs"
	"github.com/property-radar/crawl/internal/fetch"
	urlutil "github.com/property-radar/crawl/internal/utils/url"
	"github.com/property-radar/crawl/pkg/models"
)

// Selector fallbacks used when a site's pagination hints are silent
var (
	defaultNextSelectors = config.SelectorSet{
		`a[rel="next"]`,
		`.pagination .next a`,
		`a.next`,
		`li.next a`,
	}
	defaultPageLinkSelectors = config.SelectorSet{
		`.pagination a`,
		`ul.page-numbers a`,
		`nav[aria-label*="agination"] a`,
	}
)

// PageFetcher is the slice of the gateway the walker needs
type PageFetcher interface {
	Fetch(ctx context.Context, req fetch.Request) (*models.Page, error)
}

// Result is a completed walk: N pages visited (N >= 1) or empty
type Result struct {
	Listings     []models.Listing
	PagesVisited int
}

// Walker walks one site's listing index
type Walker struct {
	gateway    PageFetcher
	maxPages   int
	emptyLimit int
}

// New creates a walker. maxPages caps the walk; emptyLimit is the number of
// consecutive zero-item pages that ends a path.
func New(gateway PageFetcher, maxPages, emptyLimit int) *Walker {
	if maxPages <= 0 {
		maxPages = 15
	}
	if emptyLimit <= 0 {
		emptyLimit = 2
	}
	return &Walker{gateway: gateway, maxPages: maxPages, emptyLimit: emptyLimit}
}

// Walk crawls the site's index from its start URL. A policy refusal or a
// failure on the very first page is returned as an error; failures deeper in
// the walk end the path with whatever was collected.
func (w *Walker) Walk(ctx context.Context, site *config.Site) (*Result, error) {
	if err := urlutil.ValidateURL(site.StartURL); err != nil {
		return nil, errs.Config("site "+site.Key+" start_url", err)
	}

	maxPages := w.maxPages
	if site.Pagination.MaxPages > 0 {
		maxPages = site.Pagination.MaxPages
	}

	firstPage, firstDoc, err := w.fetchPage(ctx, site, site.StartURL)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Listings:     ExtractListings(firstDoc, firstPage.URL, site),
		PagesVisited: 1,
	}
	visited := map[string]bool{site.StartURL: true}

	// Strategy A: follow the explicit next control
	w.followNext(ctx, site, firstDoc, firstPage.URL, maxPages, visited, res)

	// Strategy B: numbered pagination links on page 1
	if res.PagesVisited == 1 {
		w.visitPageLinks(ctx, site, firstDoc, firstPage.URL, maxPages, visited, res)
	}

	// Strategy C: synthesized URL guesses
	if res.PagesVisited == 1 {
		w.probeGuesses(ctx, site, maxPages, visited, res)
	}

	log.Info().
		Str("site", site.Key).
		Int("pages", res.PagesVisited).
		Int("listings", len(res.Listings)).
		Msg("Index walk completed")

	return res, nil
}

func (w *Walker) fetchPage(ctx context.Context, site *config.Site, pageURL string) (*models.Page, *goquery.Document, error) {
	page, err := w.gateway.Fetch(ctx, fetch.Request{
		URL:           pageURL,
		Methods:       site.FetchMethods,
		ReadySelector: site.ReadySelector,
		Site:          site.Key,
	})
	if err != nil {
		return nil, nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, nil, errs.TransientFetch("parsing page "+pageURL, err)
	}
	return page, doc, nil
}

// followNext drives strategy A until the next control disappears, the page
// cap is reached, or the empty-page streak fires
func (w *Walker) followNext(ctx context.Context, site *config.Site, doc *goquery.Document, pageURL string, maxPages int, visited map[string]bool, res *Result) {
	emptyStreak := 0
	for res.PagesVisited < maxPages {
		next := w.nextURL(doc, pageURL, site)
		if next == "" || visited[next] || !urlutil.SameHost(site.StartURL, next) {
			return
		}
		visited[next] = true

		page, nextDoc, err := w.fetchPage(ctx, site, next)
		if err != nil {
			log.Debug().Err(err).Str("url", next).Msg("Next-control page failed, ending path")
			return
		}
		res.PagesVisited++

		items := ExtractListings(nextDoc, page.URL, site)
		res.Listings = append(res.Listings, items...)
		if len(items) == 0 {
			emptyStreak++
			if emptyStreak >= w.emptyLimit {
				return
			}
		} else {
			emptyStreak = 0
		}
		doc, pageURL = nextDoc, page.URL
	}
}

// visitPageLinks drives strategy B over numbered links discovered on page 1
func (w *Walker) visitPageLinks(ctx context.Context, site *config.Site, firstDoc *goquery.Document, baseURL string, maxPages int, visited map[string]bool, res *Result) {
	chain := site.Pagination.PageLinks
	if len(chain) == 0 {
		chain = defaultPageLinkSelectors
	}

	var links []string
	seen := map[string]bool{}
	for _, sel := range chain {
		firstDoc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			abs := urlutil.ResolveURL(baseURL, href)
			if visited[abs] || seen[abs] || !urlutil.SameHost(site.StartURL, abs) {
				return
			}
			seen[abs] = true
			links = append(links, abs)
		})
		if len(links) > 0 {
			break
		}
	}

	emptyStreak := 0
	for _, link := range links {
		if res.PagesVisited >= maxPages {
			return
		}
		visited[link] = true

		page, doc, err := w.fetchPage(ctx, site, link)
		if err != nil {
			log.Debug().Err(err).Str("url", link).Msg("Numbered page failed, skipping")
			continue
		}
		res.PagesVisited++

		items := ExtractListings(doc, page.URL, site)
		res.Listings = append(res.Listings, items...)
		if len(items) == 0 {
			emptyStreak++
			if emptyStreak >= w.emptyLimit {
				return
			}
		} else {
			emptyStreak = 0
		}
	}
}

// probeGuesses drives strategy C: synthesized ?page=N then /page/N paths
func (w *Walker) probeGuesses(ctx context.Context, site *config.Site, maxPages int, visited map[string]bool, res *Result) {
	param := site.Pagination.QueryParam
	if param == "" {
		param = "page"
	}
	pattern := site.Pagination.PathPattern
	if pattern == "" {
		pattern = "/page/%d"
	}

	forms := []func(n int) string{
		func(n int) string { return urlutil.WithQueryParam(site.StartURL, param, fmt.Sprintf("%d", n)) },
		func(n int) string { return urlutil.WithPathSuffix(site.StartURL, fmt.Sprintf(pattern, n)) },
	}

	for _, form := range forms {
		emptyStreak := 0
		produced := false
		for n := 2; res.PagesVisited < maxPages; n++ {
			guess := form(n)
			if visited[guess] {
				break
			}
			visited[guess] = true

			page, doc, err := w.fetchPage(ctx, site, guess)
			if err != nil {
				// A failed probe counts as an empty page for this path
				emptyStreak++
				if emptyStreak >= w.emptyLimit {
					break
				}
				continue
			}
			res.PagesVisited++

			items := ExtractListings(doc, page.URL, site)
			res.Listings = append(res.Listings, items...)
			if len(items) == 0 {
				emptyStreak++
				if emptyStreak >= w.emptyLimit {
					break
				}
			} else {
				emptyStreak = 0
				produced = true
			}
		}
		if produced {
			return
		}
	}
}

// nextURL finds the explicit next control's target, if present
func (w *Walker) nextURL(doc *goquery.Document, pageURL string, site *config.Site) string {
	chain := site.Pagination.NextSelector
	if len(chain) == 0 {
		chain = defaultNextSelectors
	}
	for _, sel := range chain {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			return urlutil.ResolveURL(pageURL, href)
		}
	}
	return ""
}
