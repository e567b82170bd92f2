package fetch

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/internal/browser"
	"github.com/property-radar/crawl/internal/errs"
	"github.com/property-radar/crawl/pkg/models"
)

// Selectors for the usual cookie-consent controls. Clicking is best effort;
// a banner that stays up only costs some viewport, not the fetch.
var consentButtonSelectors = []string{
	`button[id*="accept"]`,
	`button[class*="accept"]`,
	`button[id*="cookie"]`,
	`a[id*="accept"]`,
	`[aria-label*="accept" i]`,
}

// Patterns blocked when resource blocking is on. Listings pages lazy-load
// large media that the extractor never reads.
var blockedResourcePatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
}

// BrowserFetcher renders pages in the shared Chrome session. It handles
// JavaScript-built listings, dismisses cookie banners, and scrolls to
// trigger lazy loading.
type BrowserFetcher struct {
	session        *browser.Session
	timeout        time.Duration
	blockResources bool
}

// NewBrowserFetcher creates the rendered fetch method
func NewBrowserFetcher(session *browser.Session, timeout time.Duration, blockResources bool) *BrowserFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &BrowserFetcher{session: session, timeout: timeout, blockResources: blockResources}
}

// Name returns the chain name of this method
func (f *BrowserFetcher) Name() string {
	return MethodBrowser
}

// Available reports whether a browser session was configured
func (f *BrowserFetcher) Available() bool {
	return f.session != nil
}

// Fetch renders the page in a fresh tab of the shared session
func (f *BrowserFetcher) Fetch(ctx context.Context, req Request) (*models.Page, error) {
	start := time.Now()

	tabCtx, tabCancel, err := f.session.NewTab()
	if err != nil {
		return nil, errs.TransientFetch("opening tab", err)
	}
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, f.timeout)
	defer cancel()

	page := &models.Page{URL: req.URL, FetchedAt: time.Now()}

	var statusCode int64
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument && resp.Response.URL == req.URL {
				statusCode = resp.Response.Status
			}
		}
	})

	tasks := []chromedp.Action{network.Enable()}
	if f.blockResources {
		tasks = append(tasks, network.SetBlockedURLs(blockedResourcePatterns))
	}

	tasks = append(tasks,
		chromedp.Navigate(req.URL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Let initial JS settle before poking at the DOM
			time.Sleep(300 * time.Millisecond)
			return nil
		}),
		chromedp.ActionFunc(dismissConsentBanners),
		chromedp.ActionFunc(simulateScroll),
	)

	if req.ReadySelector != "" {
		tasks = append(tasks, waitBriefly(req.ReadySelector, 5*time.Second))
	}

	var htmlContent, title string
	tasks = append(tasks,
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &htmlContent, chromedp.ByQuery),
	)

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		return nil, errs.TransientFetch("rendered fetch failed", err)
	}

	page.Title = title
	page.HTML = htmlContent
	page.StatusCode = int(statusCode)
	page.ResponseTime = time.Since(start).Milliseconds()

	log.Debug().
		Str("url", req.URL).
		Int("status", page.StatusCode).
		Int64("response_time_ms", page.ResponseTime).
		Msg("Rendered fetch completed")

	return page, nil
}

// dismissConsentBanners clicks the first matching consent control, if any
func dismissConsentBanners(ctx context.Context) error {
	for _, sel := range consentButtonSelectors {
		script := `(function(){var el=document.querySelector(` + "`" + sel + "`" + `);if(el){el.click();return true}return false})()`
		var clicked bool
		if err := chromedp.Evaluate(script, &clicked).Do(ctx); err != nil {
			continue
		}
		if clicked {
			log.Debug().Str("selector", sel).Msg("Dismissed consent banner")
			time.Sleep(200 * time.Millisecond)
			return nil
		}
	}
	return nil
}

// simulateScroll pages down the viewport a few times so lazy-loaded cards
// enter the DOM
func simulateScroll(ctx context.Context) error {
	for i := 0; i < 4; i++ {
		if err := chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil).Do(ctx); err != nil {
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	// Back to the top so position-dependent extraction sees a stable page
	chromedp.Evaluate(`window.scrollTo(0, 0)`, nil).Do(ctx)
	return nil
}

// waitBriefly waits for a selector with its own short deadline; a miss is
// not fatal since content may already be present
func waitBriefly(selector string, wait time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		if err := chromedp.WaitReady(selector, chromedp.ByQuery).Do(waitCtx); err != nil {
			log.Debug().Str("selector", selector).Msg("Content-ready selector never appeared")
		}
		return nil
	})
}
