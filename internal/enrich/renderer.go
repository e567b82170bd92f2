package enrich

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/internal/browser"
	"github.com/property-radar/crawl/internal/errs"
)

// SessionRenderer renders detail pages in tabs of the shared browser
// session. Opening a tab per item and closing it afterwards keeps page state
// from leaking between listings while amortizing the browser's startup cost
// across the whole run.
type SessionRenderer struct {
	session *browser.Session
}

// NewSessionRenderer wraps the shared session
func NewSessionRenderer(session *browser.Session) *SessionRenderer {
	return &SessionRenderer{session: session}
}

// HTML navigates a fresh tab to url and returns the rendered document
func (r *SessionRenderer) HTML(ctx context.Context, url, readySelector string) (string, error) {
	tabCtx, tabCancel, err := r.session.NewTab()
	if err != nil {
		return "", errs.TransientFetch("opening detail tab", err)
	}
	defer tabCancel()

	// Honor the caller's per-item deadline inside the tab
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(tabCtx, deadline)
		defer cancel()
	}

	tasks := []chromedp.Action{chromedp.Navigate(url)}
	if readySelector != "" {
		tasks = append(tasks, waitForContainer(readySelector, 5*time.Second))
	} else {
		tasks = append(tasks, chromedp.Sleep(500*time.Millisecond))
	}

	var html string
	tasks = append(tasks, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(runCtx, tasks...); err != nil {
		return "", errs.TransientFetch("rendering detail page "+url, err)
	}
	return html, nil
}

// waitForContainer waits briefly for the detail content container; a miss is
// tolerated because many pages render the fields without it
func waitForContainer(selector string, wait time.Duration) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		if err := chromedp.WaitReady(selector, chromedp.ByQuery).Do(waitCtx); err != nil {
			log.Debug().Str("selector", selector).Msg("Detail container never appeared")
		}
		return nil
	})
}
