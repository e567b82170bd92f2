package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"strings"

	"github.com/property-radar/crawl/internal/errs"
	"github.com/property-radar/crawl/pkg/models"
)

// HTTPFetcher is the lightweight direct fetch method. No JavaScript runs;
// sites that render listings server-side resolve here in tens of
// milliseconds.
type HTTPFetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewHTTPFetcher creates the direct fetcher with connection reuse
func NewHTTPFetcher(client *http.Client, timeout time.Duration, userAgent string) *HTTPFetcher {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{client: client, timeout: timeout, userAgent: userAgent}
}

// Name returns the chain name of this method
func (f *HTTPFetcher) Name() string {
	return MethodHTTP
}

// Fetch performs a plain GET and parses the body
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*models.Page, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, errs.TransientFetch("building request", err)
	}

	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, errs.TransientFetch("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, errs.TransientFetch(fmt.Sprintf("status %d from %s", resp.StatusCode, req.URL), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.TransientFetch("reading body", err)
	}

	html := string(body)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errs.TransientFetch("parsing body", err)
	}

	page := &models.Page{
		URL:          req.URL,
		StatusCode:   resp.StatusCode,
		Title:        doc.Find("title").First().Text(),
		HTML:         html,
		FetchedAt:    time.Now(),
		ResponseTime: time.Since(start).Milliseconds(),
	}

	log.Debug().
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Int64("response_time_ms", page.ResponseTime).
		Msg("Direct fetch completed")

	return page, nil
}
