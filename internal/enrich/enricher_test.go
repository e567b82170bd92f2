package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/property-radar/crawl/internal/config"
	"github.com/property-radar/crawl/pkg/models"
)

type fakeRenderer struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
	delay time.Duration
}

func (f *fakeRenderer) HTML(ctx context.Context, url, readySelector string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if !ok {
		return "", errors.New("render failed for " + url)
	}
	return html, nil
}

const detailHTML = `<html><body>
<h1>3 Bedroom Flat in Lekki Phase 1</h1>
<div class="price">₦25,000,000</div>
<div class="location">Lekki Phase 1, Lagos</div>
<div class="property-type">Flat</div>
<div class="bedrooms">3 Bedrooms</div>
<div class="description"><p>Spacious <strong>serviced</strong> flat.</p></div>
<script type="application/ld+json">{"@type":"Residence","geo":{"latitude":6.447,"longitude":3.474}}</script>
</body></html>`

func site() *config.Site {
	return &config.Site{Key: "lagosprops"}
}

func baseListing(url string) models.Listing {
	l := models.Listing{
		Title:    "3 Bedroom Flat",
		RawPrice: "₦25,000,000",
		Location: "Lekki",
		URL:      url,
		Site:     "lagosprops",
	}
	l.ComputeHash()
	return l
}

func TestEnrich_DetailFieldsTakePrecedence(t *testing.T) {
	r := &fakeRenderer{pages: map[string]string{"https://x.test/1": detailHTML}}
	e := New(r, Options{})

	out := e.Enrich(context.Background(), []models.Listing{baseListing("https://x.test/1")}, site())
	if len(out) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(out))
	}

	l := out[0]
	if l.Title != "3 Bedroom Flat in Lekki Phase 1" {
		t.Errorf("detail title must win, got %q", l.Title)
	}
	if l.Location != "Lekki Phase 1, Lagos" {
		t.Errorf("detail location must win, got %q", l.Location)
	}
	if l.PropertyType != "Flat" {
		t.Errorf("expected property type Flat, got %q", l.PropertyType)
	}
	if l.Bedrooms != 3 {
		t.Errorf("expected 3 bedrooms, got %d", l.Bedrooms)
	}
	if !l.HasCoords || l.Latitude != 6.447 {
		t.Errorf("expected coordinates from JSON-LD, got %+v", l)
	}
	if l.Description == "" || l.Description == "<p>Spacious <strong>serviced</strong> flat.</p>" {
		t.Errorf("description must be markdown-converted, got %q", l.Description)
	}
}

func TestEnrich_FailureKeepsBaseRecord(t *testing.T) {
	r := &fakeRenderer{pages: map[string]string{}}
	e := New(r, Options{})

	base := baseListing("https://x.test/broken")
	out := e.Enrich(context.Background(), []models.Listing{base}, site())

	if len(out) != 1 {
		t.Fatalf("items must never be dropped, got %d", len(out))
	}
	if out[0].Title != base.Title || out[0].Hash != base.Hash || out[0].PropertyType != "" {
		t.Errorf("failed item must keep its base record, got %+v", out[0])
	}
}

func TestEnrich_TimeoutKeepsBaseRecord(t *testing.T) {
	r := &fakeRenderer{
		pages: map[string]string{"https://x.test/slow": detailHTML},
		delay: 200 * time.Millisecond,
	}
	e := New(r, Options{Timeout: 20 * time.Millisecond})

	base := baseListing("https://x.test/slow")
	out := e.Enrich(context.Background(), []models.Listing{base}, site())
	if out[0].PropertyType != "" {
		t.Error("timed-out item must keep its un-enriched record")
	}
}

func TestEnrich_CapLimitsAttempts(t *testing.T) {
	r := &fakeRenderer{pages: map[string]string{
		"https://x.test/1": detailHTML,
		"https://x.test/2": detailHTML,
		"https://x.test/3": detailHTML,
	}}
	e := New(r, Options{Cap: 2})

	in := []models.Listing{
		baseListing("https://x.test/1"),
		baseListing("https://x.test/2"),
		baseListing("https://x.test/3"),
	}
	out := e.Enrich(context.Background(), in, site())

	if len(r.calls) != 2 {
		t.Errorf("expected 2 render calls under cap, got %d", len(r.calls))
	}
	if len(out) != 3 {
		t.Fatalf("remainder must pass through, got %d records", len(out))
	}
	if out[2].PropertyType != "" {
		t.Error("capped remainder must be unmodified")
	}
}

func TestEnrich_BoundedParallelMode(t *testing.T) {
	pages := map[string]string{}
	var in []models.Listing
	for _, u := range []string{"https://x.test/a", "https://x.test/b", "https://x.test/c", "https://x.test/d"} {
		pages[u] = detailHTML
		in = append(in, baseListing(u))
	}
	r := &fakeRenderer{pages: pages}
	e := New(r, Options{Workers: 3})

	out := e.Enrich(context.Background(), in, site())
	if len(out) != 4 {
		t.Fatalf("expected 4 records, got %d", len(out))
	}
	for i, l := range out {
		if l.PropertyType != "Flat" {
			t.Errorf("record %d not enriched in parallel mode", i)
		}
	}
}

func TestExtractDetailFields_ConfiguredSelectorsFirst(t *testing.T) {
	html := `<html><body><h1>Wrong</h1><div class="custom-title">Right</div></body></html>`
	s := site()
	s.Detail.Fields = map[string]config.SelectorSet{
		FieldTitle: {".custom-title"},
	}

	fields := ExtractDetailFields(html, s)
	if fields[FieldTitle] != "Right" {
		t.Errorf("configured selector must win over defaults, got %q", fields[FieldTitle])
	}
}
