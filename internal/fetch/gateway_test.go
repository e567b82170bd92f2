package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/property-radar/crawl/internal/errs"
	"github.com/property-radar/crawl/pkg/models"
)

const completePage = `<!DOCTYPE html><html><head><title>t</title></head><body><p>x</p></body></html>`

type fakeFetcher struct {
	name      string
	page      *models.Page
	err       error
	available bool
	calls     int
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Available() bool { return f.available }

func (f *fakeFetcher) Fetch(ctx context.Context, req Request) (*models.Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.page, nil
}

type openGate struct{ records int }

func (g *openGate) Check(ctx context.Context, urlStr string) error { return nil }
func (g *openGate) Record(urlStr string)                           { g.records++ }

type closedGate struct{}

func (closedGate) Check(ctx context.Context, urlStr string) error {
	return errs.BlockedByPolicy(urlStr, nil)
}
func (closedGate) Record(urlStr string) {}

func goodPage(url string) *models.Page {
	return &models.Page{URL: url, StatusCode: 200, HTML: completePage, FetchedAt: time.Now()}
}

func TestGateway_FallbackOrderRespected(t *testing.T) {
	a := &fakeFetcher{name: "a", err: errors.New("boom"), available: true}
	b := &fakeFetcher{name: "b", page: goodPage("http://x.test/"), available: true}
	c := &fakeFetcher{name: "c", page: goodPage("http://x.test/"), available: true}

	gate := &openGate{}
	gw := NewGateway(gate, []Fetcher{a, b, c}, []string{"a", "b", "c"}, nil, 0)

	page, err := gw.Fetch(context.Background(), Request{URL: "http://x.test/"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if page.Method != "b" {
		t.Errorf("expected method %q, got %q", "b", page.Method)
	}
	if c.calls != 0 {
		t.Errorf("method c must never be invoked, got %d calls", c.calls)
	}
	if gate.records != 1 {
		t.Errorf("expected exactly 1 recorded request, got %d", gate.records)
	}
}

func TestGateway_PolicyRefusalAbortsChain(t *testing.T) {
	a := &fakeFetcher{name: "a", page: goodPage("http://x.test/"), available: true}
	gw := NewGateway(closedGate{}, []Fetcher{a}, []string{"a"}, nil, 0)

	_, err := gw.Fetch(context.Background(), Request{URL: "http://x.test/"})
	if err == nil {
		t.Fatal("expected policy refusal")
	}
	if !errs.HasCode(err, errs.CodeBlockedByPolicy) {
		t.Errorf("expected BLOCKED_BY_POLICY, got %v", err)
	}
	if a.calls != 0 {
		t.Errorf("no method may run after a policy refusal, got %d calls", a.calls)
	}
}

func TestGateway_AllMethodsFail(t *testing.T) {
	a := &fakeFetcher{name: "a", err: errors.New("a down"), available: true}
	b := &fakeFetcher{name: "b", err: errors.New("b down"), available: true}
	gw := NewGateway(&openGate{}, []Fetcher{a, b}, []string{"a", "b"}, nil, 0)

	_, err := gw.Fetch(context.Background(), Request{URL: "http://x.test/"})
	if err == nil {
		t.Fatal("expected failure when every method fails")
	}
	if !errs.HasCode(err, errs.CodeTransientFetch) {
		t.Errorf("expected TRANSIENT_FETCH, got %v", err)
	}
}

func TestGateway_UnavailableMethodSkipped(t *testing.T) {
	a := &fakeFetcher{name: "a", page: goodPage("http://x.test/"), available: false}
	b := &fakeFetcher{name: "b", page: goodPage("http://x.test/"), available: true}
	gw := NewGateway(&openGate{}, []Fetcher{a, b}, []string{"a", "b"}, nil, 0)

	page, err := gw.Fetch(context.Background(), Request{URL: "http://x.test/"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if a.calls != 0 {
		t.Error("unavailable method must be skipped without a call")
	}
	if page.Method != "b" {
		t.Errorf("expected method b, got %q", page.Method)
	}
}

func TestGateway_IncompletePageFallsThrough(t *testing.T) {
	partial := &models.Page{URL: "http://x.test/", StatusCode: 200, HTML: "   "}
	a := &fakeFetcher{name: "a", page: partial, available: true}
	b := &fakeFetcher{name: "b", page: goodPage("http://x.test/"), available: true}
	gw := NewGateway(&openGate{}, []Fetcher{a, b}, []string{"a", "b"}, nil, 0)

	page, err := gw.Fetch(context.Background(), Request{URL: "http://x.test/"})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if page.Method != "b" {
		t.Errorf("partial page must not be returned; expected method b, got %q", page.Method)
	}
}
