package policy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/property-radar/crawl/internal/errs"
)

func TestDomainGate_AllowsWithinBurst(t *testing.T) {
	gate := NewDomainGate(10.0, 5, time.Second, nil)

	for i := 0; i < 5; i++ {
		if err := gate.Check(context.Background(), "https://example.com/page"); err != nil {
			t.Fatalf("request %d refused unexpectedly: %v", i, err)
		}
		gate.Record("https://example.com/page")
	}
}

func TestDomainGate_RefusesWhenWindowExhausted(t *testing.T) {
	// 1 req per 100s, burst 1, max delay 10ms: second request must be refused
	gate := NewDomainGate(0.01, 1, 10*time.Millisecond, nil)

	if err := gate.Check(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("first request refused: %v", err)
	}

	err := gate.Check(context.Background(), "https://example.com/b")
	if err == nil {
		t.Fatal("expected refusal, got nil")
	}
	if !errs.HasCode(err, errs.CodeBlockedByPolicy) {
		t.Errorf("expected BLOCKED_BY_POLICY, got %v", err)
	}
}

func TestDomainGate_SeparateDomainsSeparateWindows(t *testing.T) {
	gate := NewDomainGate(0.01, 1, 10*time.Millisecond, nil)

	if err := gate.Check(context.Background(), "https://one.example.com/a"); err != nil {
		t.Fatalf("first domain refused: %v", err)
	}
	// Different registered domain gets a fresh window
	if err := gate.Check(context.Background(), "https://example.org/a"); err != nil {
		t.Fatalf("second domain refused: %v", err)
	}
}

func TestDomainGate_SharedWindowAcrossSubdomains(t *testing.T) {
	gate := NewDomainGate(0.01, 1, 10*time.Millisecond, nil)

	if err := gate.Check(context.Background(), "https://www.example.com/a"); err != nil {
		t.Fatalf("first request refused: %v", err)
	}
	// m.example.com shares example.com's window
	if err := gate.Check(context.Background(), "https://m.example.com/b"); err == nil {
		t.Fatal("expected shared-window refusal, got nil")
	}
}

func TestRobotsCache_Disallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	rc := NewRobotsCache(server.Client(), "propcrawl", time.Minute)

	if !rc.Allowed(context.Background(), server.URL+"/listings") {
		t.Error("expected /listings to be allowed")
	}
	if rc.Allowed(context.Background(), server.URL+"/private/page") {
		t.Error("expected /private/page to be disallowed")
	}
}

func TestRobotsCache_FetchFailureAllows(t *testing.T) {
	rc := NewRobotsCache(&http.Client{Timeout: 100 * time.Millisecond}, "propcrawl", time.Minute)

	if !rc.Allowed(context.Background(), "http://127.0.0.1:1/anything") {
		t.Error("unreachable robots.txt must not refuse requests")
	}
}

func TestDomainGate_RobotsRefusalIsBlockedByPolicy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /\n"))
	}))
	defer server.Close()

	rc := NewRobotsCache(server.Client(), "propcrawl", time.Minute)
	gate := NewDomainGate(5.0, 10, time.Second, rc)

	err := gate.Check(context.Background(), server.URL+"/listings")
	if err == nil {
		t.Fatal("expected robots refusal")
	}
	var coded *errs.Error
	if !errors.As(err, &coded) || coded.Code != errs.CodeBlockedByPolicy {
		t.Errorf("expected BLOCKED_BY_POLICY, got %v", err)
	}
}
