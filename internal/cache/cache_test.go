package cache

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/property-radar/crawl/pkg/models"
)

func page(url, html string) *models.Page {
	return &models.Page{URL: url, StatusCode: 200, HTML: html}
}

func TestGetSetRoundTrip(t *testing.T) {
	c := NewMemoryCache(0)
	c.Set("https://example.com/p1", page("https://example.com/p1", "<html></html>"), time.Minute)

	got, ok := c.Get("https://example.com/p1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.URL != "https://example.com/p1" {
		t.Errorf("wrong page returned: %s", got.URL)
	}

	if _, ok := c.Get("https://example.com/p2"); ok {
		t.Error("unexpected hit for unknown key")
	}
}

func TestExpiry(t *testing.T) {
	c := NewMemoryCache(0)
	c.Set("k", page("k", "x"), 10*time.Millisecond)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry should be fresh")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry served")
	}
}

func TestLRUEviction(t *testing.T) {
	// Each entry is ~1KB of HTML plus overhead; bound fits roughly 3
	c := NewMemoryCache(5 * 1024)
	body := strings.Repeat("x", 1024)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), page("u", body), time.Minute)
	}

	if _, ok := c.Get("k0"); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.Get("k4"); !ok {
		t.Error("newest entry evicted")
	}
}

func TestClear(t *testing.T) {
	c := NewMemoryCache(0)
	c.Set("k", page("k", "x"), time.Minute)
	c.Clear()
	if _, ok := c.Get("k"); ok {
		t.Error("entry survived Clear")
	}
}

func TestSetReplacesExisting(t *testing.T) {
	c := NewMemoryCache(0)
	c.Set("k", page("k", "first"), time.Minute)
	c.Set("k", page("k", "second"), time.Minute)

	got, ok := c.Get("k")
	if !ok || got.HTML != "second" {
		t.Errorf("replacement not visible: %+v ok=%v", got, ok)
	}
}
