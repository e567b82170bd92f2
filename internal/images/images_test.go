package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/property-radar/crawl/pkg/models"
)

func TestDownloadAllWritesFiles(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := New(srv.Client(), dir, 3)

	listings := []models.Listing{
		{
			Hash:   "abc123",
			Images: []string{srv.URL + "/a.jpg", srv.URL + "/b.png?w=800", srv.URL + "/missing.jpg"},
		},
		{
			// No hash: skipped entirely
			Images: []string{srv.URL + "/ignored.jpg"},
		},
	}

	results := d.DownloadAll(context.Background(), listings)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("failed = %d, want 1 (the 404)", failed)
	}

	if _, err := os.Stat(filepath.Join(dir, "images", "abc123", "01.jpg")); err != nil {
		t.Errorf("first image missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "images", "abc123", "02.png")); err != nil {
		t.Errorf("second image missing (query string should not leak into extension): %v", err)
	}
}

func TestDownloadAllSkipsExisting(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := New(srv.Client(), dir, 1)
	listings := []models.Listing{{Hash: "abc123", Images: []string{srv.URL + "/a.jpg"}}}

	d.DownloadAll(context.Background(), listings)
	d.DownloadAll(context.Background(), listings)

	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1 (second run must reuse the file)", got)
	}
}

func TestDownloadAllEmpty(t *testing.T) {
	d := New(nil, t.TempDir(), 0)
	if got := d.DownloadAll(context.Background(), nil); got != nil {
		t.Errorf("expected nil results, got %v", got)
	}
}
