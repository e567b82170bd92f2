package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/property-radar/crawl/internal/errs"
)

func writeSites(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validSites = `
batch_size: 5
dedup_threshold: 0.9
sites:
  lekkihomes:
    name: Lekki Homes
    start_url: https://lekkihomes.example/listings
    priority: 1
    fetch_methods: [http, browser]
    rate_rps: 0.25
    selectors:
      container: [".listing-card"]
      title: ["h3 a", ".title"]
      price: [".price"]
    pagination:
      query_param: page
  ikoyiprop:
    name: Ikoyi Properties
    start_url: https://ikoyiprop.example/
    priority: 2
    selectors:
      container: [".property"]
`

func TestLoadSitesValid(t *testing.T) {
	s, err := LoadSites(writeSites(t, validSites))
	if err != nil {
		t.Fatalf("LoadSites: %v", err)
	}

	if len(s.Sites) != 2 || s.BatchSize != 5 || s.DedupThreshold != 0.9 {
		t.Errorf("document fields wrong: %+v", s)
	}

	lekki := s.Sites["lekkihomes"]
	if lekki.Key != "lekkihomes" {
		t.Errorf("key not backfilled: %q", lekki.Key)
	}
	if len(lekki.Selectors.Title) != 2 || lekki.Selectors.Title[0] != "h3 a" {
		t.Errorf("selector order lost: %v", lekki.Selectors.Title)
	}

	// Sites without explicit methods get the default chain
	ikoyi := s.Sites["ikoyiprop"]
	if len(ikoyi.FetchMethods) != 2 || ikoyi.FetchMethods[0] != "http" {
		t.Errorf("default fetch methods = %v", ikoyi.FetchMethods)
	}

	keys := s.Keys()
	if keys[0] != "ikoyiprop" || keys[1] != "lekkihomes" {
		t.Errorf("Keys() not sorted: %v", keys)
	}
}

func TestLoadSitesFailsFast(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing file body", `sites: {}`},
		{"missing start_url", `
sites:
  broken:
    selectors:
      container: [".x"]
`},
		{"missing container", `
sites:
  broken:
    start_url: https://example.com/
`},
		{"unknown fetch method", `
sites:
  broken:
    start_url: https://example.com/
    fetch_methods: [carrier_pigeon]
    selectors:
      container: [".x"]
`},
		{"not yaml", `{{{{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSites(writeSites(t, tt.content))
			if !errs.HasCode(err, errs.CodeConfig) {
				t.Errorf("expected CONFIG error, got %v", err)
			}
		})
	}
}

func TestLoadSitesMissingFile(t *testing.T) {
	_, err := LoadSites(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errs.HasCode(err, errs.CodeConfig) {
		t.Errorf("expected CONFIG error, got %v", err)
	}
}

func TestLoadSitesDefaultThreshold(t *testing.T) {
	s, err := LoadSites(writeSites(t, `
sites:
  one:
    start_url: https://example.com/
    selectors:
      container: [".x"]
`))
	if err != nil {
		t.Fatal(err)
	}
	if s.DedupThreshold != DefaultDedupThreshold {
		t.Errorf("threshold = %v, want default", s.DedupThreshold)
	}
}
