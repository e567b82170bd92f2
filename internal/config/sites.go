package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"

	"github.com/property-radar/crawl/internal/errs"
)

// SelectorSet is an ordered list of CSS selectors tried first-match-wins
type SelectorSet []string

// ItemSelectors maps listing fields to their selector fallback chains
type ItemSelectors struct {
	Container SelectorSet `yaml:"container"`
	Title     SelectorSet `yaml:"title"`
	Price     SelectorSet `yaml:"price"`
	Location  SelectorSet `yaml:"location"`
	Type      SelectorSet `yaml:"type"`
	Bedrooms  SelectorSet `yaml:"bedrooms"`
	Bathrooms SelectorSet `yaml:"bathrooms"`
	Image     SelectorSet `yaml:"image"`
	Link      SelectorSet `yaml:"link"`
}

// PaginationHints configures how the walker discovers further pages
type PaginationHints struct {
	NextSelector  SelectorSet `yaml:"next_selector"`
	PageLinks     SelectorSet `yaml:"page_links"`
	QueryParam    string      `yaml:"query_param"` // e.g. "page" for ?page=N
	PathPattern   string      `yaml:"path_pattern"` // e.g. "/page/%d"
	MaxPages      int         `yaml:"max_pages"`
}

// DetailSelectors configures detail-page enrichment
type DetailSelectors struct {
	Container string                 `yaml:"container"`
	Fields    map[string]SelectorSet `yaml:"fields"`
}

// Site is one declarative per-site crawl description
type Site struct {
	Key           string          `yaml:"-"`
	Name          string          `yaml:"name"`
	StartURL      string          `yaml:"start_url"`
	Priority      int             `yaml:"priority"`
	FetchMethods  []string        `yaml:"fetch_methods"`
	ReadySelector string          `yaml:"ready_selector"`
	Selectors     ItemSelectors   `yaml:"selectors"`
	Pagination    PaginationHints `yaml:"pagination"`
	Detail        DetailSelectors `yaml:"detail"`
	RateRPS       float64         `yaml:"rate_rps"`
}

// Sites is the parsed per-site configuration document
type Sites struct {
	Sites          map[string]*Site `yaml:"sites"`
	BatchSize      int              `yaml:"batch_size"`
	DedupThreshold float64          `yaml:"dedup_threshold"`
}

var validMethods = map[string]bool{"http": true, "browser": true, "proxy_api": true}

// LoadSites reads and validates the declarative site configuration.
// Invalid input fails fast before any network activity.
func LoadSites(path string) (*Sites, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Config("reading sites file "+path, err)
	}

	var s Sites
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, errs.Config("parsing sites file "+path, err)
	}
	if len(s.Sites) == 0 {
		return nil, errs.Config("sites file "+path+" defines no sites", nil)
	}

	for key, site := range s.Sites {
		site.Key = key
		if err := site.validate(); err != nil {
			return nil, errs.Config(fmt.Sprintf("site %q", key), err)
		}
	}
	if s.DedupThreshold == 0 {
		s.DedupThreshold = DefaultDedupThreshold
	}
	return &s, nil
}

// Keys returns the site keys in a deterministic order
func (s *Sites) Keys() []string {
	keys := make([]string, 0, len(s.Sites))
	for k := range s.Sites {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (st *Site) validate() error {
	if st.StartURL == "" {
		return fmt.Errorf("start_url is required")
	}
	if len(st.Selectors.Container) == 0 {
		return fmt.Errorf("selectors.container is required")
	}
	if len(st.FetchMethods) == 0 {
		st.FetchMethods = []string{"http", "browser"}
	}
	for _, m := range st.FetchMethods {
		if !validMethods[m] {
			return fmt.Errorf("unknown fetch method %q", m)
		}
	}
	if st.Pagination.MaxPages < 0 {
		return fmt.Errorf("pagination.max_pages must be >= 0")
	}
	return nil
}
