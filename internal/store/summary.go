package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/property-radar/crawl/pkg/models"
)

// aggregate holds running stats for one summary bucket
type aggregate struct {
	count    int
	priced   int
	sum      float64
	min, max float64
}

func (a *aggregate) add(l *models.Listing) {
	a.count++
	if l.Price <= 0 {
		return
	}
	if a.priced == 0 || l.Price < a.min {
		a.min = l.Price
	}
	if l.Price > a.max {
		a.max = l.Price
	}
	a.priced++
	a.sum += l.Price
}

// RegenerateSummaries rebuilds the derived views from the union of every
// ledger under dir: listing counts and price stats per site and per
// property type. The views are plain derived data; callers treat a failure
// here as non-fatal.
func RegenerateSummaries(dir string) error {
	paths, err := ledgerPaths(dir)
	if err != nil {
		return err
	}

	bySite := make(map[string]*aggregate)
	byType := make(map[string]*aggregate)
	for _, p := range paths {
		rows, err := newLedger(p).load()
		if err != nil {
			return err
		}
		for i := range rows {
			l := &rows[i]
			bucket(bySite, l.Site).add(l)
			key := l.PropertyType
			if key == "" {
				key = "unknown"
			}
			bucket(byType, key).add(l)
		}
	}

	if err := writeSummary(filepath.Join(dir, "summary_by_site.csv"), "site", bySite); err != nil {
		return err
	}
	return writeSummary(filepath.Join(dir, "summary_by_type.csv"), "property_type", byType)
}

func bucket(m map[string]*aggregate, key string) *aggregate {
	a, ok := m[key]
	if !ok {
		a = &aggregate{}
		m[key] = a
	}
	return a
}

// writeSummary replaces the view atomically via a temp-file rename, so a
// crash mid-regeneration never leaves a truncated view behind.
func writeSummary(path, keyColumn string, agg map[string]*aggregate) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating summary %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	header := []string{keyColumn, "listings", "priced", "avg_price", "min_price", "max_price"}
	writeErr := w.Write(header)

	keys := make([]string, 0, len(agg))
	for k := range agg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if writeErr != nil {
			break
		}
		a := agg[k]
		avg := 0.0
		if a.priced > 0 {
			avg = a.sum / float64(a.priced)
		}
		writeErr = w.Write([]string{
			k,
			strconv.Itoa(a.count),
			strconv.Itoa(a.priced),
			strconv.FormatFloat(avg, 'f', 2, 64),
			strconv.FormatFloat(a.min, 'f', 2, 64),
			strconv.FormatFloat(a.max, 'f', 2, 64),
		})
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if err := f.Close(); writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing summary %s: %w", path, writeErr)
	}
	return os.Rename(tmp, path)
}
