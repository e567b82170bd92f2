package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/property-radar/crawl/pkg/models"
)

// ledgerHeader is the canonical column order. Changing it breaks every
// existing ledger, so new fields go at the end only.
var ledgerHeader = []string{
	"hash", "title", "raw_price", "price", "location", "property_type",
	"bedrooms", "bathrooms", "description", "images", "url", "site",
	"latitude", "longitude", "scraped_at",
}

const imageSeparator = "|"

// ledger is one site's append-only CSV sheet
type ledger struct {
	path string
}

func newLedger(path string) *ledger {
	return &ledger{path: path}
}

// hashes returns the set of Hash values already present. A missing file
// means an empty ledger.
func (l *ledger) hashes() (map[string]bool, error) {
	set := make(map[string]bool)
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, fmt.Errorf("opening ledger %s: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading ledger %s: %w", l.path, err)
		}
		if first {
			first = false
			continue
		}
		if len(row) > 0 && row[0] != "" {
			set[row[0]] = true
		}
	}
	return set, nil
}

// append writes listings as new rows, creating the file with the canonical
// header when it does not exist yet. Rows are flushed before return so a
// partial row is never left visible.
func (l *ledger) append(listings []models.Listing) error {
	_, statErr := os.Stat(l.path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", l.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(ledgerHeader); err != nil {
			return err
		}
	}
	for i := range listings {
		if err := w.Write(rowOf(&listings[i])); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing ledger %s: %w", l.path, err)
	}
	return f.Sync()
}

// load reads every data row back into listings
func (l *ledger) load() ([]models.Listing, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ledger %s: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(ledgerHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", l.path, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	listings := make([]models.Listing, 0, len(rows)-1)
	for _, row := range rows[1:] {
		listings = append(listings, listingOf(row))
	}
	return listings, nil
}

func rowOf(l *models.Listing) []string {
	lat, lon := "", ""
	if l.HasCoords {
		lat = strconv.FormatFloat(l.Latitude, 'f', -1, 64)
		lon = strconv.FormatFloat(l.Longitude, 'f', -1, 64)
	}
	return []string{
		l.Hash,
		l.Title,
		l.RawPrice,
		strconv.FormatFloat(l.Price, 'f', -1, 64),
		l.Location,
		l.PropertyType,
		strconv.Itoa(l.Bedrooms),
		strconv.Itoa(l.Bathrooms),
		l.Description,
		strings.Join(l.Images, imageSeparator),
		l.URL,
		l.Site,
		lat,
		lon,
		l.ScrapedAt.UTC().Format(time.RFC3339),
	}
}

func listingOf(row []string) models.Listing {
	l := models.Listing{
		Hash:         row[0],
		Title:        row[1],
		RawPrice:     row[2],
		Location:     row[4],
		PropertyType: row[5],
		Description:  row[8],
		URL:          row[10],
		Site:         row[11],
	}
	l.Price, _ = strconv.ParseFloat(row[3], 64)
	l.Bedrooms, _ = strconv.Atoi(row[6])
	l.Bathrooms, _ = strconv.Atoi(row[7])
	if row[9] != "" {
		l.Images = strings.Split(row[9], imageSeparator)
	}
	if row[12] != "" && row[13] != "" {
		l.Latitude, _ = strconv.ParseFloat(row[12], 64)
		l.Longitude, _ = strconv.ParseFloat(row[13], 64)
		l.HasCoords = true
	}
	l.ScrapedAt, _ = time.Parse(time.RFC3339, row[14])
	return l
}

// ledgerPaths lists every per-site ledger under dir in stable order
func ledgerPaths(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "listings_*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
