package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
	"unicode"
)

// Listing represents one structured property record extracted from a listing site
type Listing struct {
	Title        string    `json:"title"`
	RawPrice     string    `json:"raw_price"`
	Price        float64   `json:"price,omitempty"`
	Location     string    `json:"location"`
	PropertyType string    `json:"property_type,omitempty"`
	Bedrooms     int       `json:"bedrooms,omitempty"`
	Bathrooms    int       `json:"bathrooms,omitempty"`
	Description  string    `json:"description,omitempty"`
	Images       []string  `json:"images,omitempty"`
	URL          string    `json:"url"`
	Site         string    `json:"site"`
	Latitude     float64   `json:"latitude,omitempty"`
	Longitude    float64   `json:"longitude,omitempty"`
	HasCoords    bool      `json:"has_coords,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at"`
	Hash         string    `json:"hash"`
}

// ComputeHash fills the Hash field from the listing's identity fields and
// returns it. The same logical property always produces the same hash across
// repeated scrapes, so the hash doubles as the idempotency key in storage.
func (l *Listing) ComputeHash() string {
	l.Hash = Fingerprint(l.Title, l.RawPrice, l.Location)
	return l.Hash
}

// FieldCount returns the number of populated fields, used by the
// "most complete survivor" dedup policy.
func (l *Listing) FieldCount() int {
	n := 0
	for _, s := range []string{l.Title, l.RawPrice, l.Location, l.PropertyType, l.Description, l.URL} {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	if l.Price > 0 {
		n++
	}
	if l.Bedrooms > 0 {
		n++
	}
	if l.Bathrooms > 0 {
		n++
	}
	if len(l.Images) > 0 {
		n++
	}
	if l.HasCoords {
		n++
	}
	return n
}

// Fingerprint computes a deterministic content hash over the normalized
// (title, price, location) triple. Identity is insensitive to case, spacing
// and punctuation so cosmetic re-renders of the same listing collapse to
// one hash.
func Fingerprint(title, price, location string) string {
	key := normalizeText(title) + "|" + digitsOnly(price) + "|" + normalizeText(location)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// normalizeText lowercases and keeps only letters, digits and single spaces
func normalizeText(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// digitsOnly strips everything but digits, so "₦25,000,000" and "25000000 NGN"
// normalize identically
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Page represents the raw result of fetching a single URL
type Page struct {
	URL          string            `json:"url"`
	StatusCode   int               `json:"status_code"`
	Title        string            `json:"title,omitempty"`
	HTML         string            `json:"html,omitempty"`
	Structured   []json.RawMessage `json:"structured,omitempty"`
	Method       string            `json:"method"`
	FetchedAt    time.Time         `json:"fetched_at"`
	ResponseTime int64             `json:"response_time_ms"`
}

// BatchStatus tracks the lifecycle of a scheduling batch
type BatchStatus string

const (
	BatchInitializing BatchStatus = "initializing"
	BatchInProgress   BatchStatus = "in_progress"
	BatchCompleted    BatchStatus = "completed"
)

// Batch is a bounded slice of the full site list executed as one unit
type Batch struct {
	Number int         `json:"number"`
	Sites  []string    `json:"sites"`
	Status BatchStatus `json:"status"`
}

// SiteStatus tracks one site's position in a run
type SiteStatus string

const (
	SitePending    SiteStatus = "pending"
	SiteInProgress SiteStatus = "in_progress"
	SiteCompleted  SiteStatus = "completed"
	SiteFailed     SiteStatus = "failed"
)

// Progress is an aggregate counter snapshot for a run.
// Total == Completed + Failed + InProgress + Pending at every observable point.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	InProgress int     `json:"in_progress"`
	Pending    int     `json:"pending"`
	ETASeconds float64 `json:"eta_seconds"`
}

// Run is a snapshot of one scrape session
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Batches   []Batch   `json:"batches"`
	Progress  Progress  `json:"progress"`
	Paused    bool      `json:"paused"`
}
