// Package store persists deduplicated listings into per-site append-only
// CSV ledgers, keyed by content hash, under a cross-process advisory lock.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/internal/errs"
	"github.com/property-radar/crawl/pkg/models"
)

// Store writes listing ledgers under a single data directory. One advisory
// lock file guards every read-modify-write across processes.
type Store struct {
	dataDir     string
	lockWait    time.Duration
	skipSummary bool
}

// Option configures a Store
type Option func(*Store)

// WithLockWait bounds how long Append waits for the advisory lock
func WithLockWait(d time.Duration) Option {
	return func(s *Store) { s.lockWait = d }
}

// WithoutSummary disables summary regeneration after appends
func WithoutSummary() Option {
	return func(s *Store) { s.skipSummary = true }
}

// New creates a store rooted at dataDir, creating the directory if needed
func New(dataDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errs.Config(fmt.Sprintf("cannot create data directory %s", dataDir), err)
	}
	s := &Store{
		dataDir:  dataDir,
		lockWait: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Append writes the listings whose Hash is not yet present in the site's
// ledger and returns the number of rows added. The whole read-modify-write
// happens inside the cross-process lock; re-appending an identical set adds
// zero rows. After a non-empty append the derived summary views are
// regenerated; a summary failure is logged and never undoes the append.
func (s *Store) Append(ctx context.Context, siteKey string, listings []models.Listing) (int, error) {
	if siteKey == "" {
		return 0, errs.Config("site key required for append", nil)
	}

	lock, err := acquireLock(ctx, s.lockPath(), s.lockWait)
	if err != nil {
		return 0, err
	}
	defer lock.release()

	ledger := newLedger(s.ledgerPath(siteKey))
	existing, err := ledger.hashes()
	if err != nil {
		return 0, err
	}

	fresh := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Hash == "" {
			l.ComputeHash()
		}
		if existing[l.Hash] {
			continue
		}
		existing[l.Hash] = true
		fresh = append(fresh, l)
	}

	if len(fresh) > 0 {
		if err := ledger.append(fresh); err != nil {
			return 0, err
		}
	}

	log.Info().
		Str("site", siteKey).
		Int("offered", len(listings)).
		Int("appended", len(fresh)).
		Msg("Ledger append completed")

	if len(fresh) > 0 && !s.skipSummary {
		if err := RegenerateSummaries(s.dataDir); err != nil {
			log.Warn().Err(err).Msg("Summary regeneration failed; ledger rows remain durable")
		}
	}

	return len(fresh), nil
}

// Load reads every row of the site's ledger. A missing ledger yields an
// empty slice, not an error.
func (s *Store) Load(siteKey string) ([]models.Listing, error) {
	return newLedger(s.ledgerPath(siteKey)).load()
}

// LoadAll reads the union of all ledgers under the data directory
func (s *Store) LoadAll() ([]models.Listing, error) {
	paths, err := ledgerPaths(s.dataDir)
	if err != nil {
		return nil, err
	}
	var all []models.Listing
	for _, p := range paths {
		rows, err := newLedger(p).load()
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func (s *Store) lockPath() string {
	return filepath.Join(s.dataDir, ".propcrawl.lock")
}

func (s *Store) ledgerPath(siteKey string) string {
	return filepath.Join(s.dataDir, "listings_"+siteKey+".csv")
}
