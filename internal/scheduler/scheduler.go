// Package scheduler batches the configured sites and drives them through the
// crawl pipeline sequentially, with pause/resume at batch boundaries.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/internal/retry"
	"github.com/property-radar/crawl/pkg/models"
)

// SiteFunc runs one site end to end: walk the index, enrich, dedup, store.
// An error marks the site failed for this attempt.
type SiteFunc func(ctx context.Context, siteKey string) error

// SiteRef is the scheduling view of a configured site
type SiteRef struct {
	Key      string
	Priority int
}

// Options tunes a scheduler run
type Options struct {
	// BatchSize overrides the size policy when > 0
	BatchSize int
	// Cooldown is the fixed wait before a batch's single retry
	Cooldown time.Duration
	// PausePoll is how often the resume flag is checked while paused
	PausePoll time.Duration
	// ShowProgress renders a live terminal progress bar
	ShowProgress bool
}

// Scheduler executes batches strictly one after another. A batch is the only
// interruption point: pause and stop both latch and take effect when the
// current batch finishes.
type Scheduler struct {
	runner SiteFunc
	opts   Options

	mu      sync.Mutex
	run     *models.Run
	status  map[string]models.SiteStatus
	paused  bool
	stopped bool

	completedDur time.Duration
	completedN   int
}

// New creates a scheduler over the given per-site runner
func New(runner SiteFunc, opts Options) *Scheduler {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 30 * time.Second
	}
	if opts.PausePoll <= 0 {
		opts.PausePoll = 2 * time.Second
	}
	return &Scheduler{
		runner: runner,
		opts:   opts,
		status: make(map[string]models.SiteStatus),
	}
}

// BatchSizeFor returns the batch size for n sites absent an override:
// small site lists run as one batch, larger lists are chunked so a single
// batch never grows past 20.
func BatchSizeFor(n, override int) int {
	if override > 0 {
		return override
	}
	switch {
	case n <= 10:
		if n < 1 {
			return 1
		}
		return n
	case n <= 30:
		return 10
	case n <= 50:
		return 15
	default:
		return 20
	}
}

// PlanBatches stable-sorts sites ascending by priority and chunks them.
// Concatenating the returned batches reproduces the sorted site order.
func PlanBatches(sites []SiteRef, override int) []models.Batch {
	if len(sites) == 0 {
		return nil
	}

	ordered := make([]SiteRef, len(sites))
	copy(ordered, sites)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	size := BatchSizeFor(len(ordered), override)
	var batches []models.Batch
	for start := 0; start < len(ordered); start += size {
		end := start + size
		if end > len(ordered) {
			end = len(ordered)
		}
		keys := make([]string, 0, end-start)
		for _, s := range ordered[start:end] {
			keys = append(keys, s.Key)
		}
		batches = append(batches, models.Batch{
			Number: len(batches) + 1,
			Sites:  keys,
			Status: models.BatchInitializing,
		})
	}
	return batches
}

// Run executes every batch in order and returns the finished run snapshot.
// Individual site failures never abort the run; they are reflected in the
// final progress counters.
func (s *Scheduler) Run(ctx context.Context, sites []SiteRef) (*models.Run, error) {
	batches := PlanBatches(sites, s.opts.BatchSize)

	s.mu.Lock()
	s.run = &models.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Batches:   batches,
	}
	s.status = make(map[string]models.SiteStatus, len(sites))
	for _, b := range batches {
		for _, key := range b.Sites {
			s.status[key] = models.SitePending
		}
	}
	s.recomputeProgressLocked()
	runID := s.run.ID
	s.mu.Unlock()

	log.Info().
		Str("run_id", runID).
		Int("sites", len(sites)).
		Int("batches", len(batches)).
		Msg("Run started")

	bar := s.newProgressBar(len(sites))

	for i := range batches {
		if !s.waitAtBoundary(ctx) {
			log.Info().Str("run_id", runID).Msg("Run stopped at batch boundary")
			break
		}

		s.setBatchStatus(i, models.BatchInProgress)
		s.executeBatch(ctx, &batches[i], bar)
		s.setBatchStatus(i, models.BatchCompleted)
	}

	s.mu.Lock()
	s.run.Batches = batches
	s.recomputeProgressLocked()
	snapshot := *s.run
	s.mu.Unlock()

	logRunSummary(&snapshot)
	return &snapshot, nil
}

// executeBatch runs every site in the batch, then retries the failed ones
// exactly once after a fixed cooldown. Sites still failing after the retry
// stay failed; the run moves on.
func (s *Scheduler) executeBatch(ctx context.Context, batch *models.Batch, bar progressSink) {
	log.Info().Int("batch", batch.Number).Strs("sites", batch.Sites).Msg("Batch started")

	// retry.Once gives the batch exactly one second chance, after a fixed
	// cooldown, covering only the sites that failed the first attempt.
	pending := batch.Sites
	err := retry.Once(ctx, s.opts.Cooldown, func() error {
		for _, key := range pending {
			s.setSiteStatus(key, models.SitePending)
		}
		failed := s.runSitesSupervised(ctx, pending, bar)
		if len(failed) > 0 {
			pending = failed
			return fmt.Errorf("batch %d: %d site(s) failed", batch.Number, len(failed))
		}
		return nil
	})
	if err != nil {
		log.Error().Int("batch", batch.Number).Err(err).Msg("Batch retry exhausted")
	}

	log.Info().Int("batch", batch.Number).Msg("Batch finished")
}

// runSitesSupervised processes sites sequentially, each inside a supervised
// goroutine so a panicking site extractor downs only its own site, never the
// scheduler. Returns the keys that failed.
func (s *Scheduler) runSitesSupervised(ctx context.Context, keys []string, bar progressSink) []string {
	var failed []string
	for _, key := range keys {
		if ctx.Err() != nil {
			failed = append(failed, key)
			s.setSiteStatus(key, models.SiteFailed)
			continue
		}

		s.setSiteStatus(key, models.SiteInProgress)
		started := time.Now()

		err := s.superviseSite(ctx, key)
		if err != nil {
			log.Warn().Str("site", key).Err(err).Msg("Site failed")
			s.setSiteStatus(key, models.SiteFailed)
			failed = append(failed, key)
		} else {
			s.recordCompletion(key, time.Since(started))
		}
		bar.advance(s.Progress())
	}
	return failed
}

func (s *Scheduler) superviseSite(ctx context.Context, key string) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("site %s panicked: %v", key, r)
			}
		}()
		done <- s.runner(ctx, key)
	}()
	return <-done
}

// Pause latches a pause request. The current batch always runs to completion;
// the next batch waits until Resume or Stop.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	if s.run != nil {
		s.run.Paused = true
	}
	s.mu.Unlock()
	log.Info().Msg("Pause latched; takes effect at next batch boundary")
}

// Resume clears a pause latch
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	if s.run != nil {
		s.run.Paused = false
	}
	s.mu.Unlock()
}

// Stop ends the run at the next batch boundary, including while paused
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// waitAtBoundary blocks while paused, polling the resume flag. It reports
// whether the run should continue.
func (s *Scheduler) waitAtBoundary(ctx context.Context) bool {
	for {
		s.mu.Lock()
		stopped, paused := s.stopped, s.paused
		s.mu.Unlock()

		if stopped || ctx.Err() != nil {
			return false
		}
		if !paused {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.opts.PausePoll):
		}
	}
}

// Progress returns a consistent counter snapshot. Total always equals
// completed + failed + in_progress + pending.
func (s *Scheduler) Progress() models.Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeProgressLocked()
	if s.run == nil {
		return models.Progress{}
	}
	return s.run.Progress
}

func (s *Scheduler) setSiteStatus(key string, st models.SiteStatus) {
	s.mu.Lock()
	s.status[key] = st
	s.recomputeProgressLocked()
	s.mu.Unlock()
}

func (s *Scheduler) recordCompletion(key string, d time.Duration) {
	s.mu.Lock()
	s.status[key] = models.SiteCompleted
	s.completedDur += d
	s.completedN++
	s.recomputeProgressLocked()
	s.mu.Unlock()
}

func (s *Scheduler) setBatchStatus(i int, st models.BatchStatus) {
	s.mu.Lock()
	if s.run != nil && i < len(s.run.Batches) {
		s.run.Batches[i].Status = st
	}
	s.mu.Unlock()
}

// recomputeProgressLocked rebuilds the counters and ETA from site statuses.
// ETA is the average wall time per completed site times the remaining count.
func (s *Scheduler) recomputeProgressLocked() {
	if s.run == nil {
		return
	}
	var p models.Progress
	for _, st := range s.status {
		p.Total++
		switch st {
		case models.SiteCompleted:
			p.Completed++
		case models.SiteFailed:
			p.Failed++
		case models.SiteInProgress:
			p.InProgress++
		default:
			p.Pending++
		}
	}
	if s.completedN > 0 {
		avg := s.completedDur.Seconds() / float64(s.completedN)
		p.ETASeconds = avg * float64(p.Pending+p.InProgress)
	}
	s.run.Progress = p
}

func logRunSummary(run *models.Run) {
	p := run.Progress
	evt := log.Info()
	if p.Completed == 0 && p.Failed == 0 {
		evt = log.Warn()
	}
	evt.
		Str("run_id", run.ID).
		Int("completed", p.Completed).
		Int("failed", p.Failed).
		Int("pending", p.Pending).
		Dur("elapsed", time.Since(run.StartedAt)).
		Msg("Run finished")
}
