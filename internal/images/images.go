// Package images downloads listing photos into the data directory using a
// bounded worker pool.
package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/pkg/models"
)

// Result reports one attempted download
type Result struct {
	URL  string
	Path string
	Err  error
}

// Downloader fetches listing images concurrently. Files land under
// <dir>/images/<listing-hash>/, named by position.
type Downloader struct {
	client  *http.Client
	dir     string
	workers int
}

// New creates a downloader writing under dir with the given concurrency
func New(client *http.Client, dir string, workers int) *Downloader {
	if workers <= 0 {
		workers = 5
	}
	if workers > 50 {
		workers = 50
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Downloader{client: client, dir: dir, workers: workers}
}

type job struct {
	url  string
	dest string
}

// DownloadAll fetches every image of every listing through the worker pool
// and returns one result per attempted URL. Failures never abort the batch.
func (d *Downloader) DownloadAll(ctx context.Context, listings []models.Listing) []Result {
	var queue []job
	for i := range listings {
		l := &listings[i]
		if l.Hash == "" {
			continue
		}
		for n, imgURL := range l.Images {
			queue = append(queue, job{
				url:  imgURL,
				dest: filepath.Join(d.dir, "images", l.Hash, fmt.Sprintf("%02d%s", n+1, extOf(imgURL))),
			})
		}
	}
	if len(queue) == 0 {
		return nil
	}

	jobs := make(chan job, len(queue))
	results := make(chan Result, len(queue))

	var wg sync.WaitGroup
	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go d.worker(ctx, jobs, results, &wg)
	}

	for _, j := range queue {
		jobs <- j
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	all := make([]Result, 0, len(queue))
	failed := 0
	for r := range results {
		if r.Err != nil {
			failed++
		}
		all = append(all, r)
	}

	log.Info().
		Int("images", len(queue)).
		Int("failed", failed).
		Msg("Image download batch finished")
	return all
}

func (d *Downloader) worker(ctx context.Context, jobs <-chan job, results chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range jobs {
		if ctx.Err() != nil {
			results <- Result{URL: j.url, Err: ctx.Err()}
			continue
		}
		err := d.fetchOne(ctx, j)
		if err != nil {
			log.Debug().Str("url", j.url).Err(err).Msg("Image download failed")
		}
		results <- Result{URL: j.url, Path: j.dest, Err: err}
	}
}

func (d *Downloader) fetchOne(ctx context.Context, j job) error {
	// Already downloaded on a previous run
	if fi, err := os.Stat(j.dest); err == nil && fi.Size() > 0 {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d for %s", resp.StatusCode, j.url)
	}

	if err := os.MkdirAll(filepath.Dir(j.dest), 0o755); err != nil {
		return err
	}
	tmp := j.dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, j.dest)
}

func extOf(rawURL string) string {
	ext := strings.ToLower(path.Ext(strings.SplitN(rawURL, "?", 2)[0]))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif":
		return ext
	default:
		return ".jpg"
	}
}
