package scheduler

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/property-radar/crawl/pkg/models"
)

// progressSink receives counter snapshots after every site transition
type progressSink interface {
	advance(p models.Progress)
}

type noopBar struct{}

func (noopBar) advance(models.Progress) {}

type terminalBar struct {
	bar *progressbar.ProgressBar
}

func (t *terminalBar) advance(p models.Progress) {
	t.bar.Describe(describeProgress(p))
	_ = t.bar.Set(p.Completed + p.Failed)
}

func (s *Scheduler) newProgressBar(total int) progressSink {
	if !s.opts.ShowProgress || total == 0 {
		return noopBar{}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("crawling"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &terminalBar{bar: bar}
}

func describeProgress(p models.Progress) string {
	desc := fmt.Sprintf("crawling (%d ok, %d failed)", p.Completed, p.Failed)
	if p.ETASeconds > 0 {
		desc += fmt.Sprintf(" ~%s left", (time.Duration(p.ETASeconds) * time.Second).Round(time.Second))
	}
	return desc
}
