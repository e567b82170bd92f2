package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/property-radar/crawl/internal/app"
	"github.com/property-radar/crawl/internal/config"
	"github.com/property-radar/crawl/internal/scheduler"
	"github.com/property-radar/crawl/internal/ui"
	"github.com/property-radar/crawl/internal/utils/headers"
	"github.com/property-radar/crawl/pkg/models"
)

var (
	runEnrich      bool
	runImages      bool
	runDedupPolicy string
	runHeaders     []string
	runNoProgress  bool
)

var runCmd = &cobra.Command{
	Use:   "run [site...]",
	Short: "Crawl the configured sites in priority batches",
	Long:  `Run walks each site's listing index, optionally enriches records from detail pages, resolves duplicates and appends new rows to the per-site ledgers. With no arguments every configured site is crawled; otherwise only the named sites run.`,
	Example: `propcrawl run
propcrawl run lekkihomes
# enrich from detail pages and keep the cheapest duplicate
propcrawl run --enrich --dedup-policy cheapest`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runEnrich, "enrich", false, "Visit each listing's detail page for extra fields")
	runCmd.Flags().BoolVar(&runImages, "images", false, "Download listing photos after storing")
	runCmd.Flags().StringVar(&runDedupPolicy, "dedup-policy", "first-seen", "Survivor policy: first-seen, most-complete, cheapest, newest")
	runCmd.Flags().StringArrayVarP(&runHeaders, "header", "H", nil, "Extra request header (Name: Value), repeatable")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "Disable the live progress bar")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a := GetApp()

	sites, err := config.LoadSites(a.Config.SitesFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pipeline, err := app.NewPipeline(ctx, a, sites, app.PipelineOptions{
		Enrich:         runEnrich,
		DownloadImages: runImages,
		DedupPolicy:    runDedupPolicy,
		Headers:        headers.Parse(runHeaders),
	})
	if err != nil {
		return err
	}

	refs, err := pipeline.SiteRefs(args)
	if err != nil {
		return err
	}

	batchSize := a.Config.BatchSize
	if batchSize == 0 {
		batchSize = sites.BatchSize
	}
	sched := scheduler.New(pipeline.RunSite, scheduler.Options{
		BatchSize:    batchSize,
		Cooldown:     a.Config.BatchCooldown,
		PausePoll:    a.Config.PausePoll,
		ShowProgress: !runNoProgress && !a.Config.JSONLog,
	})

	// First interrupt stops cleanly at the batch boundary; the second kills
	// the process the usual way.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		log.Warn().Msg("Interrupt received; stopping at batch boundary (interrupt again to force quit)")
		sched.Stop()
		<-sigCh
		os.Exit(1)
	}()

	run, err := sched.Run(ctx, refs)
	if err != nil {
		return err
	}

	printRunSummary(run)
	return nil
}

func printRunSummary(run *models.Run) {
	p := run.Progress
	fmt.Printf("\n%s\n", ui.Bold("Run "+run.ID))
	fmt.Printf("  %s  %d\n", ui.Success("completed"), p.Completed)
	if p.Failed > 0 {
		fmt.Printf("  %s     %d\n", ui.Error("failed"), p.Failed)
	}
	if p.Pending > 0 {
		fmt.Printf("  %s    %d (stopped before finish)\n", ui.Info("pending"), p.Pending)
	}
	for _, b := range run.Batches {
		fmt.Printf("  batch %d: %d site(s), %s\n", b.Number, len(b.Sites), b.Status)
	}
	fmt.Printf("  elapsed: %s\n", time.Since(run.StartedAt).Round(time.Second))
	if p.Completed == 0 && p.Failed == 0 {
		fmt.Println(ui.Info("  no sites were crawled"))
	}
}
