package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/property-radar/crawl/internal/config"
	"github.com/property-radar/crawl/internal/scheduler"
	"github.com/property-radar/crawl/internal/ui"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Validate and list the configured sites",
	Long:  `Sites loads the declarative YAML site configuration, fails fast on any invalid entry and prints the sites in the order and batches a run would use.`,
	RunE:  runSites,
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}

func runSites(cmd *cobra.Command, args []string) error {
	a := GetApp()

	sites, err := config.LoadSites(a.Config.SitesFile)
	if err != nil {
		return err
	}

	refs := make([]scheduler.SiteRef, 0, len(sites.Sites))
	for _, key := range sites.Keys() {
		refs = append(refs, scheduler.SiteRef{Key: key, Priority: sites.Sites[key].Priority})
	}

	batchSize := a.Config.BatchSize
	if batchSize == 0 {
		batchSize = sites.BatchSize
	}
	batches := scheduler.PlanBatches(refs, batchSize)

	fmt.Printf("%s %d site(s) in %d batch(es)\n\n", ui.Bold("Configured:"), len(refs), len(batches))
	for _, b := range batches {
		fmt.Printf("%s\n", ui.Bold(fmt.Sprintf("Batch %d", b.Number)))
		for _, key := range b.Sites {
			site := sites.Sites[key]
			fmt.Printf("  %-20s priority=%d  methods=%s  %s\n",
				ui.Success(key), site.Priority,
				strings.Join(site.FetchMethods, "→"), site.StartURL)
		}
	}
	return nil
}
