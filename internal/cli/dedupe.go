package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/property-radar/crawl/internal/dedup"
	"github.com/property-radar/crawl/internal/ui"
)

var (
	dedupeThreshold float64
	dedupePolicy    string
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Report duplicate groups across all stored ledgers",
	Long:  `Dedupe loads the union of every per-site ledger, scores all pairs and prints the transitive duplicate groups with the survivor each policy would keep. The ledgers themselves are never modified.`,
	Example: `propcrawl dedupe
propcrawl dedupe --threshold 0.9 --policy cheapest`,
	RunE: runDedupe,
}

func init() {
	dedupeCmd.Flags().Float64Var(&dedupeThreshold, "threshold", 0, "Similarity threshold (0 uses the configured default)")
	dedupeCmd.Flags().StringVar(&dedupePolicy, "policy", "first-seen", "Survivor policy: first-seen, most-complete, cheapest, newest")
	rootCmd.AddCommand(dedupeCmd)
}

func runDedupe(cmd *cobra.Command, args []string) error {
	a := GetApp()

	listings, err := a.Store.LoadAll()
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		fmt.Println(ui.Info("no stored listings"))
		return nil
	}

	threshold := dedupeThreshold
	if threshold <= 0 {
		threshold = a.Config.DedupThreshold
	}
	resolver := dedup.New(threshold, dedup.PolicyByName(dedupePolicy))
	survivors, groups := resolver.Resolve(listings)

	fmt.Printf("%s %d listings, %d duplicate group(s), %d survivors\n\n",
		ui.Bold("Scanned"), len(listings), len(groups), len(survivors))

	for i, g := range groups {
		fmt.Printf("%s\n", ui.Bold(fmt.Sprintf("Group %d (%d listings)", i+1, len(g.Indices))))
		for _, idx := range g.Indices {
			l := listings[idx]
			marker := "  "
			if idx == g.Survivor {
				marker = ui.Success("✓ ")
			}
			fmt.Printf("  %s%s — %s, %s [%s]\n", marker, l.Title, l.RawPrice, l.Location, l.Site)
		}
		fmt.Println()
	}
	return nil
}
