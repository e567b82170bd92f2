package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/property-radar/crawl/internal/errs"
	"github.com/property-radar/crawl/internal/ui"
	"github.com/property-radar/crawl/internal/utils/output"
	"github.com/property-radar/crawl/pkg/models"
)

var (
	exportFormat string
	exportSite   string
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export stored listings to JSON, markdown or HTML",
	Example: `propcrawl export listings.json
propcrawl export --site lekkihomes --format markdown report.md
propcrawl export --format html report.html`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json, markdown, html")
	exportCmd.Flags().StringVar(&exportSite, "site", "", "Export only this site's ledger")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a := GetApp()
	path := args[0]

	var listings []models.Listing
	var err error
	if exportSite != "" {
		listings, err = a.Store.Load(exportSite)
	} else {
		listings, err = a.Store.LoadAll()
	}
	if err != nil {
		return err
	}
	if len(listings) == 0 {
		fmt.Println(ui.Info("no stored listings to export"))
		return nil
	}

	switch exportFormat {
	case "json":
		err = output.SaveJSON(listings, path)
	case "markdown", "md":
		err = output.SaveMarkdown(listings, path)
	case "html":
		err = output.SaveHTML(listings, path)
	default:
		return errs.Config("unknown export format: "+exportFormat, nil)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %d listing(s) to %s\n", ui.Success("Exported"), len(listings), path)
	return nil
}
