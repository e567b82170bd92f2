package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/property-radar/crawl/pkg/models"
)

// SaveMarkdown writes the listings as a markdown table grouped by site
func SaveMarkdown(listings []models.Listing, filepath string) error {
	var b strings.Builder
	b.WriteString("# Property listings\n\n")
	fmt.Fprintf(&b, "%d listings\n\n", len(listings))

	bySite := groupBySite(listings)
	for _, site := range siteOrder(bySite) {
		fmt.Fprintf(&b, "## %s\n\n", site)
		b.WriteString("| Title | Price | Location | Beds | Baths | Link |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, l := range bySite[site] {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | [view](%s) |\n",
				cell(l.Title), cell(l.RawPrice), cell(l.Location),
				countCell(l.Bedrooms), countCell(l.Bathrooms), l.URL)
		}
		b.WriteString("\n")
	}

	return os.WriteFile(filepath, []byte(b.String()), 0644)
}

// cell escapes pipes so free-text fields cannot break the table
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func countCell(n int) string {
	if n <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d", n)
}
