package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/property-radar/crawl/pkg/models"
)

func fixtures() []models.Listing {
	return []models.Listing{
		{
			Title:    "3 Bedroom Flat | Lekki Phase 1",
			RawPrice: "₦25,000,000",
			Price:    25000000,
			Location: "Lekki",
			Bedrooms: 3,
			URL:      "https://lekkihomes.example/flat-1",
			Site:     "lekkihomes",
			Hash:     "abc123",
		},
		{
			Title:    "5 Bedroom Duplex",
			RawPrice: "₦150,000,000",
			Price:    150000000,
			Location: "Ikoyi",
			Bedrooms: 5,
			URL:      "https://ikoyiprop.example/duplex-9",
			Site:     "ikoyiprop",
			Hash:     "def456",
		},
	}
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := SaveJSON(fixtures(), path); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var back []models.Listing
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(back) != 2 || back[0].Hash != "abc123" {
		t.Errorf("round trip mangled: %+v", back)
	}
}

func TestSaveMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.md")
	if err := SaveMarkdown(fixtures(), path); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(raw)

	// Sites come out alphabetically, each under its own heading
	if !strings.Contains(content, "## ikoyiprop") || !strings.Contains(content, "## lekkihomes") {
		t.Error("site headings missing")
	}
	if strings.Index(content, "## ikoyiprop") > strings.Index(content, "## lekkihomes") {
		t.Error("sites not sorted")
	}
	// The pipe in the title must not break the table
	if !strings.Contains(content, "3 Bedroom Flat \\| Lekki Phase 1") {
		t.Error("pipe in title not escaped")
	}
}

func TestSaveHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.html")
	if err := SaveHTML(fixtures(), path); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(raw)
	if !strings.Contains(content, "<h2>lekkihomes</h2>") {
		t.Error("site section missing")
	}
	if !strings.Contains(content, `href="https://ikoyiprop.example/duplex-9"`) {
		t.Error("listing link missing")
	}
}
