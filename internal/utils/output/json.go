// Package output exports stored listings in portable formats.
package output

import (
	"encoding/json"
	"os"

	"github.com/property-radar/crawl/pkg/models"
)

// SaveJSON writes an indented JSON export of the listings to filepath
func SaveJSON(listings []models.Listing, filepath string) error {
	content, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, content, 0644)
}
