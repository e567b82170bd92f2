package dedup

import "github.com/property-radar/crawl/pkg/models"

// SurvivorPolicy picks one index from a duplicate group. group is sorted
// ascending, so group[0] is the earliest-seen record.
type SurvivorPolicy func(listings []models.Listing, group []int) int

// FirstSeen keeps the record that entered the result set first
func FirstSeen(_ []models.Listing, group []int) int {
	return group[0]
}

// MostComplete keeps the record with the most populated fields, ties going
// to the earliest
func MostComplete(listings []models.Listing, group []int) int {
	best := group[0]
	bestCount := listings[best].FieldCount()
	for _, idx := range group[1:] {
		if c := listings[idx].FieldCount(); c > bestCount {
			best, bestCount = idx, c
		}
	}
	return best
}

// Cheapest keeps the lowest-priced record; records without a parsed price
// never win over priced ones
func Cheapest(listings []models.Listing, group []int) int {
	best := -1
	for _, idx := range group {
		p := listings[idx].Price
		if p <= 0 {
			continue
		}
		if best == -1 || p < listings[best].Price {
			best = idx
		}
	}
	if best == -1 {
		return group[0]
	}
	return best
}

// Newest keeps the most recently scraped record, ties going to the earliest
func Newest(listings []models.Listing, group []int) int {
	best := group[0]
	for _, idx := range group[1:] {
		if listings[idx].ScrapedAt.After(listings[best].ScrapedAt) {
			best = idx
		}
	}
	return best
}

// PolicyByName maps a config value to a policy, defaulting to first-seen
func PolicyByName(name string) SurvivorPolicy {
	switch name {
	case "most-complete":
		return MostComplete
	case "cheapest":
		return Cheapest
	case "newest":
		return Newest
	default:
		return FirstSeen
	}
}
