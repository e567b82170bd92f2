package walker

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/property-radar/crawl/internal/config"
	urlutil "github.com/property-radar/crawl/internal/utils/url"
	"github.com/property-radar/crawl/pkg/models"
)

var (
	numberRe = regexp.MustCompile(`\d+`)
	priceRe  = regexp.MustCompile(`[\d][\d,.]*`)
)

// ExtractListings applies the site's selector table to one page.
// Every selector field is an ordered fallback chain: the first selector
// producing a non-empty value wins. Extraction never fails hard; a card
// missing fields yields a listing with blanks.
func ExtractListings(doc *goquery.Document, pageURL string, site *config.Site) []models.Listing {
	containers := firstMatching(doc.Selection, site.Selectors.Container)
	if containers == nil {
		return nil
	}

	now := time.Now()
	var listings []models.Listing

	containers.Each(func(_ int, card *goquery.Selection) {
		l := models.Listing{
			Title:        textOf(card, site.Selectors.Title),
			RawPrice:     textOf(card, site.Selectors.Price),
			Location:     textOf(card, site.Selectors.Location),
			PropertyType: textOf(card, site.Selectors.Type),
			Site:         site.Key,
			ScrapedAt:    now,
		}
		l.Price = ParsePrice(l.RawPrice)
		l.Bedrooms = parseCount(textOf(card, site.Selectors.Bedrooms))
		l.Bathrooms = parseCount(textOf(card, site.Selectors.Bathrooms))

		if href := attrOf(card, site.Selectors.Link, "href"); href != "" {
			l.URL = urlutil.ResolveURL(pageURL, href)
		}
		if src := attrOf(card, site.Selectors.Image, "src"); src != "" {
			l.Images = append(l.Images, urlutil.ResolveURL(pageURL, src))
		}

		// Cards with neither a title nor a price are navigation noise
		if l.Title == "" && l.RawPrice == "" {
			return
		}

		l.ComputeHash()
		listings = append(listings, l)
	})

	return listings
}

// firstMatching returns the selection for the first selector in the chain
// that matches at least one node
func firstMatching(root *goquery.Selection, chain config.SelectorSet) *goquery.Selection {
	for _, sel := range chain {
		if found := root.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// textOf returns trimmed text from the first selector yielding any
func textOf(root *goquery.Selection, chain config.SelectorSet) string {
	for _, sel := range chain {
		if text := strings.TrimSpace(root.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// attrOf returns the named attribute from the first selector yielding one.
// When the matched node lacks the attribute, data-src and the node itself
// are tried, covering lazy-loaded images and bare <a> cards.
func attrOf(root *goquery.Selection, chain config.SelectorSet, attr string) string {
	for _, sel := range chain {
		node := root.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if v, ok := node.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if v, ok := node.Attr("data-" + attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	// An <a> container often is the link itself
	if attr == "href" {
		if v, ok := root.Attr("href"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ParsePrice extracts a numeric amount from raw price text like
// "₦25,000,000 per annum"; returns 0 when no number is present
func ParsePrice(raw string) float64 {
	m := priceRe.FindString(raw)
	if m == "" {
		return 0
	}
	m = strings.ReplaceAll(m, ",", "")
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseCount extracts the first integer from text like "3 Bedrooms"
func parseCount(raw string) int {
	m := numberRe.FindString(raw)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
