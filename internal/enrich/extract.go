package enrich

import (
	"encoding/json"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/property-radar/crawl/internal/config"
	"github.com/property-radar/crawl/pkg/models"
)

// The fixed named-field set a detail page can contribute
const (
	FieldTitle       = "title"
	FieldPrice       = "price"
	FieldLocation    = "location"
	FieldType        = "type"
	FieldBedrooms    = "bedrooms"
	FieldBathrooms   = "bathrooms"
	FieldDescription = "description"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
)

// extractor is one strategy for one field; empty string means no value
type extractor func(doc *goquery.Document) string

var mdConverter = md.NewConverter("", true, nil)

// Default selector chains for sites that configure nothing
var defaultDetailSelectors = map[string]config.SelectorSet{
	FieldTitle:       {"h1", ".property-title", `meta[property="og:title"]`},
	FieldPrice:       {".price", ".property-price", `[itemprop="price"]`},
	FieldLocation:    {".location", ".property-location", `[itemprop="address"]`},
	FieldType:        {".property-type", `[itemprop="propertyType"]`},
	FieldBedrooms:    {".bedrooms", `[itemprop="numberOfRooms"]`},
	FieldBathrooms:   {".bathrooms"},
	FieldDescription: {".description", ".property-description", `meta[property="og:description"]`},
}

// ExtractDetailFields applies the ordered extractor strategies for every
// field: configured selectors first, then defaults, then JSON-LD. The first
// strategy producing a non-empty value wins; fields with no value are simply
// absent from the result.
func ExtractDetailFields(html string, site *config.Site) map[string]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	fields := make(map[string]string)
	for _, name := range []string{
		FieldTitle, FieldPrice, FieldLocation, FieldType,
		FieldBedrooms, FieldBathrooms, FieldDescription,
	} {
		for _, ex := range strategiesFor(name, site) {
			if v := ex(doc); v != "" {
				fields[name] = v
				break
			}
		}
	}

	if lat, lon, ok := coordinatesFromJSONLD(doc); ok {
		fields[FieldLatitude] = strconv.FormatFloat(lat, 'f', -1, 64)
		fields[FieldLongitude] = strconv.FormatFloat(lon, 'f', -1, 64)
	}

	return fields
}

// strategiesFor builds the ordered strategy list for one field
func strategiesFor(name string, site *config.Site) []extractor {
	var strategies []extractor
	if set, ok := site.Detail.Fields[name]; ok {
		strategies = append(strategies, selectorExtractor(set, name))
	}
	strategies = append(strategies, selectorExtractor(defaultDetailSelectors[name], name))
	strategies = append(strategies, jsonLDExtractor(name))
	return strategies
}

// selectorExtractor tries each selector in order; meta tags yield their
// content attribute, description selectors yield markdown-converted HTML
func selectorExtractor(set config.SelectorSet, field string) extractor {
	return func(doc *goquery.Document) string {
		for _, sel := range set {
			node := doc.Find(sel).First()
			if node.Length() == 0 {
				continue
			}
			if strings.HasPrefix(sel, "meta") {
				if content, ok := node.Attr("content"); ok && strings.TrimSpace(content) != "" {
					return strings.TrimSpace(content)
				}
				continue
			}
			if field == FieldDescription {
				if inner, err := node.Html(); err == nil {
					if text, err := mdConverter.ConvertString(inner); err == nil && strings.TrimSpace(text) != "" {
						return strings.TrimSpace(text)
					}
				}
			}
			if text := strings.TrimSpace(node.Text()); text != "" {
				return text
			}
		}
		return ""
	}
}

// jsonLD field names per schema.org real-estate vocabularies
var jsonLDKeys = map[string][]string{
	FieldTitle:       {"name"},
	FieldPrice:       {"price"},
	FieldLocation:    {"address"},
	FieldType:        {"@type"},
	FieldDescription: {"description"},
	FieldBedrooms:    {"numberOfRooms", "numberOfBedrooms"},
	FieldBathrooms:   {"numberOfBathroomsTotal"},
}

// jsonLDExtractor pulls a field from the page's JSON-LD blocks
func jsonLDExtractor(field string) extractor {
	return func(doc *goquery.Document) string {
		keys := jsonLDKeys[field]
		if len(keys) == 0 {
			return ""
		}
		result := ""
		doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			var block map[string]interface{}
			if err := json.Unmarshal([]byte(sel.Text()), &block); err != nil {
				return true
			}
			for _, key := range keys {
				if v := stringify(block[key]); v != "" {
					result = v
					return false
				}
			}
			return true
		})
		return result
	}
}

// coordinatesFromJSONLD reads a schema.org geo block when present
func coordinatesFromJSONLD(doc *goquery.Document) (lat, lon float64, ok bool) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var block map[string]interface{}
		if err := json.Unmarshal([]byte(sel.Text()), &block); err != nil {
			return true
		}
		geo, isMap := block["geo"].(map[string]interface{})
		if !isMap {
			return true
		}
		la, laOK := toFloat(geo["latitude"])
		lo, loOK := toFloat(geo["longitude"])
		if laOK && loOK {
			lat, lon, ok = la, lo, true
			return false
		}
		return true
	})
	return lat, lon, ok
}

// MergeFields merges detail-page fields over the base record. Detail values
// take precedence on conflict; the hash is recomputed only when an identity
// field actually changed.
func MergeFields(base *models.Listing, fields map[string]string) {
	identityChanged := false

	if v := fields[FieldTitle]; v != "" && v != base.Title {
		base.Title = v
		identityChanged = true
	}
	if v := fields[FieldPrice]; v != "" && v != base.RawPrice {
		base.RawPrice = v
		if p := parseFloatLoose(v); p > 0 {
			base.Price = p
		}
		identityChanged = true
	}
	if v := fields[FieldLocation]; v != "" && v != base.Location {
		base.Location = v
		identityChanged = true
	}
	if v := fields[FieldType]; v != "" {
		base.PropertyType = v
	}
	if v := fields[FieldDescription]; v != "" {
		base.Description = v
	}
	if v := fields[FieldBedrooms]; v != "" {
		if n, err := strconv.Atoi(firstNumber(v)); err == nil && n > 0 {
			base.Bedrooms = n
		}
	}
	if v := fields[FieldBathrooms]; v != "" {
		if n, err := strconv.Atoi(firstNumber(v)); err == nil && n > 0 {
			base.Bathrooms = n
		}
	}
	if latStr, lonStr := fields[FieldLatitude], fields[FieldLongitude]; latStr != "" && lonStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		if errLat == nil && errLon == nil {
			base.Latitude, base.Longitude, base.HasCoords = lat, lon, true
		}
	}

	if identityChanged {
		base.ComputeHash()
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]interface{}:
		// schema.org PostalAddress and friends
		for _, k := range []string{"streetAddress", "addressLocality", "name"} {
			if s, ok := t[k].(string); ok && s != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func firstNumber(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
		} else if start >= 0 {
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

func parseFloatLoose(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(strings.Trim(b.String(), "."), 64)
	if err != nil {
		return 0
	}
	return f
}
