package output

import (
	"html/template"
	"os"
	"sort"

	"github.com/property-radar/crawl/pkg/models"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Property listings</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
h2 { border-bottom: 1px solid #ccc; padding-bottom: 0.3rem; }
table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #eee; }
th { background: #f5f5f5; }
.price { white-space: nowrap; }
</style>
</head>
<body>
<h1>Property listings</h1>
{{range .Sites}}
<h2>{{.Name}}</h2>
<table>
<tr><th>Title</th><th>Price</th><th>Location</th><th>Beds</th><th>Baths</th><th></th></tr>
{{range .Listings}}
<tr>
<td>{{.Title}}</td>
<td class="price">{{.RawPrice}}</td>
<td>{{.Location}}</td>
<td>{{if gt .Bedrooms 0}}{{.Bedrooms}}{{else}}&ndash;{{end}}</td>
<td>{{if gt .Bathrooms 0}}{{.Bathrooms}}{{else}}&ndash;{{end}}</td>
<td><a href="{{.URL}}">view</a></td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`))

type siteSection struct {
	Name     string
	Listings []models.Listing
}

// SaveHTML writes the listings as a browsable HTML report grouped by site
func SaveHTML(listings []models.Listing, filepath string) error {
	bySite := groupBySite(listings)
	sections := make([]siteSection, 0, len(bySite))
	for _, site := range siteOrder(bySite) {
		sections = append(sections, siteSection{Name: site, Listings: bySite[site]})
	}

	f, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer f.Close()
	return reportTemplate.Execute(f, struct{ Sites []siteSection }{sections})
}

func groupBySite(listings []models.Listing) map[string][]models.Listing {
	bySite := make(map[string][]models.Listing)
	for _, l := range listings {
		site := l.Site
		if site == "" {
			site = "unknown"
		}
		bySite[site] = append(bySite[site], l)
	}
	return bySite
}

func siteOrder(bySite map[string][]models.Listing) []string {
	keys := make([]string, 0, len(bySite))
	for k := range bySite {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
