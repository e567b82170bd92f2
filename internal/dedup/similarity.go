package dedup

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

const earthRadiusMeters = 6371000.0

// bedroomShorthand matches "3br", "2bd", "4bed" style tokens
var bedroomShorthand = regexp.MustCompile(`^(\d+)(br|bd|bed|beds)$`)

// synonyms collapses listing-speak variants so "3BR Apartment" and
// "3 Bedroom Flat" compare as equal phrases
var synonyms = map[string]string{
	"apartment":  "flat",
	"apartments": "flat",
	"apt":        "flat",
	"flats":      "flat",
	"bedrooms":   "bedroom",
	"beds":       "bedroom",
	"bed":        "bedroom",
	"bathrooms":  "bathroom",
	"baths":      "bathroom",
}

// stopwords carry no identity signal in listing titles
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "in": true, "at": true, "on": true,
	"of": true, "for": true, "to": true, "with": true, "and": true,
}

// TextSimilarity returns a [0,1] ratio between two strings: the longest
// common subsequence over canonicalized text. Canonicalization folds case,
// strips punctuation and stopwords and expands listing shorthand, so
// "3BR Apartment at Lekki" and "3 Bedroom Flat in Lekki" score near 1.
func TextSimilarity(a, b string) float64 {
	na, nb := canonicalize(a), canonicalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	lcs := lcsLength([]rune(na), []rune(nb))
	return 2 * float64(lcs) / float64(len([]rune(na))+len([]rune(nb)))
}

// lcsLength computes LCS length with a rolling single-row table
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func canonicalize(s string) string {
	var out []string
	for _, tok := range tokenize(s) {
		if m := bedroomShorthand.FindStringSubmatch(tok); m != nil {
			out = append(out, m[1], "bedroom")
			continue
		}
		if repl, ok := synonyms[tok]; ok {
			tok = repl
		}
		if stopwords[tok] {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

func tokenize(s string) []string {
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// HaversineMeters returns the great-circle distance between two coordinates
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
