package dedup

import (
	"testing"
	"time"

	"github.com/property-radar/crawl/pkg/models"
)

func listing(title, location string, bedrooms int, price float64) models.Listing {
	return models.Listing{
		Title:    title,
		Location: location,
		Bedrooms: bedrooms,
		Price:    price,
		Hash:     models.Fingerprint(title, "", location),
	}
}

func TestResolveGroupsNearDuplicates(t *testing.T) {
	listings := []models.Listing{
		listing("3 Bedroom Flat in Lekki Phase 1", "Lekki", 3, 25000000),
		listing("3BR Apartment at Lekki", "Lekki", 3, 26000000),
		listing("5 Bedroom Duplex in Ikoyi", "Ikoyi", 5, 150000000),
	}

	r := New(0.85, FirstSeen)
	out, groups := r.Resolve(listings)

	if len(groups) != 1 {
		t.Fatalf("expected 1 duplicate group, got %d", len(groups))
	}
	if got := len(groups[0].Indices); got != 2 {
		t.Fatalf("expected group of 2, got %d", got)
	}
	if groups[0].Indices[0] != 0 || groups[0].Indices[1] != 1 {
		t.Errorf("group holds wrong members: %v", groups[0].Indices)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
	if out[0].Title != listings[0].Title {
		t.Errorf("first-seen survivor = %q", out[0].Title)
	}
	if out[1].Title != listings[2].Title {
		t.Errorf("singleton dropped: %q", out[1].Title)
	}
}

func TestResolveCheapestPolicy(t *testing.T) {
	listings := []models.Listing{
		listing("3BR Apartment at Lekki", "Lekki", 3, 26000000),
		listing("3 Bedroom Flat in Lekki Phase 1", "Lekki", 3, 25000000),
	}

	r := New(0.85, Cheapest)
	out, groups := r.Resolve(listings)

	if len(groups) != 1 || len(out) != 1 {
		t.Fatalf("expected one group with one survivor, got %d groups, %d out", len(groups), len(out))
	}
	if out[0].Price != 25000000 {
		t.Errorf("cheapest survivor price = %v, want 25000000", out[0].Price)
	}
}

func TestResolveTransitivity(t *testing.T) {
	// B bridges A and C: titles drift and prices spread so that A~B and B~C
	// score above threshold while A~C falls below it (A and C are more than
	// 10% apart in price). All three must still land in one group.
	a := listing("3 Bedroom Flat in Lekki Phase 1", "Lekki Phase 1", 3, 25000000)
	b := listing("3 Bedroom Flat in Lekki Phase 1 Estate", "Lekki Phase 1", 3, 26000000)
	c := listing("Serviced 3 Bedroom Flat in Lekki Phase 1 Estate", "Lekki Phase 1", 3, 28500000)

	threshold := 0.85
	sAB := Score(&a, &b)
	sBC := Score(&b, &c)
	sAC := Score(&a, &c)
	if sAB < threshold || sBC < threshold {
		t.Fatalf("fixture broken: sAB=%.3f sBC=%.3f must both reach %.2f", sAB, sBC, threshold)
	}
	if sAC >= threshold {
		t.Fatalf("fixture broken: sAC=%.3f must stay below %.2f", sAC, threshold)
	}

	r := New(threshold, FirstSeen)
	_, groups := r.Resolve([]models.Listing{a, b, c})

	if len(groups) != 1 {
		t.Fatalf("expected one transitive group, got %d", len(groups))
	}
	if len(groups[0].Indices) != 3 {
		t.Errorf("expected all 3 in one group, got %v", groups[0].Indices)
	}
}

func TestResolveNoDuplicates(t *testing.T) {
	listings := []models.Listing{
		listing("3 Bedroom Flat in Lekki", "Lekki", 3, 25000000),
		listing("Commercial Plot on Victoria Island", "Victoria Island", 0, 900000000),
	}

	r := New(0.85, FirstSeen)
	out, groups := r.Resolve(listings)

	if len(groups) != 0 {
		t.Errorf("expected no groups, got %d", len(groups))
	}
	if len(out) != 2 {
		t.Errorf("expected passthrough of 2 listings, got %d", len(out))
	}
}

func TestResolveEmptyAndSingle(t *testing.T) {
	r := New(0, nil)
	if out, groups := r.Resolve(nil); len(out) != 0 || groups != nil {
		t.Errorf("nil input: out=%v groups=%v", out, groups)
	}
	one := []models.Listing{listing("Flat", "Lekki", 1, 1000)}
	if out, groups := r.Resolve(one); len(out) != 1 || groups != nil {
		t.Errorf("single input: out=%v groups=%v", out, groups)
	}
}

func TestScoreCoordinateBonus(t *testing.T) {
	a := listing("3 Bedroom Flat in Lekki", "Lekki", 3, 25000000)
	b := listing("3BR Apartment Lekki Area", "Lekki", 3, 25500000)

	base := Score(&a, &b)

	a.Latitude, a.Longitude, a.HasCoords = 6.4478, 3.4723, true
	b.Latitude, b.Longitude, b.HasCoords = 6.4478, 3.4723, true
	boosted := Score(&a, &b)

	if boosted <= base {
		t.Errorf("coord bonus missing: base=%.3f boosted=%.3f", base, boosted)
	}
	if boosted > 1.0 {
		t.Errorf("score exceeds cap: %.3f", boosted)
	}

	// Far apart coordinates earn nothing
	b.Latitude = 6.60
	if far := Score(&a, &b); far != base {
		t.Errorf("distant coords changed score: base=%.3f far=%.3f", base, far)
	}
}

func TestScorePriceTolerance(t *testing.T) {
	a := listing("3 Bedroom Flat in Lekki Phase 1", "Lekki", 3, 100)
	within := listing("3 Bedroom Flat in Lekki Phase 1", "Lekki", 3, 109)
	outside := listing("3 Bedroom Flat in Lekki Phase 1", "Lekki", 3, 120)

	if Score(&a, &within) <= Score(&a, &outside) {
		t.Error("price within 10% should score higher than outside")
	}
}

func TestPolicies(t *testing.T) {
	now := time.Now()
	listings := []models.Listing{
		listing("A", "Lekki", 3, 30000000),
		listing("B", "Lekki", 3, 25000000),
		listing("C", "Lekki", 3, 28000000),
	}
	listings[0].ScrapedAt = now.Add(-2 * time.Hour)
	listings[1].ScrapedAt = now.Add(-1 * time.Hour)
	listings[2].ScrapedAt = now
	listings[2].Description = "Newly renovated"
	listings[2].Images = []string{"a.jpg"}
	group := []int{0, 1, 2}

	if got := FirstSeen(listings, group); got != 0 {
		t.Errorf("FirstSeen = %d", got)
	}
	if got := Cheapest(listings, group); got != 1 {
		t.Errorf("Cheapest = %d", got)
	}
	if got := Newest(listings, group); got != 2 {
		t.Errorf("Newest = %d", got)
	}
	if got := MostComplete(listings, group); got != 2 {
		t.Errorf("MostComplete = %d", got)
	}

	// Cheapest falls back to first-seen when nothing has a price
	free := []models.Listing{listing("A", "Lekki", 0, 0), listing("B", "Lekki", 0, 0)}
	if got := Cheapest(free, []int{0, 1}); got != 0 {
		t.Errorf("Cheapest without prices = %d", got)
	}

	if PolicyByName("unknown") == nil || PolicyByName("cheapest") == nil {
		t.Error("PolicyByName returned nil")
	}
}
