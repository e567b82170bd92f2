package dedup

import (
	"math"
	"testing"
)

func TestTextSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "3 Bedroom Flat in Lekki", "3 Bedroom Flat in Lekki", 1.0, 1.0},
		{"case and punctuation insensitive", "3-Bedroom FLAT, Lekki!", "3 bedroom flat lekki", 1.0, 1.0},
		{"near duplicate", "3 Bedroom Flat in Lekki Phase 1", "3 Bedroom Flat at Lekki Phase 1", 0.85, 1.0},
		{"unrelated", "5 Bedroom Duplex in Ikoyi", "Commercial Plot on Victoria Island", 0.0, 0.6},
		{"empty left", "", "anything", 0.0, 0.0},
		{"both empty", "", "", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TextSimilarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("TextSimilarity(%q, %q) = %.3f, want in [%.2f, %.2f]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestTextSimilaritySymmetric(t *testing.T) {
	a, b := "3 Bedroom Flat in Lekki Phase 1", "3BR Apartment at Lekki"
	if x, y := TextSimilarity(a, b), TextSimilarity(b, a); x != y {
		t.Errorf("not symmetric: %.4f vs %.4f", x, y)
	}
}

func TestHaversineMeters(t *testing.T) {
	// Same point
	if d := HaversineMeters(6.4478, 3.4723, 6.4478, 3.4723); d != 0 {
		t.Errorf("same point distance = %v", d)
	}

	// Lekki Phase 1 to Ikoyi is roughly 8km
	d := HaversineMeters(6.4478, 3.4723, 6.4541, 3.4316)
	if d < 4000 || d > 6000 {
		t.Errorf("Lekki-Ikoyi distance = %.0fm, want ~4.5km", d)
	}

	// ~50m displacement in latitude
	d = HaversineMeters(6.4478, 3.4723, 6.4478+50.0/111320.0, 3.4723)
	if math.Abs(d-50) > 1 {
		t.Errorf("50m displacement measured as %.2fm", d)
	}
}
