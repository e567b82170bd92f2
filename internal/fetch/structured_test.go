package fetch

import (
	"encoding/json"
	"testing"
)

func TestExtractStructured_JSONLD(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{"@type":"RealEstateListing","name":"3 Bedroom Flat"}</script>
</head><body></body></html>`

	blocks := ExtractStructured(html)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(blocks[0], &decoded); err != nil {
		t.Fatalf("block is not valid JSON: %v", err)
	}
	if decoded["@type"] != "RealEstateListing" {
		t.Errorf("unexpected block content: %v", decoded)
	}
}

func TestExtractStructured_InvalidJSONLDSkipped(t *testing.T) {
	html := `<html><head>
<script type="application/ld+json">{not json at all</script>
</head><body></body></html>`

	if blocks := ExtractStructured(html); len(blocks) != 0 {
		t.Errorf("expected no blocks for invalid JSON-LD, got %d", len(blocks))
	}
}

func TestExtractStructured_InlineGlobals(t *testing.T) {
	html := `<html><body>
<script>window.__LISTING_DATA__ = {"price": 25000000, "beds": 3};</script>
</body></html>`

	blocks := ExtractStructured(html)
	if len(blocks) == 0 {
		t.Fatal("expected at least one captured global")
	}

	found := false
	for _, b := range blocks {
		var m map[string]interface{}
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		if m["beds"] == float64(3) {
			found = true
		}
	}
	if !found {
		t.Error("window.__LISTING_DATA__ was not captured")
	}
}

func TestExtractStructured_ScalarGlobalsIgnored(t *testing.T) {
	html := `<html><body><script>var trackingId = "abc123";</script></body></html>`

	if blocks := ExtractStructured(html); len(blocks) != 0 {
		t.Errorf("scalar globals must not produce blocks, got %d", len(blocks))
	}
}
