package fetch

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

// Inline scripts longer than this are almost always bundles, not data
const maxInlineScriptBytes = 64 * 1024

// ExtractStructured pulls embedded structured-data blocks out of a page:
// JSON-LD script tags first, then object-valued globals assigned by inline
// scripts (the window.__DATA__ pattern used by listing SPAs), captured by
// running those scripts in a sandboxed JS interpreter.
func ExtractStructured(html string) []json.RawMessage {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var blocks []json.RawMessage

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" || !json.Valid([]byte(raw)) {
			return
		}
		blocks = append(blocks, json.RawMessage(raw))
	})

	blocks = append(blocks, capturedGlobals(doc)...)
	return blocks
}

// capturedGlobals executes inline scripts in a bare goja VM and exports any
// non-standard globals that marshal to JSON objects or arrays
func capturedGlobals(doc *goquery.Document) []json.RawMessage {
	vm := goja.New()

	// Minimal browser shims; just enough for data-assignment scripts to run
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("document", map[string]interface{}{})
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	vm.Set("console", map[string]interface{}{"log": noop, "error": noop, "warn": noop})

	ran := false
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if _, external := sel.Attr("src"); external {
			return
		}
		if t, ok := sel.Attr("type"); ok && t != "" && !strings.Contains(t, "javascript") {
			return
		}
		src := sel.Text()
		if src == "" || len(src) > maxInlineScriptBytes {
			return
		}
		ran = true
		// Most scripts fail on the missing DOM; that is expected and fine
		_, _ = vm.RunString(src)
	})
	if !ran {
		return nil
	}

	var blocks []json.RawMessage
	for _, key := range vm.GlobalObject().Keys() {
		if standardGlobal(key) {
			continue
		}
		val := vm.Get(key)
		if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
			continue
		}
		exported := val.Export()
		switch exported.(type) {
		case map[string]interface{}, []interface{}:
		default:
			continue
		}
		raw, err := json.Marshal(exported)
		if err != nil {
			continue
		}
		log.Debug().Str("global", key).Msg("Captured inline-JS data block")
		blocks = append(blocks, json.RawMessage(raw))
	}
	return blocks
}

var standardGlobals = map[string]bool{
	"window": true, "self": true, "document": true, "location": true, "console": true,
	"Object": true, "Array": true, "String": true, "Number": true, "Boolean": true,
	"Date": true, "Math": true, "JSON": true, "RegExp": true, "Error": true,
	"Function": true, "parseInt": true, "parseFloat": true, "isNaN": true,
	"isFinite": true, "encodeURI": true, "decodeURI": true, "encodeURIComponent": true,
	"decodeURIComponent": true, "undefined": true, "NaN": true, "Infinity": true,
	"globalThis": true, "eval": true, "escape": true, "unescape": true,
}

func standardGlobal(key string) bool {
	return standardGlobals[key]
}
