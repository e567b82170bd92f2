// Package headers parses "Name: Value" pairs from repeated CLI flags.
package headers

import "strings"

// Parse converts raw "Name: Value" strings into a header map. Malformed
// entries are dropped silently.
func Parse(raw []string) map[string]string {
	parsed := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		parsed[name] = value
	}
	return parsed
}
