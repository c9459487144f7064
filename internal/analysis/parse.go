package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractObject pulls one JSON object out of raw completion output. Models
// wrap JSON in markdown fences, prepend prose, or bury it mid-sentence, so
// several strategies are tried in order; the first that yields a valid
// object wins.
func extractObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty completion output")
	}

	candidates := []string{text}

	if fenced := stripFence(text); fenced != "" {
		candidates = append(candidates, fenced)
	}

	// Prose around the object: take the outermost brace span.
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}

	// Exactly one balanced object embedded in arbitrary text.
	if region := singleBalancedRegion(text); region != "" {
		candidates = append(candidates, region)
	}

	for _, c := range candidates {
		var obj map[string]any
		if err := json.Unmarshal([]byte(c), &obj); err == nil {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("no parseable JSON object in output")
}

// stripFence extracts the body of a ```json or ``` fenced block.
func stripFence(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return ""
	}
	body := text[start+3:]
	if nl := strings.Index(body, "\n"); nl >= 0 && len(strings.TrimSpace(body[:nl])) <= len("json") {
		// Drop the language tag line ("json", "JSON" or empty).
		body = body[nl+1:]
	}
	end := strings.Index(body, "```")
	if end < 0 {
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(body[:end])
}

// singleBalancedRegion scans for top-level balanced {...} regions, tracking
// string literals so braces inside them do not count. Returns the region
// only when exactly one exists.
func singleBalancedRegion(text string) string {
	var regions []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					regions = append(regions, text[start:i+1])
				}
			}
		}
	}

	if len(regions) == 1 {
		return regions[0]
	}
	return ""
}

// Coercion helpers for the untyped object extracted above. Anything that
// cannot be coerced falls back to the supplied default.

func asFloat(v any, def float64) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(x), "%f", &f); err == nil {
			return f
		}
	}
	return def
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	}
	return false
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		if s := asString(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
