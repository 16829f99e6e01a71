package util

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\[\[\s*([^\[\]]+?)\s*\]\]`)

// Interpolate replaces [[key]] tokens in text with values from data. Keys may
// use dotted paths into nested maps ("user.name"). Tokens whose key cannot be
// resolved are left verbatim, a deliberate soft fallback so partially wired
// graphs still produce inspectable requests.
func Interpolate(text string, data map[string]any) string {
	if !strings.Contains(text, "[[") {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		key := strings.TrimSpace(placeholderRe.FindStringSubmatch(match)[1])
		value, ok := lookupPath(data, key)
		if !ok {
			return match
		}
		return stringify(value)
	})
}

func lookupPath(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// stringify renders a value for template substitution: strings pass through,
// everything else is JSON-encoded (falling back to fmt for unmarshalable
// values).
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}
