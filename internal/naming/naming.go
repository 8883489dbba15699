// Package naming converts component and attribute names between the casing
// conventions used in source trees and in emitted text.
package naming

import (
	"strings"
	"unicode"
)

// Words splits s at case boundaries and at '-', '_', '.' and spaces.
// Acronyms stay together: "HTTPServer" splits into "HTTP" and "Server".
func Words(s string) []string {
	var words []string
	runes := []rune(s)
	start := -1

	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}

	for i, r := range runes {
		if r == '-' || r == '_' || r == '.' || unicode.IsSpace(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		switch {
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			// fooBar, v2Bar
			flush(i)
			start = i
		case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// HTTPServer: split before the S
			flush(i)
			start = i
		}
	}
	flush(len(runes))
	return words
}

// Snake converts s to lower snake_case: "DeviationRules" -> "deviation_rules".
func Snake(s string) string {
	return join(s, "_")
}

// Kebab converts s to lower kebab-case: "allowedTools" -> "allowed-tools".
func Kebab(s string) string {
	return join(s, "-")
}

func join(s, sep string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, sep)
}
