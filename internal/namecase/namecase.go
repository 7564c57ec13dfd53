// Package namecase cleans company names for display: trailing legal
// suffixes are dropped, punctuation is stripped and each word is
// capitalized. The renderer applies it when a variable opts into the
// "shorten" transform.
package namecase

import (
	"regexp"
	"strings"
	"unicode"
)

var legalSuffixes = map[string]struct{}{
	"inc":         {},
	"llc":         {},
	"ltd":         {},
	"co":          {},
	"company":     {},
	"group":       {},
	"plc":         {},
	"corp":        {},
	"corporation": {},
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9 ]+`)

// Shorten returns the cleaned display form of a company name.
func Shorten(name string) string {
	words := strings.Fields(strings.TrimSpace(name))

	// Drop a trailing legal suffix, tolerating "Inc." or "Inc,".
	if len(words) > 0 {
		last := strings.ToLower(strings.Trim(words[len(words)-1], ",."))
		if _, ok := legalSuffixes[last]; ok {
			words = words[:len(words)-1]
		}
	}

	cleaned := nonAlnum.ReplaceAllString(strings.Join(words, " "), "")
	cleaned = strings.TrimSpace(cleaned)

	parts := strings.Fields(cleaned)
	for i, w := range parts {
		parts[i] = capitalize(w)
	}
	return strings.Join(parts, " ")
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(w string) string {
	runes := []rune(w)
	for i := range runes {
		if i == 0 {
			runes[i] = unicode.ToUpper(runes[i])
		} else {
			runes[i] = unicode.ToLower(runes[i])
		}
	}
	return string(runes)
}
