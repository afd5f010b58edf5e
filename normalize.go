/*
Copyright © 2025 Dawon <dawon@noreply.dev>
*/

package main

import (
	"strings"
	"unicode"
)

// normalize reduces a guess to a comparable key: surrounding whitespace
// trimmed, case folded, and every rune that is not a Unicode letter or digit
// dropped. An empty result means the input held nothing matchable; callers
// must treat it as invalid, never as a wildcard.
func normalize(s string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// stripNamePunct removes apostrophes, periods and whitespace ahead of
// normalization. Covers names whose punctuation-stripped form differs from
// what normalize alone produces (e.g. possessive marks inside a name).
func stripNamePunct(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\'' || r == '’' || r == '.':
			return -1
		case unicode.IsSpace(r):
			return -1
		}
		return r
	}, s)
}
