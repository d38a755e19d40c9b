// Package normalize folds free-form wine text into a comparable form.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var separators = strings.NewReplacer("-", " ", "_", " ", "'", " ", "’", " ", ".", " ", ",", " ")

// Fold lowercases s, strips diacritics, turns hyphens and punctuation into
// spaces and collapses runs of whitespace. "Château Haut-Brion" and
// "chateau haut brion" fold to the same string.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// Chained transformers carry state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = separators.Replace(strings.ToLower(out))
	return strings.Join(strings.Fields(out), " ")
}
