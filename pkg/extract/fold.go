// Package extract pulls structured fields out of generated meeting minutes
// and work item titles.
//
// Every function here is pure: malformed or missing input yields "" or a
// documented default, never an error.
package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics, so "Título" and "titulo" compare
// equal. Offsets into the folded string do not map back onto s.
func Fold(s string) string {
	// transform.Chain keeps state; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r", ""))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
