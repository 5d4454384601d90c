// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Make lower-cases name, folds accented letters to ASCII and joins the
// remaining words with single hyphens.
//
//	"Coffee Shops"   -> "coffee-shops"
//	"Café Crème"     -> "cafe-creme"
//	"  C++ / Go!  "  -> "c-go"
//
// The result may be empty when name has no ASCII letters or digits.
func Make(name string) string {
	s := norm.NFKD.String(name)

	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
