package extract

import (
	"regexp"
	"strings"
)

var bareKeyPattern = regexp.MustCompile(`(\w+)\s*:`)

// NormalizeQuotes replaces every single quote with a double quote.
//
// Apostrophes inside values are replaced too, so "Crohn's" breaks the
// document. Callers only reach for this after strict parsing failed.
func NormalizeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `"`)
}

// QuoteBareKeys wraps every run of word characters followed by a colon in
// double quotes.
//
// The rewrite does not know about string boundaries: text such as "10:30"
// or "ratio 2:1" inside a value is rewritten as well and the document no
// longer parses. \w matches ASCII word characters only.
func QuoteBareKeys(s string) string {
	return bareKeyPattern.ReplaceAllString(s, `"$1":`)
}
