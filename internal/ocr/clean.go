// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"regexp"
	"strings"
)

var blankRunRe = regexp.MustCompile(`\n\s*\n\s*\n`)

// fractionFixer maps typed fractions to their glyphs. "l/2" and "l/4" are
// the usual misreads of a handwritten 1.
var fractionFixer = strings.NewReplacer(
	"1/2", "½",
	"1/4", "¼",
	"3/4", "¾",
	"1/3", "⅓",
	"2/3", "⅔",
	"l/2", "½",
	"l/4", "¼",
)

// CleanText collapses runs of blank lines to one, substitutes fraction
// glyphs and trims surrounding whitespace.
func CleanText(text string) string {
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = fractionFixer.Replace(text)
	return strings.TrimSpace(text)
}
