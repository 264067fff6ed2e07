package segment

import (
	"html"
	"regexp"
	"strings"
)

// Text-segment normalization: HTML entities are decoded and bold/italic
// markers are folded onto their asterisk forms so a renderer sees one
// consistent inline dialect. Links stay in markdown form.

var (
	boldUnderscorePattern   = regexp.MustCompile(`__([^_\n]+)__`)
	italicUnderscorePattern = regexp.MustCompile(`(^|[^\w_])_([^_\n]+)_($|[^\w_])`)
)

func normalizeText(text string) string {
	decoded := html.UnescapeString(text)
	decoded = boldUnderscorePattern.ReplaceAllString(decoded, "**$1**")
	decoded = italicUnderscorePattern.ReplaceAllString(decoded, "$1*$2*$3")
	return strings.TrimSpace(decoded)
}
