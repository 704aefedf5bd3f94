package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Separator replaces line and paragraph breaks in flattened descriptions.
// Dolibarr's import filter rejects some newline-joined text as injected
// markup, so structure is kept on a single line.
const Separator = " | "

// spaceClass mirrors the JavaScript \s class, which also covers the Unicode
// space separators that Go's \s leaves out.
const spaceClass = `[\s\x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}]`

var (
	lineBreak      = regexp.MustCompile(`(?i)<br` + spaceClass + `*/?>`)
	paragraphBreak = regexp.MustCompile(`(?i)</p>` + spaceClass + `*<p>`)
	anyTag         = regexp.MustCompile(`<[^>]*>`)
	repeatedSep    = regexp.MustCompile(spaceClass + `*\|(?:` + spaceClass + `*\|)+` + spaceClass + `*`)
	leadingSep     = regexp.MustCompile(`^` + spaceClass + `*\|` + spaceClass + `*`)
	trailingSep    = regexp.MustCompile(spaceClass + `*\|` + spaceClass + `*$`)
	whitespaceRun  = regexp.MustCompile(spaceClass + `+`)
)

// HTMLToPlainText flattens an HTML fragment into one line of plain text.
//
// Entities are decoded first, then <br> and </p><p> become Separator and
// every remaining tag is dropped. Runs of separators collapse to one,
// separators at either end disappear and whitespace collapses to a single
// space.
func HTMLToPlainText(s string) string {
	out := html.UnescapeString(s)
	out = lineBreak.ReplaceAllString(out, Separator)
	out = paragraphBreak.ReplaceAllString(out, Separator)
	out = anyTag.ReplaceAllString(out, "")
	out = repeatedSep.ReplaceAllString(out, Separator)
	out = leadingSep.ReplaceAllString(out, "")
	out = trailingSep.ReplaceAllString(out, "")
	out = whitespaceRun.ReplaceAllString(out, " ")
	return strings.TrimFunc(out, isSpace)
}
