package pdfdoc

import (
	"html"
	"regexp"
	"strings"
)

var (
	breakTagRe = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|blockquote)>|<br\s*/?>`)
	listItemRe = regexp.MustCompile(`(?i)<li[^>]*>`)
	anyTagRe   = regexp.MustCompile(`<[^>]*>`)
	multiNLRe  = regexp.MustCompile(`\n{3,}`)
)

// StripHTML flattens the rich markup of a text block into plain text for
// the paginated surface: block-level closers become line breaks, list items
// become bullets, every other tag is dropped, entities are decoded.
func StripHTML(markup string) string {
	s := breakTagRe.ReplaceAllString(markup, "\n")
	s = listItemRe.ReplaceAllString(s, "- ")
	s = anyTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = multiNLRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
