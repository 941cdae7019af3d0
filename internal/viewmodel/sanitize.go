package viewmodel

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var contentPolicy = newContentPolicy()

// newContentPolicy allows basic inline formatting and links. Anchors keep only
// href, target and rel; everything else, including script and style bodies,
// is dropped.
func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "br", "p", "code", "pre")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_(blank|self)$`)).OnElements("a")
	p.AllowAttrs("rel").Matching(regexp.MustCompile(`^[a-z ]+$`)).OnElements("a")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}

// Sanitize strips all markup outside the allow-list from remote content
func Sanitize(html string) string {
	return contentPolicy.Sanitize(html)
}
