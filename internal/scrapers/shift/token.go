package shift

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractToken looks for the anti-forgery token in the order the site renders it:
// the csrf-token meta tag first, then the authenticity_token hidden input.
// An empty string means neither is present.
func extractToken(doc *goquery.Document) string {
	meta := doc.Find(`meta[name="csrf-token"]`).First().AttrOr("content", "")
	if meta != "" {
		return meta
	}
	return doc.Find(`input[name="authenticity_token"]`).First().AttrOr("value", "")
}

// refreshToken replaces the known token when the page carries one, pages without a token
// leave it untouched.
func (c *Client) refreshToken(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	token := extractToken(doc)
	if token != "" {
		c.token = token
	}
	return token
}
