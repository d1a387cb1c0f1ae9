package viewer

import (
	"strings"
)

// XPath selectors for the site's current markup.
const (
	emailFieldXPath    = "//input[@name='email']"
	passwordFieldXPath = "//input[@name='pass']"
	// The first list item is a header/suggestion row, so the second one is the
	// first real search result.
	searchResultXPath = "(//div[@role='listitem' and ../@role='list'])[2]"
)

func searchInputXPath(placeholder string) string {
	return "//input[@placeholder=" + xpathLiteral(placeholder) + "]"
}

func showMoreXPath(label string) string {
	return "//div[text()=" + xpathLiteral(label) + "]"
}

// postXPath matches a post container whose message body contains keyword but
// not the hashtag form of it. Matching is a case-sensitive substring test.
func postXPath(keyword string) string {
	return "//div[@aria-describedby and .//div[@data-ad-preview='message']" +
		"[contains(., " + xpathLiteral(keyword) + ") and not(contains(., " + xpathLiteral("#"+keyword) + "))]]"
}

// xpathLiteral quotes s as an XPath 1.0 string literal. XPath has no escape
// sequences, so a string holding both quote kinds is built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, part := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + part + "'")
	}
	b.WriteString(")")
	return b.String()
}
