package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText collapses the whitespace soup that comes out of listing
// markup into a single-spaced printable string.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	s = innerWhitespace.ReplaceAllString(s, " ")
	return s
}

var backgroundImageRegex = regexp.MustCompile(`background(?:-image)?\s*:\s*url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// BackgroundImageUrl pulls the url out of an inline
// `background-image: url(...)` style attribute. Returns "" when the
// style carries no image.
func BackgroundImageUrl(style string) string {
	groups := backgroundImageRegex.FindStringSubmatch(style)
	if len(groups) < 2 {
		return ""
	}
	return strings.TrimSpace(groups[1])
}

var sanitizePolicy = newSanitizePolicy()

func newSanitizePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "b", "strong", "i", "em", "u", "ul", "ol", "li", "a")
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	return p
}

// Sanitize strips everything from event descriptions except a small
// allow-list of formatting tags. Scripts, styles, event handlers and
// unknown attributes are all dropped.
func Sanitize(fragment string) string {
	return strings.TrimSpace(sanitizePolicy.Sanitize(fragment))
}
