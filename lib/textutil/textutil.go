package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var punctRegex = regexp.MustCompile(`[^\p{L}\p{N} ]+`)

// NormalizeName lowers, trims and collapses a title/venue name so two
// sites listing the same show compare equal despite punctuation and
// spacing differences.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = punctRegex.ReplaceAllString(name, " ")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return strings.Trim(name, " ")
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, NormalizeName(m)) {
			return true
		}
	}
	return false
}
