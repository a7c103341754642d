package textutil

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

const maxSanitizePasses = 8

// SanitizeText strips all markup from user supplied text, including markup
// smuggled in as HTML entities. The result is plain text for JSON output.
func SanitizeText(s string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(strictPolicy.Sanitize(html.UnescapeString(s)))
		if next == s {
			return strings.TrimSpace(s)
		}
		s = next
	}
	// 仍未收敛时去掉所有尖括号
	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(s))
}
