// Package textutil 提供 slug 生成、用户名校验以及用户文本清洗。
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const MaxSlugLength = 50

var (
	slugPattern      = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	slugStrip        = regexp.MustCompile(`[^a-z0-9_-]+`)
	multipleHyphens  = regexp.MustCompile(`-{2,}`)
	usernamePattern  = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	whitespaceRunner = regexp.MustCompile(`\s+`)
)

// Slugify converts a display name into a slug accepted by IsValidSlug.
// Accents are removed and the result is truncated to MaxSlugLength.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}

	result = strings.ToLower(strings.TrimSpace(result))
	result = whitespaceRunner.ReplaceAllString(result, "-")
	result = slugStrip.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if len(result) > MaxSlugLength {
		result = strings.TrimRight(result[:MaxSlugLength], "-")
	}
	return result
}

// IsValidSlug reports whether s matches ^[-a-zA-Z0-9_]+$ within MaxSlugLength.
func IsValidSlug(s string) bool {
	return s != "" && len(s) <= MaxSlugLength && slugPattern.MatchString(s)
}

// IsValidUsername 校验用户名字符集（字母、数字以及 . @ + - _）。
func IsValidUsername(s string) bool {
	return s != "" && usernamePattern.MatchString(s)
}
