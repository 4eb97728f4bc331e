package richtext

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultExcerptLength is the rune budget used for derived excerpts.
const DefaultExcerptLength = 160

var (
	stripPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)
	mediaTag    = regexp.MustCompile(`(?i)<(img|video|audio|iframe|embed|object|picture)\b`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// PlainText strips every tag from an HTML body and collapses whitespace.
func PlainText(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	stripped := html.UnescapeString(stripPolicy.Sanitize(body))
	stripped = strings.ReplaceAll(stripped, "\u00a0", " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(stripped, " "))
}

// HasMedia reports whether the body embeds images or other media.
func HasMedia(body string) bool {
	return mediaTag.MatchString(body)
}

// IsEmpty reports whether an HTML body carries nothing worth saving. An empty
// paragraph left behind by the editor is empty; a lone image is not.
func IsEmpty(body string) bool {
	return PlainText(body) == "" && !HasMedia(body)
}

// Excerpt returns the first limit runes of the body's plain text, cut on a
// word boundary when one is close enough.
func Excerpt(body string, limit int) string {
	if limit <= 0 {
		limit = DefaultExcerptLength
	}
	text := PlainText(body)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
