package slugify

import (
	"strings"

	"github.com/goliatone/go-slug"
)

// Fallback is returned when a title yields no usable characters.
const Fallback = "untitled"

// Normalizer exposes the go-slug normalizer interface.
type Normalizer = slug.Normalizer

// Title turns a document title into its URL slug: lower-cased, hyphenated and
// ASCII folded. Empty or unusable titles give Fallback.
func Title(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return Fallback
	}
	value, err := slug.Normalize(trimmed)
	if err != nil || strings.TrimSpace(value) == "" {
		return Fallback
	}
	return value
}

// Valid reports whether value already satisfies the default slug rules.
func Valid(value string) bool {
	return slug.IsValid(value)
}
