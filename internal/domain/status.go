package domain

import (
	"fmt"
	"strings"
)

// ParseStatus normalises user or store supplied status values. An empty value
// defaults to draft.
func ParseStatus(input string) (Status, error) {
	value := Status(strings.ToLower(strings.TrimSpace(input)))
	switch value {
	case "":
		return StatusDraft, nil
	case StatusDraft, StatusPublished, StatusArchived:
		return value, nil
	default:
		return "", fmt.Errorf("domain: unknown status %q", input)
	}
}

// Valid reports whether the status is one of the stored statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// ParseKind normalises a document kind.
func ParseKind(input string) (Kind, error) {
	value := Kind(strings.ToLower(strings.TrimSpace(input)))
	switch value {
	case "", KindArticle:
		return KindArticle, nil
	case KindProject:
		return KindProject, nil
	default:
		return "", fmt.Errorf("domain: unknown document kind %q", input)
	}
}

// Table returns the store table backing documents of this kind.
func (k Kind) Table() string {
	switch k {
	case KindProject:
		return "projects"
	default:
		return "articles"
	}
}
