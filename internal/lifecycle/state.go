package lifecycle

import (
	"time"

	"github.com/goliatone/go-editorial/internal/domain"
)

// DisplayState derives what the status indicator should show. A published
// document whose publish time is still ahead of now reads as scheduled. The
// result must be recomputed on every read since it depends on the clock.
func DisplayState(status domain.Status, publishedAt *time.Time, now time.Time) domain.DisplayState {
	switch status {
	case domain.StatusPublished:
		if publishedAt != nil && publishedAt.After(now) {
			return domain.DisplayScheduled
		}
		return domain.DisplayPublished
	case domain.StatusArchived:
		return domain.DisplayArchived
	default:
		return domain.DisplayDraft
	}
}

// SlugOnAutosave reports whether a background or manual save should send a
// slug recomputed from the title. Only drafts that were never published have
// a moving slug; a restored draft keeps the slug it was published under.
func SlugOnAutosave(status domain.Status, released bool) bool {
	return !released && (status == "" || status == domain.StatusDraft)
}

// SlugOnPublish reports whether a publish is the first one for the document.
// Republishing, including after archive and restore, never touches the slug.
func SlugOnPublish(identityBound, released bool) bool {
	return !identityBound || !released
}

// PublishedAt keeps an existing publish time and only stamps now on first publish.
func PublishedAt(existing *time.Time, now time.Time) time.Time {
	if existing != nil && !existing.IsZero() {
		return *existing
	}
	return now
}
