package payload

import (
	"strings"
	"time"

	"github.com/goliatone/go-editorial/internal/buffer"
	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/internal/gateway"
	"github.com/goliatone/go-editorial/internal/lifecycle"
	"github.com/goliatone/go-editorial/internal/richtext"
	"github.com/goliatone/go-editorial/internal/slugify"
)

// Built is a payload plus the bookkeeping values it decided on, so the save
// path can mirror them into the buffer after the store accepted them.
type Built struct {
	Payload     gateway.Payload
	Slug        string
	Status      domain.Status
	PublishedAt *time.Time
}

// Blank reports whether a snapshot has nothing worth persisting: no title and
// no body content.
func Blank(snap buffer.Snapshot) bool {
	return strings.TrimSpace(snap.Title()) == "" && richtext.IsEmpty(snap.Body())
}

// Draft builds the payload of a background or manual save. The status is sent
// unchanged and the slug only moves while the document is an unpublished draft.
func Draft(snap buffer.Snapshot, now time.Time) Built {
	status := snap.Status
	if status == "" {
		status = domain.StatusDraft
	}
	out := base(snap, now)
	out[domain.FieldStatus] = string(status)

	built := Built{Payload: out, Status: status, PublishedAt: snap.PublishedAt}
	if lifecycle.SlugOnAutosave(status, snap.Released) {
		built.Slug = slugify.Title(snap.Title())
		out[domain.FieldSlug] = built.Slug
	}
	if snap.PublishedAt != nil {
		out[domain.FieldPublishedAt] = *snap.PublishedAt
	}
	return built
}

// Publish builds the payload of a publish. The publish time is stamped once
// and the slug is only computed on the first publish.
func Publish(snap buffer.Snapshot, now time.Time) Built {
	out := base(snap, now)
	out[domain.FieldStatus] = string(domain.StatusPublished)

	publishedAt := lifecycle.PublishedAt(snap.PublishedAt, now)
	out[domain.FieldPublishedAt] = publishedAt

	built := Built{Payload: out, Status: domain.StatusPublished, PublishedAt: &publishedAt}
	if lifecycle.SlugOnPublish(snap.Bound(), snap.Released) {
		built.Slug = slugify.Title(snap.Title())
		out[domain.FieldSlug] = built.Slug
	}
	return built
}

// Transition builds the payload persisting a status change from the admin
// path (archive, restore). Content fields ride along so nothing is lost.
func Transition(snap buffer.Snapshot, status domain.Status, now time.Time) Built {
	out := base(snap, now)
	out[domain.FieldStatus] = string(status)
	if snap.PublishedAt != nil {
		out[domain.FieldPublishedAt] = *snap.PublishedAt
	}
	return Built{Payload: out, Status: status, PublishedAt: snap.PublishedAt}
}

func base(snap buffer.Snapshot, now time.Time) gateway.Payload {
	out := gateway.Payload(snap.FieldMap())
	for _, reserved := range []string{domain.FieldID, domain.FieldSlug, domain.FieldStatus, domain.FieldAuthorID, domain.FieldPublishedAt} {
		delete(out, reserved)
	}
	out[domain.FieldUpdatedAt] = now
	if excerpt, _ := out[domain.FieldExcerpt].(string); strings.TrimSpace(excerpt) == "" {
		if derived := richtext.Excerpt(snap.Body(), richtext.DefaultExcerptLength); derived != "" {
			out[domain.FieldExcerpt] = derived
		}
	}
	return out
}
