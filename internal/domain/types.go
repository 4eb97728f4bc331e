package domain

// Status represents the stored lifecycle state of an editorial document.
type Status string

const (
	// StatusDraft indicates content still under preparation
	StatusDraft Status = "draft"
	// StatusPublished identifies content available to readers
	StatusPublished Status = "published"
	// StatusArchived marks content that is retained but no longer listed
	StatusArchived Status = "archived"
)

// DisplayState is what the status indicator shows. It adds the derived
// scheduled state on top of the stored statuses.
type DisplayState string

const (
	DisplayDraft     DisplayState = DisplayState(StatusDraft)
	DisplayPublished DisplayState = DisplayState(StatusPublished)
	DisplayArchived  DisplayState = DisplayState(StatusArchived)
	// DisplayScheduled is never stored: published with a future publish time.
	DisplayScheduled DisplayState = "scheduled"
)

// Kind identifies the document collection being edited.
type Kind string

const (
	KindArticle Kind = "article"
	KindProject Kind = "project"
)

// Well known field names.
const (
	FieldTitle       = "title"
	FieldBody        = "body"
	FieldSlug        = "slug"
	FieldStatus      = "status"
	FieldExcerpt     = "excerpt"
	FieldCover       = "cover"
	FieldTags        = "tags"
	FieldCategory    = "category"
	FieldPublishedAt = "published_at"
	FieldUpdatedAt   = "updated_at"
	FieldAuthorID    = "author_id"
	FieldID          = "id"
)
