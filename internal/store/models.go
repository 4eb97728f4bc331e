package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-editorial/internal/domain"
)

// Document is the persisted row of an article or project.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID          uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	Collection  string         `bun:"collection,notnull" json:"collection"`
	Title       string         `bun:"title" json:"title"`
	Slug        string         `bun:"slug" json:"slug"`
	Status      string         `bun:"status,notnull,default:'draft'" json:"status"`
	Body        string         `bun:"body" json:"body"`
	Excerpt     string         `bun:"excerpt" json:"excerpt"`
	AuthorID    string         `bun:"author_id" json:"author_id"`
	Extra       map[string]any `bun:"extra,type:jsonb" json:"extra,omitempty"`
	PublishedAt *time.Time     `bun:"published_at,nullzero" json:"published_at,omitempty"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// apply merges payload into doc. Unknown keys land in Extra.
func (d *Document) apply(payload map[string]any) error {
	for key, value := range payload {
		switch key {
		case domain.FieldID:
		case domain.FieldTitle:
			d.Title = stringValue(value)
		case domain.FieldSlug:
			d.Slug = stringValue(value)
		case domain.FieldStatus:
			status, err := domain.ParseStatus(stringValue(value))
			if err != nil {
				return err
			}
			d.Status = string(status)
		case domain.FieldBody:
			d.Body = stringValue(value)
		case domain.FieldExcerpt:
			d.Excerpt = stringValue(value)
		case domain.FieldAuthorID:
			d.AuthorID = stringValue(value)
		case domain.FieldPublishedAt:
			at, err := timeValue(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			d.PublishedAt = at
		case domain.FieldUpdatedAt:
			at, err := timeValue(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if at != nil {
				d.UpdatedAt = *at
			}
		default:
			if d.Extra == nil {
				d.Extra = map[string]any{}
			}
			if value == nil {
				delete(d.Extra, key)
				continue
			}
			d.Extra[key] = value
		}
	}
	return nil
}

// Record flattens the document into the map shape the store client returns.
func (d *Document) Record() map[string]any {
	out := make(map[string]any, len(d.Extra)+10)
	for key, value := range d.Extra {
		out[key] = value
	}
	out[domain.FieldID] = d.ID.String()
	out[domain.FieldTitle] = d.Title
	out[domain.FieldSlug] = d.Slug
	out[domain.FieldStatus] = d.Status
	out[domain.FieldBody] = d.Body
	out[domain.FieldExcerpt] = d.Excerpt
	out[domain.FieldAuthorID] = d.AuthorID
	out[domain.FieldUpdatedAt] = d.UpdatedAt
	if d.PublishedAt != nil {
		out[domain.FieldPublishedAt] = *d.PublishedAt
	}
	return out
}

func cloneDocument(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	cloned := *doc
	if doc.Extra != nil {
		cloned.Extra = make(map[string]any, len(doc.Extra))
		for key, value := range doc.Extra {
			cloned.Extra[key] = value
		}
	}
	if doc.PublishedAt != nil {
		at := *doc.PublishedAt
		cloned.PublishedAt = &at
	}
	return &cloned
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func timeValue(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		if v.IsZero() {
			return nil, nil
		}
		at := v.UTC()
		return &at, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil, nil
		}
		at := v.UTC()
		return &at, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		at, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		at = at.UTC()
		return &at, nil
	default:
		return nil, fmt.Errorf("unsupported time value %T", value)
	}
}
