package buffer

import (
	"time"

	"github.com/goliatone/go-editorial/internal/domain"
)

// Snapshot is an immutable copy of the buffer taken under a single lock, so a
// save payload never mixes two revisions.
type Snapshot struct {
	Kind        domain.Kind
	Identity    string
	Status      domain.Status
	Slug        string
	PublishedAt *time.Time
	// Released is true once the document has been published, even after a
	// restore brought it back to draft.
	Released bool
	Fields   []Field
	Revision uint64
}

// Snapshot copies the current buffer state.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		Kind:        b.kind,
		Identity:    b.identity,
		Status:      b.status,
		Slug:        b.slug,
		PublishedAt: cloneTime(b.publishedAt),
		Released:    b.released,
		Fields:      b.fieldsLocked(),
		Revision:    b.revision,
	}
}

// Field looks up a field in the snapshot.
func (s Snapshot) Field(name string) (any, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

// String returns a field as a string, or "" when absent or not a string.
func (s Snapshot) String(name string) string {
	value, _ := s.Field(name)
	text, _ := value.(string)
	return text
}

// Title returns the title field.
func (s Snapshot) Title() string {
	return s.String(domain.FieldTitle)
}

// Body returns the body field.
func (s Snapshot) Body() string {
	return s.String(domain.FieldBody)
}

// Bound reports whether the document already has a store identity.
func (s Snapshot) Bound() bool {
	return s.Identity != ""
}

// FieldMap flattens the fields into a payload map.
func (s Snapshot) FieldMap() map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, field := range s.Fields {
		out[field.Name] = cloneValue(field.Value)
	}
	return out
}
