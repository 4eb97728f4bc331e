package buffer

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-editorial/internal/domain"
)

// ErrEmptyIdentity indicates BindIdentity was called without an identity.
var ErrEmptyIdentity = errors.New("buffer: identity required")

// ChangeKind describes what a notification is about.
type ChangeKind string

const (
	ChangeField       ChangeKind = "field"
	ChangePublishedAt ChangeKind = "published_at"
	ChangeStatus      ChangeKind = "status"
	ChangeSlug        ChangeKind = "slug"
	ChangeIdentity    ChangeKind = "identity"
)

// Change is delivered to subscribers after every committed mutation.
type Change struct {
	Kind     ChangeKind
	Name     string
	Revision uint64
}

// Edit reports whether the change came from the author editing content, as
// opposed to bookkeeping done by the save paths.
func (c Change) Edit() bool {
	return c.Kind == ChangeField || c.Kind == ChangePublishedAt
}

// Listener receives buffer changes synchronously.
type Listener func(Change)

// Field is one named attribute, in first write order.
type Field struct {
	Name  string
	Value any
}

// Buffer is the editable, in-memory representation of one document. It is
// owned by a single editing session. Every mutation is committed under the
// buffer lock and then announced to subscribers on the mutating goroutine.
type Buffer struct {
	mu          sync.RWMutex
	kind        domain.Kind
	identity    string
	status      domain.Status
	slug        string
	publishedAt *time.Time
	released    bool
	order       []string
	values      map[string]any
	revision    uint64

	listenersMu sync.RWMutex
	listeners   []subscription
	nextID      int
}

type subscription struct {
	id int
	fn Listener
}

// Option configures a Buffer, typically to reopen a stored document.
type Option func(*Buffer)

// WithKind sets the document kind. Defaults to article.
func WithKind(kind domain.Kind) Option {
	return func(b *Buffer) {
		if kind != "" {
			b.kind = kind
		}
	}
}

// WithIdentity opens the buffer for an existing document.
func WithIdentity(id string) Option {
	return func(b *Buffer) {
		b.identity = strings.TrimSpace(id)
	}
}

// WithStatus sets the stored status.
func WithStatus(status domain.Status) Option {
	return func(b *Buffer) {
		if status != "" {
			b.status = status
		}
	}
}

// WithSlug sets the stored slug.
func WithSlug(slug string) Option {
	return func(b *Buffer) {
		b.slug = slug
	}
}

// WithPublishedAt sets the stored publish time.
func WithPublishedAt(at *time.Time) Option {
	return func(b *Buffer) {
		b.publishedAt = cloneTime(at)
	}
}

// WithReleased marks a reopened document as published at some point, e.g. a
// draft restored from the archive. Its slug stays frozen.
func WithReleased(released bool) Option {
	return func(b *Buffer) {
		b.released = b.released || released
	}
}

// WithFields seeds the buffer with fields, in the given order.
func WithFields(fields ...Field) Option {
	return func(b *Buffer) {
		for _, field := range fields {
			b.put(field.Name, field.Value)
		}
	}
}

// New creates a draft buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		kind:   domain.KindArticle,
		status: domain.StatusDraft,
		values: make(map[string]any),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.status == domain.StatusPublished || (b.status == domain.StatusArchived && b.publishedAt != nil) {
		b.released = true
	}
	return b
}

// Kind returns the document kind.
func (b *Buffer) Kind() domain.Kind {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.kind
}

// Field returns the current value of a field.
func (b *Buffer) Field(name string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.values[name]
	return cloneValue(value), ok
}

// Title returns the title field as a string.
func (b *Buffer) Title() string {
	return b.stringField(domain.FieldTitle)
}

// Body returns the body field as a string.
func (b *Buffer) Body() string {
	return b.stringField(domain.FieldBody)
}

func (b *Buffer) stringField(name string) string {
	value, _ := b.Field(name)
	text, _ := value.(string)
	return text
}

// Fields returns every field in first write order.
func (b *Buffer) Fields() []Field {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fieldsLocked()
}

// SetField stores a value and notifies subscribers.
func (b *Buffer) SetField(name string, value any) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	b.mu.Lock()
	b.put(name, value)
	b.revision++
	change := Change{Kind: ChangeField, Name: name, Revision: b.revision}
	b.mu.Unlock()

	b.notify(change)
}

// RewriteField applies fn to the current string value of a field as a single
// read-modify-write. When fn reports no change nothing is stored and nobody
// is notified.
func (b *Buffer) RewriteField(name string, fn func(current string) (string, bool)) bool {
	b.mu.Lock()
	current, _ := b.values[name].(string)
	next, changed := fn(current)
	if !changed || next == current {
		b.mu.Unlock()
		return false
	}
	b.put(name, next)
	b.revision++
	change := Change{Kind: ChangeField, Name: name, Revision: b.revision}
	b.mu.Unlock()

	b.notify(change)
	return true
}

// Status returns the stored lifecycle status.
func (b *Buffer) Status() domain.Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// SetStatus records a lifecycle status. It does not count as an edit.
func (b *Buffer) SetStatus(status domain.Status) {
	b.mu.Lock()
	if b.status == status {
		b.mu.Unlock()
		return
	}
	b.status = status
	change := Change{Kind: ChangeStatus, Name: domain.FieldStatus, Revision: b.revision}
	b.mu.Unlock()

	b.notify(change)
}

// Slug returns the last persisted slug.
func (b *Buffer) Slug() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.slug
}

// SetSlug records the slug the store now holds.
func (b *Buffer) SetSlug(slug string) {
	b.mu.Lock()
	if b.slug == slug {
		b.mu.Unlock()
		return
	}
	b.slug = slug
	change := Change{Kind: ChangeSlug, Name: domain.FieldSlug, Revision: b.revision}
	b.mu.Unlock()

	b.notify(change)
}

// PublishedAt returns the publish time, if any.
func (b *Buffer) PublishedAt() *time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneTime(b.publishedAt)
}

// SetPublishedAt lets the author pick a publish time explicitly. It counts
// as an edit.
func (b *Buffer) SetPublishedAt(at *time.Time) {
	b.mu.Lock()
	b.publishedAt = cloneTime(at)
	b.revision++
	change := Change{Kind: ChangePublishedAt, Name: domain.FieldPublishedAt, Revision: b.revision}
	b.mu.Unlock()

	b.notify(change)
}

// MarkPublished records a successful publish without counting as an edit.
func (b *Buffer) MarkPublished(publishedAt time.Time, slug string) {
	b.mu.Lock()
	b.status = domain.StatusPublished
	b.publishedAt = &publishedAt
	b.released = true
	if slug != "" {
		b.slug = slug
	}
	change := Change{Kind: ChangeStatus, Name: domain.FieldStatus, Revision: b.revision}
	b.mu.Unlock()

	b.notify(change)
}

// Released reports whether the document has been published at least once,
// whatever its current status.
func (b *Buffer) Released() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.released
}

// Identity returns the bound identity or "" for a new document.
func (b *Buffer) Identity() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.identity
}

// BindIdentity assigns the store identity. Binding the same value again is a
// no-op; binding a different one fails with an identity conflict.
func (b *Buffer) BindIdentity(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyIdentity
	}

	b.mu.Lock()
	switch b.identity {
	case id:
		b.mu.Unlock()
		return nil
	case "":
		b.identity = id
	default:
		bound := b.identity
		b.mu.Unlock()
		return domain.IdentityConflictError(bound, id)
	}
	change := Change{Kind: ChangeIdentity, Name: domain.FieldID, Revision: b.revision}
	b.mu.Unlock()

	b.notify(change)
	return nil
}

// Revision increases on every edit. Save paths use it to tell whether the
// content they persisted is still current.
func (b *Buffer) Revision() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// Subscribe registers a listener and returns a function removing it.
func (b *Buffer) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	b.listenersMu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, subscription{id: id, fn: fn})
	b.listenersMu.Unlock()

	return func() {
		b.listenersMu.Lock()
		defer b.listenersMu.Unlock()
		for i, sub := range b.listeners {
			if sub.id == id {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

func (b *Buffer) notify(change Change) {
	b.listenersMu.RLock()
	listeners := make([]Listener, len(b.listeners))
	for i, sub := range b.listeners {
		listeners[i] = sub.fn
	}
	b.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(change)
	}
}

func (b *Buffer) put(name string, value any) {
	if _, ok := b.values[name]; !ok {
		b.order = append(b.order, name)
	}
	b.values[name] = cloneValue(value)
}

func (b *Buffer) fieldsLocked() []Field {
	out := make([]Field, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, Field{Name: name, Value: cloneValue(b.values[name])})
	}
	return out
}
