package editorial

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-editorial/internal/autosave"
	"github.com/goliatone/go-editorial/internal/buffer"
	"github.com/goliatone/go-editorial/internal/commands"
	sessioncmd "github.com/goliatone/go-editorial/internal/commands/session"
	"github.com/goliatone/go-editorial/internal/di"
	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/internal/editor"
	"github.com/goliatone/go-editorial/internal/identity"
	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/internal/publish"
	"github.com/goliatone/go-editorial/internal/richtext"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

// Session is an open editing session.
type Session = editor.Session

// Indicator is the status indicator of a session.
type Indicator = editor.Indicator

// SaveReport describes a manual or background save.
type SaveReport = autosave.Report

// PublishResult describes a completed publish or admin transition.
type PublishResult = publish.Result

// Kind identifies the collection a document belongs to.
type Kind = domain.Kind

const (
	KindArticle = domain.KindArticle
	KindProject = domain.KindProject
)

// Command messages accepted by the registered handlers.
type (
	SaveDraftCommand  = sessioncmd.SaveDraftCommand
	PublishCommand    = sessioncmd.PublishCommand
	TransitionCommand = sessioncmd.TransitionCommand
)

var (
	// ErrModuleClosed is returned once Close has been called.
	ErrModuleClosed = errors.New("editorial: module closed")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = sessioncmd.ErrSessionNotFound
)

// reserved record keys that are carried by the buffer itself, not as fields.
var reservedRecordKeys = map[string]struct{}{
	domain.FieldID:          {},
	domain.FieldSlug:        {},
	domain.FieldStatus:      {},
	domain.FieldPublishedAt: {},
	domain.FieldUpdatedAt:   {},
	domain.FieldAuthorID:    {},
	domain.FieldExcerpt:     {},
	"created_at":            {},
}

// Module owns the editing sessions of one process.
type Module struct {
	container *di.Container
	renderer  *richtext.Renderer
	logger    interfaces.Logger

	mu       sync.Mutex
	sessions map[string]*editor.Session
	closed   bool
}

// New constructs a module using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{
		container: container,
		renderer:  richtext.NewRenderer(),
		logger:    logging.ModuleLogger(container.LoggerProvider(), "editorial.module"),
		sessions:  make(map[string]*editor.Session),
	}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// NewSession opens a session for a new, unsaved document of kind.
func (m *Module) NewSession(kind Kind, opts ...editor.Option) (*Session, error) {
	return m.open(buffer.New(buffer.WithKind(kind)), opts)
}

// OpenSession loads the stored document id of kind and opens a session over
// it. A document that is already open returns its existing session.
func (m *Module) OpenSession(ctx context.Context, kind Kind, id string, opts ...editor.Option) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return m.NewSession(kind, opts...)
	}
	if session, ok := m.Session(identity.SessionID(string(kind), id)); ok {
		return session, nil
	}
	record, err := m.container.Store().Get(ctx, kind.Table(), id)
	if err != nil {
		return nil, domain.StoreError(err)
	}
	buf, err := bufferFromRecord(kind, id, record, m.container.Clock()())
	if err != nil {
		return nil, err
	}
	return m.open(buf, opts)
}

// ImportSession opens a session for a new document seeded from markdown with
// front matter. Imported documents always start as drafts; a front matter
// publish time is kept as the intended publish time.
func (m *Module) ImportSession(kind Kind, source []byte, opts ...editor.Option) (*Session, error) {
	doc, err := richtext.ParseDocument(source, m.renderer)
	if err != nil {
		return nil, domain.ValidationError("markdown document could not be imported", err)
	}

	fields := []buffer.Field{
		{Name: domain.FieldTitle, Value: doc.Title},
		{Name: domain.FieldBody, Value: doc.HTML},
	}
	if doc.Excerpt != "" {
		fields = append(fields, buffer.Field{Name: domain.FieldExcerpt, Value: doc.Excerpt})
	}
	if doc.Category != "" {
		fields = append(fields, buffer.Field{Name: domain.FieldCategory, Value: doc.Category})
	}
	if len(doc.Tags) > 0 {
		fields = append(fields, buffer.Field{Name: domain.FieldTags, Value: doc.Tags})
	}
	if doc.Cover != "" {
		fields = append(fields, buffer.Field{Name: domain.FieldCover, Value: doc.Cover})
	}
	fields = append(fields, sortedFields(doc.Extra)...)

	buf := buffer.New(
		buffer.WithKind(kind),
		buffer.WithPublishedAt(doc.PublishedAt),
		buffer.WithFields(fields...),
	)
	return m.open(buf, opts)
}

// Session returns an open session.
func (m *Module) Session(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	return session, ok
}

// Sessions lists the ids of open sessions.
func (m *Module) Sessions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseSession closes one session and forgets it.
func (m *Module) CloseSession(ctx context.Context, id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session.Close(ctx)
}

// RegisterCommands registers the session command handlers with reg.
func (m *Module) RegisterCommands(reg sessioncmd.CommandRegistry) (*sessioncmd.HandlerSet, error) {
	timeout := m.container.CommandTimeout()
	return sessioncmd.RegisterSessionCommands(reg, m, m.container.LoggerProvider(),
		sessioncmd.WithSaveDraftHandlerOptions(commands.WithTimeout[sessioncmd.SaveDraftCommand](timeout)),
		sessioncmd.WithPublishHandlerOptions(commands.WithTimeout[sessioncmd.PublishCommand](timeout)),
		sessioncmd.WithTransitionHandlerOptions(commands.WithTimeout[sessioncmd.TransitionCommand](timeout)),
	)
}

// Close stops every session, waits for their uploads and releases the store.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*editor.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = map[string]*editor.Session{}
	m.mu.Unlock()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, session := range sessions {
		group.Go(func() error {
			return session.Close(groupCtx)
		})
	}
	err := group.Wait()
	m.logger.Info("module.closed", "sessions", len(sessions))
	return errors.Join(err, m.container.Close())
}

func (m *Module) open(buf *buffer.Buffer, opts []editor.Option) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrModuleClosed
	}
	id := uuid.NewString()
	if documentID := buf.Identity(); documentID != "" {
		id = identity.SessionID(string(buf.Kind()), documentID)
		if existing, ok := m.sessions[id]; ok {
			return existing, nil
		}
	}
	session := editor.New(id, buf, m.container.Gateway(buf.Kind()), m.container.SessionOptions(opts...)...)
	m.sessions[id] = session
	m.logger.Debug("session.opened", "session_id", id, "kind", string(buf.Kind()), "document_id", buf.Identity())
	return session, nil
}

// bufferFromRecord reopens a stored document. A draft whose publish time has
// already passed was published before and restored, so its slug stays put.
func bufferFromRecord(kind Kind, id string, record map[string]any, now time.Time) (*buffer.Buffer, error) {
	status, err := domain.ParseStatus(stringOf(record[domain.FieldStatus]))
	if err != nil {
		return nil, domain.StoreError(err)
	}

	fields := []buffer.Field{
		{Name: domain.FieldTitle, Value: stringOf(record[domain.FieldTitle])},
		{Name: domain.FieldBody, Value: stringOf(record[domain.FieldBody])},
	}
	// Derived excerpts are not seeded so they follow later body edits.
	if excerpt := stringOf(record[domain.FieldExcerpt]); excerpt != "" &&
		excerpt != richtext.Excerpt(stringOf(record[domain.FieldBody]), richtext.DefaultExcerptLength) {
		fields = append(fields, buffer.Field{Name: domain.FieldExcerpt, Value: excerpt})
	}
	extra := make(map[string]any, len(record))
	for key, value := range record {
		if _, reserved := reservedRecordKeys[key]; reserved || key == domain.FieldTitle || key == domain.FieldBody {
			continue
		}
		extra[key] = value
	}
	fields = append(fields, sortedFields(extra)...)
	publishedAt := timeOf(record[domain.FieldPublishedAt])

	return buffer.New(
		buffer.WithKind(kind),
		buffer.WithIdentity(id),
		buffer.WithStatus(status),
		buffer.WithSlug(stringOf(record[domain.FieldSlug])),
		buffer.WithPublishedAt(publishedAt),
		buffer.WithReleased(publishedAt != nil && !publishedAt.After(now)),
		buffer.WithFields(fields...),
	), nil
}

func sortedFields(values map[string]any) []buffer.Field {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fields := make([]buffer.Field, 0, len(keys))
	for _, key := range keys {
		fields = append(fields, buffer.Field{Name: key, Value: values[key]})
	}
	return fields
}

func stringOf(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func timeOf(value any) *time.Time {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return &v
	case *time.Time:
		return v
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}
