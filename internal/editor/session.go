// Package editor assembles the buffer, autosave, publish and upload
// components into one editing session.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-editorial/internal/autosave"
	"github.com/goliatone/go-editorial/internal/buffer"
	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/internal/gateway"
	"github.com/goliatone/go-editorial/internal/lifecycle"
	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/internal/publish"
	"github.com/goliatone/go-editorial/internal/saveguard"
	"github.com/goliatone/go-editorial/internal/timers"
	"github.com/goliatone/go-editorial/internal/upload"
	"github.com/goliatone/go-editorial/pkg/activity"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

var (
	// ErrNoStorage is returned by InsertAsset when no binary storage was configured.
	ErrNoStorage = errors.New("editor: no binary storage configured")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("editor: session closed")
)

// Session is one author editing one document.
type Session struct {
	id     string
	buf    *buffer.Buffer
	guard  *saveguard.Guard
	saves  *autosave.Scheduler
	pub    *publish.Coordinator
	ups    *upload.Mediator
	now    func() time.Time
	logger interfaces.Logger

	activity   activity.Hook
	identities interfaces.IdentityProvider

	openingTitle string

	mu            sync.Mutex
	publishFailed bool
	lastErr       error
	closed        bool
}

type settings struct {
	storage    interfaces.BinaryStorage
	debounce   time.Duration
	timers     timers.Factory
	now        func() time.Time
	provider   interfaces.LoggerProvider
	ctx        context.Context
	machine    *lifecycle.Machine
	uploadOpts []upload.Option
	listener   upload.Listener
	activity   activity.Hook
	identities interfaces.IdentityProvider
}

// Option configures a Session.
type Option func(*settings)

func WithStorage(storage interfaces.BinaryStorage) Option {
	return func(s *settings) { s.storage = storage }
}

func WithDebounce(d time.Duration) Option {
	return func(s *settings) { s.debounce = d }
}

func WithTimers(factory timers.Factory) Option {
	return func(s *settings) { s.timers = factory }
}

func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(s *settings) { s.provider = provider }
}

// WithContext sets the parent context of background saves and uploads.
func WithContext(ctx context.Context) Option {
	return func(s *settings) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

func WithMachine(machine *lifecycle.Machine) Option {
	return func(s *settings) { s.machine = machine }
}

// WithUploadOptions forwards options to the upload mediator.
func WithUploadOptions(opts ...upload.Option) Option {
	return func(s *settings) { s.uploadOpts = append(s.uploadOpts, opts...) }
}

// WithActivity reports creates, manual saves, publishes and admin
// transitions to hook. identities resolves the acting author.
func WithActivity(hook activity.Hook, identities interfaces.IdentityProvider) Option {
	return func(s *settings) {
		s.activity = hook
		s.identities = identities
	}
}

// WithUploadListener receives every upload outcome.
func WithUploadListener(listener upload.Listener) Option {
	return func(s *settings) { s.listener = listener }
}

// New opens a session over buf. Edits start feeding autosave immediately.
func New(id string, buf *buffer.Buffer, saver gateway.Saver, opts ...Option) *Session {
	cfg := settings{
		timers: timers.Real(),
		now:    time.Now,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	snap := buf.Snapshot()
	kind := string(snap.Kind)
	session := &Session{
		id:           id,
		buf:          buf,
		guard:        saveguard.New(),
		now:          cfg.now,
		logger:       logging.WithSessionContext(logging.BufferLogger(cfg.provider), id, snap.Identity, kind),
		activity:     cfg.activity,
		identities:   cfg.identities,
		openingTitle: snap.Title(),
	}

	session.saves = autosave.New(buf, saver,
		autosave.WithGuard(session.guard),
		autosave.WithDebounce(cfg.debounce),
		autosave.WithTimers(cfg.timers),
		autosave.WithClock(cfg.now),
		autosave.WithContext(cfg.ctx),
		autosave.WithOnSaved(session.onSaved),
		autosave.WithLogger(logging.WithSessionContext(logging.AutosaveLogger(cfg.provider), id, "", kind)),
	)
	session.pub = publish.New(buf, saver,
		publish.WithGuard(session.guard),
		publish.WithMachine(cfg.machine),
		publish.WithClock(cfg.now),
		publish.WithOnSaved(session.saves.MarkSaved),
		publish.WithLogger(logging.WithSessionContext(logging.PublishLogger(cfg.provider), id, "", kind)),
	)
	if cfg.storage != nil {
		uploadOpts := append([]upload.Option{
			upload.WithClock(cfg.now),
			upload.WithContext(cfg.ctx),
			upload.WithLogger(logging.WithSessionContext(logging.UploadLogger(cfg.provider), id, "", kind)),
			upload.WithListener(session.uploadListener(cfg.listener)),
		}, cfg.uploadOpts...)
		session.ups = upload.New(buf, cfg.storage, uploadOpts...)
	}
	return session
}

func (s *Session) ID() string { return s.id }

func (s *Session) Kind() domain.Kind { return s.buf.Kind() }

// Buffer exposes the underlying buffer for field level access.
func (s *Session) Buffer() *buffer.Buffer { return s.buf }

// Snapshot returns a copy of the current document state.
func (s *Session) Snapshot() buffer.Snapshot { return s.buf.Snapshot() }

// Uploads returns the upload mediator, nil without storage.
func (s *Session) Uploads() *upload.Mediator { return s.ups }

func (s *Session) SetTitle(title string) { s.buf.SetField(domain.FieldTitle, title) }

func (s *Session) SetBody(body string) { s.buf.SetField(domain.FieldBody, body) }

// SetField stores any other document attribute, e.g. cover or tags.
func (s *Session) SetField(name string, value any) { s.buf.SetField(name, value) }

// SetPublishedAt schedules the document; nil clears a future date.
func (s *Session) SetPublishedAt(at *time.Time) { s.buf.SetPublishedAt(at) }

// RequestManualSave saves now and returns the outcome, errors included.
func (s *Session) RequestManualSave(ctx context.Context) (*autosave.Report, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	report, err := s.saves.SaveNow(ctx)
	if err == nil {
		s.mu.Lock()
		s.lastErr = nil
		s.mu.Unlock()
	}
	return report, err
}

// RequestPublish publishes the document. A failure keeps the session in a
// blocking state until a later publish succeeds.
func (s *Session) RequestPublish(ctx context.Context, confirmed bool) (*publish.Result, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	result, err := s.pub.Publish(ctx, publish.Request{Confirmed: confirmed})

	s.mu.Lock()
	switch {
	case err == nil:
		s.publishFailed = false
		s.lastErr = nil
	case errors.Is(err, publish.ErrConfirmationRequired), errors.Is(err, publish.ErrPublishInProgress):
	default:
		s.publishFailed = true
		s.lastErr = err
	}
	s.mu.Unlock()

	if err == nil {
		s.emit(ctx, activity.VerbPublish, result.Identity, resultMetadata(result))
	}
	return result, err
}

// Archive moves the document out of circulation.
func (s *Session) Archive(ctx context.Context) (*publish.Result, error) {
	return s.transition(ctx, lifecycle.ActionArchive)
}

// Restore brings an archived document back as a draft.
func (s *Session) Restore(ctx context.Context) (*publish.Result, error) {
	return s.transition(ctx, lifecycle.ActionRestore)
}

func (s *Session) transition(ctx context.Context, action lifecycle.Action) (*publish.Result, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	result, err := s.pub.Transition(ctx, action)
	s.record(err)
	if err == nil && result.Identity != "" {
		s.emit(ctx, string(action), result.Identity, resultMetadata(result))
	}
	return result, err
}

func (s *Session) onSaved(ctx context.Context, report autosave.Report, manual bool) {
	switch {
	case report.Created:
		s.emit(ctx, activity.VerbCreate, report.Identity, map[string]any{"manual": manual})
	case manual:
		s.emit(ctx, activity.VerbUpdate, report.Identity, map[string]any{"revision": report.Revision})
	}
}

func (s *Session) emit(ctx context.Context, verb, identity string, metadata map[string]any) {
	if s.activity == nil {
		return
	}
	actor := ""
	if s.identities != nil {
		if user, err := s.identities.CurrentUser(ctx); err == nil && user != nil {
			actor = user.ID
		}
	}
	kind := string(s.buf.Kind())
	event := activity.Event{
		Verb:           verb,
		ActorID:        actor,
		ObjectType:     kind,
		ObjectID:       identity,
		Channel:        activity.DefaultChannel,
		DefinitionCode: kind + ":" + verb,
		Metadata:       metadata,
		OccurredAt:     s.now(),
	}
	if err := s.activity.Notify(ctx, event); err != nil {
		s.logger.Warn("session.activity.failed", "verb", verb, "document_id", identity, "error", err)
	}
}

func resultMetadata(result *publish.Result) map[string]any {
	meta := map[string]any{
		"status":        string(result.Status),
		"display_state": string(result.DisplayState),
	}
	if result.Slug != "" {
		meta["slug"] = result.Slug
	}
	if result.PublishedAt != nil {
		meta["published_at"] = *result.PublishedAt
	}
	return meta
}

// InsertAsset drops an asset placeholder at cursor and uploads it in the background.
func (s *Session) InsertAsset(ctx context.Context, asset upload.Asset, cursor int) (upload.Placeholder, error) {
	if s.isClosed() {
		return upload.Placeholder{}, ErrClosed
	}
	if s.ups == nil {
		return upload.Placeholder{}, ErrNoStorage
	}
	return s.ups.Insert(ctx, asset, cursor)
}

// CanLeave reports whether the author may navigate away without losing work.
func (s *Session) CanLeave() bool {
	ind := s.Indicator()
	return !ind.Dirty && !ind.Saving && !ind.PublishFailed && ind.PendingUploads == 0
}

// Close stops autosave and waits for in-flight uploads until ctx is done.
// Unsaved edits are not flushed; call RequestManualSave first for that.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.saves.Close()
	if s.ups != nil {
		if err := s.ups.Wait(ctx); err != nil {
			s.logger.Warn("session.close.uploads_pending", "pending", s.ups.Pending(), "error", err)
			return err
		}
	}
	s.logger.Debug("session.closed", "dirty", s.saves.Dirty())
	return nil
}

func (s *Session) uploadListener(next upload.Listener) upload.Listener {
	return func(outcome upload.Outcome) {
		if outcome.Err != nil {
			s.record(outcome.Err)
		}
		if next != nil {
			next(outcome)
		}
	}
}

func (s *Session) record(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Indicator is the status line next to the editor.
type Indicator struct {
	TitleChanged   bool
	Dirty          bool
	Saving         bool
	Publishing     bool
	Autosave       autosave.State
	LastSavedAt    time.Time
	Status         domain.Status
	DisplayState   domain.DisplayState
	PendingUploads int
	PublishFailed  bool
	LastError      error
}

// Indicator reports the session state for the status line.
func (s *Session) Indicator() Indicator {
	snap := s.buf.Snapshot()
	status := s.saves.Status()

	out := Indicator{
		TitleChanged: strings.TrimSpace(snap.Title()) != strings.TrimSpace(s.openingTitle),
		Dirty:        s.saves.Dirty(),
		Saving:       status.State == autosave.StateSaving,
		Publishing:   s.guard.Publishing(),
		Autosave:     status.State,
		LastSavedAt:  status.LastSavedAt,
		Status:       snap.Status,
		DisplayState: lifecycle.DisplayState(snap.Status, snap.PublishedAt, s.now()),
		LastError:    status.LastError,
	}
	if s.ups != nil {
		out.PendingUploads = s.ups.Pending()
	}

	s.mu.Lock()
	out.PublishFailed = s.publishFailed
	if s.lastErr != nil {
		out.LastError = s.lastErr
	}
	s.mu.Unlock()
	return out
}

// Label is the short text of the indicator: saving, saved at a time, or not saved.
func (i Indicator) Label() string {
	switch {
	case i.Saving || i.Publishing:
		return "saving"
	case i.LastSavedAt.IsZero() || i.Dirty:
		if i.LastSavedAt.IsZero() {
			return "not saved"
		}
		return "unsaved changes since " + i.LastSavedAt.Format("15:04")
	default:
		return "saved at " + i.LastSavedAt.Format("15:04")
	}
}
