package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-editorial/internal/buffer"
	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/internal/gateway"
	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/internal/payload"
	"github.com/goliatone/go-editorial/internal/saveguard"
	"github.com/goliatone/go-editorial/internal/timers"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

// DefaultDebounce is the quiet period after the last edit before a draft save.
const DefaultDebounce = 3 * time.Second

// ErrClosed is returned by SaveNow once the scheduler was closed.
var ErrClosed = errors.New("autosave: scheduler closed")

// State is the scheduler's position in its cycle.
type State string

const (
	StateIdle       State = "idle"
	StatePending    State = "pending_debounce"
	StateSaving     State = "saving"
	StateSuppressed State = "suppressed"
)

// Report describes a finished save cycle.
type Report struct {
	Identity string
	Created  bool
	SavedAt  time.Time
	Revision uint64
	Skipped  bool
}

// Status is the scheduler's view for the status indicator.
type Status struct {
	State         State
	LastSavedAt   time.Time
	SavedRevision uint64
	LastError     error
}

// Scheduler debounces buffer edits into draft saves. Saves never overlap a
// publish: both go through the same guard.
type Scheduler struct {
	buf      *buffer.Buffer
	saver    gateway.Saver
	guard    *saveguard.Guard
	timers   timers.Factory
	now      func() time.Time
	debounce time.Duration
	logger   interfaces.Logger
	baseCtx  context.Context
	onSaved  func(ctx context.Context, report Report, manual bool)

	mu            sync.Mutex
	pending       timers.Timer
	generation    uint64
	deferred      bool
	deferredWait  time.Duration
	saving        bool
	lastSavedAt   time.Time
	savedRevision uint64
	lastErr       error
	closed        bool
	unsubscribe   func()
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithTimers swaps the timer factory, typically for timers.Manual in tests.
func WithTimers(factory timers.Factory) Option {
	return func(s *Scheduler) {
		if factory != nil {
			s.timers = factory
		}
	}
}

// WithClock overrides the clock used for save timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOnSaved is called after every save that reached the store, on the
// saving goroutine.
func WithOnSaved(fn func(ctx context.Context, report Report, manual bool)) Option {
	return func(s *Scheduler) {
		s.onSaved = fn
	}
}

// WithGuard shares the save guard with the publish coordinator.
func WithGuard(guard *saveguard.Guard) Option {
	return func(s *Scheduler) {
		if guard != nil {
			s.guard = guard
		}
	}
}

// WithContext sets the parent context of background saves.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		if ctx != nil {
			s.baseCtx = ctx
		}
	}
}

// New wires a scheduler to buf. It starts observing edits immediately.
func New(buf *buffer.Buffer, saver gateway.Saver, opts ...Option) *Scheduler {
	s := &Scheduler{
		buf:      buf,
		saver:    saver,
		guard:    saveguard.New(),
		timers:   timers.Real(),
		now:      time.Now,
		debounce: DefaultDebounce,
		logger:   logging.NoOp(),
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.guard.OnChange(s.onGuard)
	s.unsubscribe = buf.Subscribe(s.onChange)
	return s
}

// Status reports the current state for the status indicator.
func (s *Scheduler) Status() Status {
	publishing := s.guard.Publishing()

	s.mu.Lock()
	defer s.mu.Unlock()
	state := StateIdle
	switch {
	case s.saving:
		state = StateSaving
	case publishing:
		state = StateSuppressed
	case s.pending != nil:
		state = StatePending
	}
	return Status{
		State:         state,
		LastSavedAt:   s.lastSavedAt,
		SavedRevision: s.savedRevision,
		LastError:     s.lastErr,
	}
}

// Dirty reports whether the buffer holds edits no save has persisted yet.
func (s *Scheduler) Dirty() bool {
	revision := s.buf.Revision()
	s.mu.Lock()
	defer s.mu.Unlock()
	return revision > s.savedRevision
}

// MarkSaved records that another save path persisted revision at at.
func (s *Scheduler) MarkSaved(revision uint64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revision > s.savedRevision {
		s.savedRevision = revision
	}
	s.lastSavedAt = at
	s.lastErr = nil
}

// SaveNow runs a manual save. Unlike background saves its error is returned.
func (s *Scheduler) SaveNow(ctx context.Context) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	release, err := s.guard.BeginSave(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.stopPendingLocked()
	s.saving = true
	s.mu.Unlock()

	return s.cycle(ctx, release, true)
}

// Close stops observing the buffer and cancels the pending timer. An
// in-flight save is left to finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopPendingLocked()
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Scheduler) onChange(change buffer.Change) {
	if !change.Edit() {
		return
	}
	publishing := s.guard.Publishing()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if publishing {
		// The author is still typing; the quiet period restarts on release.
		s.deferLocked(s.debounce)
		return
	}
	s.armLocked(s.debounce)
}

func (s *Scheduler) onGuard(event saveguard.Event) {
	switch {
	case event.Kind == saveguard.EventAcquired && event.Holder == saveguard.HolderPublish:
		s.mu.Lock()
		if s.pending != nil {
			s.deferLocked(s.debounce)
		}
		s.mu.Unlock()
	case event.Kind == saveguard.EventReleased:
		s.reevaluate()
	}
}

func (s *Scheduler) reevaluate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.deferred {
		return
	}
	s.deferred = false
	s.armLocked(s.deferredWait)
}

// deferLocked postpones the next cycle until the guard is released. wait is
// the delay armed on release: the full debounce when the quiet period had not
// elapsed yet, zero when a timer already expired.
func (s *Scheduler) deferLocked(wait time.Duration) {
	s.stopPendingLocked()
	if !s.deferred || wait > s.deferredWait {
		s.deferredWait = wait
	}
	s.deferred = true
}

func (s *Scheduler) armLocked(d time.Duration) {
	s.stopPendingLocked()
	s.generation++
	generation := s.generation
	s.pending = s.timers.AfterFunc(d, func() {
		s.fire(generation)
	})
}

func (s *Scheduler) stopPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.generation++
}

func (s *Scheduler) fire(generation uint64) {
	s.mu.Lock()
	if s.closed || generation != s.generation {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()

	release, ok := s.guard.TryBeginSave()
	if !ok {
		s.mu.Lock()
		s.deferLocked(0)
		s.mu.Unlock()
		s.logger.Debug("autosave.deferred", "publishing", s.guard.Publishing())
		// The guard may have been released before deferred was recorded.
		if !s.guard.Publishing() && !s.guard.Saving() {
			s.reevaluate()
		}
		return
	}

	s.mu.Lock()
	s.saving = true
	s.mu.Unlock()

	_, _ = s.cycle(s.baseCtx, release, false)
}

func (s *Scheduler) cycle(ctx context.Context, release func(), manual bool) (*Report, error) {
	defer release()
	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	snap := s.buf.Snapshot()
	logger := logging.WithSessionContext(s.logger, "", snap.Identity, string(snap.Kind))

	if payload.Blank(snap) {
		logger.Debug("autosave.skipped.empty")
		return &Report{Identity: snap.Identity, Revision: snap.Revision, Skipped: true}, nil
	}

	s.mu.Lock()
	clean := snap.Bound() && snap.Revision <= s.savedRevision
	s.mu.Unlock()
	if clean {
		logger.Debug("autosave.skipped.clean", "revision", snap.Revision)
		return &Report{Identity: snap.Identity, Revision: snap.Revision, Skipped: true}, nil
	}

	now := s.now()
	built := payload.Draft(snap, now)
	result, err := s.saver.Save(ctx, snap.Identity, built.Payload)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		if manual {
			logger.Warn("autosave.manual.failed", "error", err)
			return nil, err
		}
		// Background failures stay out of the author's way; the next edit
		// re-arms the debounce.
		logger.Error("autosave.save.failed", "error", err, "timeout", errors.Is(err, domain.ErrTimeout))
		return nil, err
	}

	if err := s.buf.BindIdentity(result.Identity); err != nil {
		logger.Error("autosave.identity.conflict", "error", err)
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}
	if built.Slug != "" {
		s.buf.SetSlug(built.Slug)
	}
	s.MarkSaved(snap.Revision, now)

	logger.Info("autosave.save.completed",
		"document_id", result.Identity,
		"created", result.Created,
		"revision", snap.Revision,
		"manual", manual,
	)
	report := Report{
		Identity: result.Identity,
		Created:  result.Created,
		SavedAt:  now,
		Revision: snap.Revision,
	}
	if s.onSaved != nil {
		s.onSaved(ctx, report, manual)
	}
	return &report, nil
}
