package publish

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-editorial/internal/buffer"
	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/internal/gateway"
	"github.com/goliatone/go-editorial/internal/lifecycle"
	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/internal/payload"
	"github.com/goliatone/go-editorial/internal/richtext"
	"github.com/goliatone/go-editorial/internal/saveguard"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

// ErrConfirmationRequired is returned when a publish was not confirmed by the author.
var ErrConfirmationRequired = errors.New("publish: confirmation required")

// ErrPublishInProgress is returned to a second publish while one is running.
var ErrPublishInProgress = saveguard.ErrPublishInProgress

// Request carries the author's publish intent.
type Request struct {
	Confirmed bool
}

// Result describes a completed publish or status transition.
type Result struct {
	Identity     string
	Created      bool
	Status       domain.Status
	Slug         string
	PublishedAt  *time.Time
	DisplayState domain.DisplayState
	Revision     uint64
}

// SavedFunc is told which revision a publish persisted.
type SavedFunc func(revision uint64, at time.Time)

// Coordinator promotes a buffer to published. It shares the save guard with
// the autosave scheduler so the two never race on the same document.
type Coordinator struct {
	buf     *buffer.Buffer
	saver   gateway.Saver
	guard   *saveguard.Guard
	machine *lifecycle.Machine
	now     func() time.Time
	logger  interfaces.Logger
	onSaved SavedFunc
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithGuard(guard *saveguard.Guard) Option {
	return func(c *Coordinator) {
		if guard != nil {
			c.guard = guard
		}
	}
}

func WithMachine(machine *lifecycle.Machine) Option {
	return func(c *Coordinator) {
		if machine != nil {
			c.machine = machine
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		if clock != nil {
			c.now = clock
		}
	}
}

func WithLogger(logger interfaces.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnSaved registers the hook run after the store accepted a publish,
// typically the scheduler's MarkSaved.
func WithOnSaved(fn SavedFunc) Option {
	return func(c *Coordinator) {
		c.onSaved = fn
	}
}

// New builds a coordinator for buf.
func New(buf *buffer.Buffer, saver gateway.Saver, opts ...Option) *Coordinator {
	c := &Coordinator{
		buf:     buf,
		saver:   saver,
		guard:   saveguard.New(),
		machine: lifecycle.Default(),
		now:     time.Now,
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publishing reports whether a publish currently holds the guard.
func (c *Coordinator) Publishing() bool {
	return c.guard.Publishing()
}

// Publish validates, confirms and persists the buffer as published. On
// failure the buffer is left as it was so the author can retry.
func (c *Coordinator) Publish(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	snap := c.buf.Snapshot()
	logger := logging.WithSessionContext(c.logger, "", snap.Identity, string(snap.Kind))

	if err := Validate(snap); err != nil {
		logger.Debug("publish.validation.failed", "error", err)
		return nil, err
	}
	if !req.Confirmed {
		return nil, ErrConfirmationRequired
	}

	release, err := c.guard.BeginPublish(ctx)
	if err != nil {
		logger.Debug("publish.rejected", "error", err)
		return nil, err
	}
	defer release()

	// Content typed while an autosave drained is part of this publish.
	snap = c.buf.Snapshot()
	if err := Validate(snap); err != nil {
		return nil, err
	}
	if _, err := c.machine.Apply(snap.Status, lifecycle.ActionPublish); err != nil {
		logger.Warn("publish.transition.rejected", "status", snap.Status, "error", err)
		return nil, err
	}

	now := c.now()
	built := payload.Publish(snap, now)
	result, err := c.saver.Save(ctx, snap.Identity, built.Payload)
	if err != nil {
		logger.Warn("publish.failed", "error", err, "timeout", errors.Is(err, domain.ErrTimeout))
		return nil, err
	}
	if err := c.buf.BindIdentity(result.Identity); err != nil {
		logger.Error("publish.identity.conflict", "error", err)
		return nil, err
	}

	slug := snap.Slug
	if built.Slug != "" {
		slug = built.Slug
	}
	c.buf.MarkPublished(*built.PublishedAt, slug)
	if c.onSaved != nil {
		c.onSaved(snap.Revision, now)
	}

	out := &Result{
		Identity:     result.Identity,
		Created:      result.Created,
		Status:       domain.StatusPublished,
		Slug:         slug,
		PublishedAt:  built.PublishedAt,
		DisplayState: lifecycle.DisplayState(domain.StatusPublished, built.PublishedAt, now),
		Revision:     snap.Revision,
	}
	logger.Info("publish.completed",
		"document_id", out.Identity,
		"created", out.Created,
		"slug", out.Slug,
		"display_state", out.DisplayState,
	)
	return out, nil
}

// Transition persists an archive or restore through the same exclusive hold
// a publish takes. Publishing goes through Publish.
func (c *Coordinator) Transition(ctx context.Context, action lifecycle.Action) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if action == lifecycle.ActionPublish {
		return nil, lifecycle.ErrInvalidTransition
	}

	release, err := c.guard.BeginPublish(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	snap := c.buf.Snapshot()
	logger := logging.WithSessionContext(c.logger, "", snap.Identity, string(snap.Kind))

	next, err := c.machine.Apply(snap.Status, action)
	if err != nil {
		logger.Warn("publish.transition.rejected", "action", action, "status", snap.Status, "error", err)
		return nil, err
	}
	if !snap.Bound() {
		// Nothing stored yet: the status change stays local until the next save.
		c.buf.SetStatus(next)
		return c.transitionResult(snap, next, "", false), nil
	}

	now := c.now()
	built := payload.Transition(snap, next, now)
	result, err := c.saver.Save(ctx, snap.Identity, built.Payload)
	if err != nil {
		logger.Warn("publish.transition.failed", "action", action, "error", err)
		return nil, err
	}
	c.buf.SetStatus(next)
	if c.onSaved != nil {
		c.onSaved(snap.Revision, now)
	}
	logger.Info("publish.transition.completed", "action", action, "status", next)
	return c.transitionResult(snap, next, result.Identity, result.Created), nil
}

func (c *Coordinator) transitionResult(snap buffer.Snapshot, status domain.Status, identity string, created bool) *Result {
	if identity == "" {
		identity = snap.Identity
	}
	return &Result{
		Identity:     identity,
		Created:      created,
		Status:       status,
		Slug:         snap.Slug,
		PublishedAt:  snap.PublishedAt,
		DisplayState: lifecycle.DisplayState(status, snap.PublishedAt, c.now()),
		Revision:     snap.Revision,
	}
}

// Validate checks the publish preconditions: a title and a body with visible
// content.
func Validate(snap buffer.Snapshot) error {
	err := validation.Errors{
		domain.FieldTitle: validation.Validate(snap.Title(),
			validation.Required.Error("title is required"),
			validation.By(notBlank("title is required")),
		),
		domain.FieldBody: validation.Validate(snap.Body(),
			validation.By(hasContent),
		),
	}.Filter()
	if err != nil {
		return domain.ValidationError("document is not ready to publish", err)
	}
	return nil
}

func notBlank(message string) validation.RuleFunc {
	return func(value any) error {
		text, _ := value.(string)
		if richtext.PlainText(text) == "" {
			return validation.NewError("editorial.publish.blank", message)
		}
		return nil
	}
}

func hasContent(value any) error {
	body, _ := value.(string)
	if richtext.IsEmpty(body) {
		return validation.NewError("editorial.publish.body_empty", "body is required")
	}
	return nil
}
