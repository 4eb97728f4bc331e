package sessioncmd

import (
	"context"
	"errors"
	"fmt"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-editorial/internal/commands"
	"github.com/goliatone/go-editorial/internal/editor"
	"github.com/goliatone/go-editorial/internal/lifecycle"
	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/internal/publish"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

const (
	saveDraftOperation  = "session.save_draft"
	publishOperation    = "session.publish"
	transitionOperation = "session.transition"
)

// ErrSessionNotFound is returned when a command addresses a session that is not open.
var ErrSessionNotFound = errors.New("session command: session not found")

// SessionResolver looks up open sessions by id.
type SessionResolver interface {
	Session(id string) (*editor.Session, bool)
}

var (
	_ command.Commander[SaveDraftCommand]  = (*SaveDraftHandler)(nil)
	_ command.Commander[PublishCommand]    = (*PublishHandler)(nil)
	_ command.Commander[TransitionCommand] = (*TransitionHandler)(nil)
)

func resolve(sessions SessionResolver, id string) (*editor.Session, error) {
	session, ok := sessions.Session(id)
	if !ok || session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// SaveDraftHandler runs manual saves.
type SaveDraftHandler struct {
	inner *commands.Handler[SaveDraftCommand]
}

// NewSaveDraftHandler creates a handler bound to sessions.
func NewSaveDraftHandler(sessions SessionResolver, logger interfaces.Logger, opts ...commands.HandlerOption[SaveDraftCommand]) *SaveDraftHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg SaveDraftCommand) error {
		session, err := resolve(sessions, msg.SessionID)
		if err != nil {
			return err
		}
		report, err := session.RequestManualSave(ctx)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"document_id": report.Identity,
			"created":     report.Created,
			"skipped":     report.Skipped,
		}).Debug("session.command.save_draft.completed")
		if msg.ResultCallback != nil {
			msg.ResultCallback(report)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[SaveDraftCommand]{
		commands.WithLogger[SaveDraftCommand](baseLogger),
		commands.WithOperation[SaveDraftCommand](saveDraftOperation),
		commands.WithMessageFields(func(msg SaveDraftCommand) map[string]any {
			return map[string]any{"session_id": msg.SessionID}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[SaveDraftCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &SaveDraftHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[SaveDraftCommand].
func (h *SaveDraftHandler) Execute(ctx context.Context, msg SaveDraftCommand) error {
	return h.inner.Execute(ctx, msg)
}

// PublishHandler runs publishes.
type PublishHandler struct {
	inner *commands.Handler[PublishCommand]
}

// NewPublishHandler creates a handler bound to sessions.
func NewPublishHandler(sessions SessionResolver, logger interfaces.Logger, opts ...commands.HandlerOption[PublishCommand]) *PublishHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg PublishCommand) error {
		session, err := resolve(sessions, msg.SessionID)
		if err != nil {
			return err
		}
		result, err := session.RequestPublish(ctx, msg.Confirmed)
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(result)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[PublishCommand]{
		commands.WithLogger[PublishCommand](baseLogger),
		commands.WithOperation[PublishCommand](publishOperation),
		commands.WithMessageFields(func(msg PublishCommand) map[string]any {
			return map[string]any{"session_id": msg.SessionID, "confirmed": msg.Confirmed}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[PublishCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &PublishHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[PublishCommand].
func (h *PublishHandler) Execute(ctx context.Context, msg PublishCommand) error {
	return h.inner.Execute(ctx, msg)
}

// TransitionHandler runs archive and restore.
type TransitionHandler struct {
	inner *commands.Handler[TransitionCommand]
}

// NewTransitionHandler creates a handler bound to sessions.
func NewTransitionHandler(sessions SessionResolver, logger interfaces.Logger, opts ...commands.HandlerOption[TransitionCommand]) *TransitionHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg TransitionCommand) error {
		session, err := resolve(sessions, msg.SessionID)
		if err != nil {
			return err
		}
		var run func(context.Context) (*publish.Result, error)
		switch msg.Action {
		case lifecycle.ActionArchive:
			run = session.Archive
		default:
			run = session.Restore
		}
		result, err := run(ctx)
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(result)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[TransitionCommand]{
		commands.WithLogger[TransitionCommand](baseLogger),
		commands.WithOperation[TransitionCommand](transitionOperation),
		commands.WithMessageFields(func(msg TransitionCommand) map[string]any {
			return map[string]any{"session_id": msg.SessionID, "action": msg.Action}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[TransitionCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &TransitionHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[TransitionCommand].
func (h *TransitionHandler) Execute(ctx context.Context, msg TransitionCommand) error {
	return h.inner.Execute(ctx, msg)
}
