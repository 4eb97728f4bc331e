package sessioncmd

import (
	"errors"

	"github.com/goliatone/go-editorial/internal/commands"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

// CommandRegistry is the minimal registration contract expected when wiring command handlers.
type CommandRegistry interface {
	RegisterCommand(handler any) error
}

// HandlerSet groups the session command handlers.
type HandlerSet struct {
	SaveDraft  *SaveDraftHandler
	Publish    *PublishHandler
	Transition *TransitionHandler
}

// Option customises handler wiring during registration.
type Option func(*options)

type options struct {
	saveDraftOpts  []commands.HandlerOption[SaveDraftCommand]
	publishOpts    []commands.HandlerOption[PublishCommand]
	transitionOpts []commands.HandlerOption[TransitionCommand]
}

func WithSaveDraftHandlerOptions(opts ...commands.HandlerOption[SaveDraftCommand]) Option {
	return func(cfg *options) { cfg.saveDraftOpts = append(cfg.saveDraftOpts, opts...) }
}

func WithPublishHandlerOptions(opts ...commands.HandlerOption[PublishCommand]) Option {
	return func(cfg *options) { cfg.publishOpts = append(cfg.publishOpts, opts...) }
}

func WithTransitionHandlerOptions(opts ...commands.HandlerOption[TransitionCommand]) Option {
	return func(cfg *options) { cfg.transitionOpts = append(cfg.transitionOpts, opts...) }
}

// RegisterSessionCommands builds the session handlers and registers them with
// reg when one is given.
func RegisterSessionCommands(reg CommandRegistry, sessions SessionResolver, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if sessions == nil {
		return nil, errors.New("session command registration: resolver is nil")
	}
	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	logger := commands.CommandLogger(provider, "session")
	set := &HandlerSet{
		SaveDraft:  NewSaveDraftHandler(sessions, logger, cfg.saveDraftOpts...),
		Publish:    NewPublishHandler(sessions, logger, cfg.publishOpts...),
		Transition: NewTransitionHandler(sessions, logger, cfg.transitionOpts...),
	}
	if reg != nil {
		for _, handler := range []any{set.SaveDraft, set.Publish, set.Transition} {
			if err := reg.RegisterCommand(handler); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}
