// Package activity describes editorial lifecycle events and the hooks that
// receive them.
package activity

import (
	"context"
	"errors"
	"time"
)

// Verbs emitted by editing sessions.
const (
	VerbCreate  = "create"
	VerbUpdate  = "update"
	VerbPublish = "publish"
	VerbArchive = "archive"
	VerbRestore = "restore"
)

// DefaultChannel tags events emitted by this module.
const DefaultChannel = "editorial"

// Event is one lifecycle change of a document.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Hook receives events. Implementations must be safe for concurrent use.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, event Event) error

func (f HookFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Hooks fans an event out to every hook and joins their errors.
type Hooks []Hook

func (h Hooks) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
