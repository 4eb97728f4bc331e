package saveguard

import (
	"context"
	"errors"
	"sync"
)

// ErrPublishInProgress rejects a second publish, or a manual save, while a
// publish holds the guard. Callers are not queued.
var ErrPublishInProgress = errors.New("saveguard: publish already in progress")

// Holder identifies which save path owns the guard.
type Holder string

const (
	HolderSave    Holder = "save"
	HolderPublish Holder = "publish"
)

// EventKind tells listeners whether the guard was taken or given back.
type EventKind string

const (
	EventAcquired EventKind = "acquired"
	EventReleased EventKind = "released"
)

// Event is delivered to listeners after the guard state changed.
type Event struct {
	Kind   EventKind
	Holder Holder
}

// Guard serialises store calls for one buffer: at most one save or publish is
// in flight. A publish marks the guard as publishing as soon as it asks for
// it, so background saves stop starting while the publish drains any save
// already running.
type Guard struct {
	mu         sync.Mutex
	saving     bool
	publishing bool
	released   chan struct{}
	listeners  []func(Event)
}

// New returns an idle guard.
func New() *Guard {
	return &Guard{released: make(chan struct{})}
}

// OnChange registers a listener for acquire and release events. Listeners run
// on the goroutine that changed the guard, without the guard lock held.
func (g *Guard) OnChange(fn func(Event)) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.listeners = append(g.listeners, fn)
	g.mu.Unlock()
}

// Publishing reports whether a publish holds or is waiting for the guard.
func (g *Guard) Publishing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.publishing
}

// Saving reports whether a save is in flight.
func (g *Guard) Saving() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saving
}

// TryBeginSave takes the guard for a background save without waiting.
func (g *Guard) TryBeginSave() (func(), bool) {
	g.mu.Lock()
	if g.saving || g.publishing {
		g.mu.Unlock()
		return nil, false
	}
	g.saving = true
	g.mu.Unlock()

	g.emit(Event{Kind: EventAcquired, Holder: HolderSave})
	return g.releaser(HolderSave), true
}

// BeginSave takes the guard for a manual save, waiting for an in-flight save
// to finish. It fails fast while a publish is active.
func (g *Guard) BeginSave(ctx context.Context) (func(), error) {
	for {
		g.mu.Lock()
		if g.publishing {
			g.mu.Unlock()
			return nil, ErrPublishInProgress
		}
		if !g.saving {
			g.saving = true
			g.mu.Unlock()
			g.emit(Event{Kind: EventAcquired, Holder: HolderSave})
			return g.releaser(HolderSave), nil
		}
		wait := g.released
		g.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// BeginPublish takes the guard for a publish. A concurrent publish is
// rejected immediately; an in-flight save is waited for.
func (g *Guard) BeginPublish(ctx context.Context) (func(), error) {
	g.mu.Lock()
	if g.publishing {
		g.mu.Unlock()
		return nil, ErrPublishInProgress
	}
	g.publishing = true
	g.mu.Unlock()

	g.emit(Event{Kind: EventAcquired, Holder: HolderPublish})

	for {
		g.mu.Lock()
		if !g.saving {
			g.mu.Unlock()
			return g.releaser(HolderPublish), nil
		}
		wait := g.released
		g.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			g.release(HolderPublish)
			return nil, ctx.Err()
		}
	}
}

func (g *Guard) releaser(holder Holder) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			g.release(holder)
		})
	}
}

func (g *Guard) release(holder Holder) {
	g.mu.Lock()
	switch holder {
	case HolderPublish:
		g.publishing = false
	default:
		g.saving = false
	}
	close(g.released)
	g.released = make(chan struct{})
	g.mu.Unlock()

	g.emit(Event{Kind: EventReleased, Holder: holder})
}

func (g *Guard) emit(event Event) {
	g.mu.Lock()
	listeners := append([]func(Event){}, g.listeners...)
	g.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}
