package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-editorial/internal/domain"
)

var (
	// ErrInvalidTransition indicates the requested transition is not allowed from the current status.
	ErrInvalidTransition = errors.New("lifecycle: transition not allowed")
	// ErrUnknownAction indicates no transition with the given name exists.
	ErrUnknownAction = errors.New("lifecycle: unknown action")
)

// Action names a lifecycle transition.
type Action string

const (
	ActionPublish Action = "publish"
	ActionArchive Action = "archive"
	ActionRestore Action = "restore"
)

// Transition describes one allowed edge.
type Transition struct {
	Action Action
	From   domain.Status
	To     domain.Status
}

// Machine is the draft/published/archived state machine shared by the save
// paths. Promotion is one directional: nothing moves published back to draft.
// Republishing a published document is an allowed self edge.
type Machine struct {
	transitions map[string]Transition
	byStatus    map[domain.Status][]Transition
}

// Default returns the editorial lifecycle.
func Default() *Machine {
	return New([]Transition{
		{Action: ActionPublish, From: domain.StatusDraft, To: domain.StatusPublished},
		{Action: ActionPublish, From: domain.StatusPublished, To: domain.StatusPublished},
		{Action: ActionArchive, From: domain.StatusDraft, To: domain.StatusArchived},
		{Action: ActionArchive, From: domain.StatusPublished, To: domain.StatusArchived},
		{Action: ActionRestore, From: domain.StatusArchived, To: domain.StatusDraft},
	})
}

// New compiles a machine from the supplied transitions.
func New(transitions []Transition) *Machine {
	m := &Machine{
		transitions: make(map[string]Transition, len(transitions)),
		byStatus:    make(map[domain.Status][]Transition),
	}
	for _, transition := range transitions {
		transition.Action = normalizeAction(transition.Action)
		m.transitions[transitionKey(transition.Action, transition.From)] = transition
		m.byStatus[transition.From] = append(m.byStatus[transition.From], transition)
	}
	return m
}

// Apply resolves the status reached by running action from the current status.
func (m *Machine) Apply(current domain.Status, action Action) (domain.Status, error) {
	if current == "" {
		current = domain.StatusDraft
	}
	action = normalizeAction(action)
	transition, ok := m.transitions[transitionKey(action, current)]
	if !ok {
		if !m.knows(action) {
			return "", fmt.Errorf("%w: %s", ErrUnknownAction, action)
		}
		return "", fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, current)
	}
	return transition.To, nil
}

// Available returns the transitions reachable from the supplied status.
func (m *Machine) Available(current domain.Status) []Transition {
	transitions := m.byStatus[current]
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

func (m *Machine) knows(action Action) bool {
	for _, transition := range m.transitions {
		if transition.Action == action {
			return true
		}
	}
	return false
}

func normalizeAction(action Action) Action {
	return Action(strings.ToLower(strings.TrimSpace(string(action))))
}

func transitionKey(action Action, from domain.Status) string {
	return string(action) + "::" + string(from)
}
