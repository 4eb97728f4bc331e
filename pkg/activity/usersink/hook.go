// Package usersink forwards activity events to a go-users activity sink.
package usersink

import (
	"context"
	"strings"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"

	"github.com/goliatone/go-editorial/pkg/activity"
)

// Record is the go-users activity record written by Hook.
type Record = usertypes.ActivityRecord

// Sink is the part of a go-users activity sink Hook writes to.
type Sink interface {
	Log(ctx context.Context, record Record) error
}

// Hook maps events onto go-users activity records.
type Hook struct {
	Sink Sink
}

var _ activity.Hook = Hook{}

// Notify logs event to the sink. Events without a verb are dropped.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil || strings.TrimSpace(event.Verb) == "" {
		return nil
	}

	data := make(map[string]any, len(event.Metadata)+3)
	for key, value := range event.Metadata {
		data[key] = value
	}
	if event.DefinitionCode != "" {
		data["definition_code"] = event.DefinitionCode
	}
	if len(event.Recipients) > 0 {
		data["recipients"] = append([]string(nil), event.Recipients...)
	}

	actorID := parseID(event.ActorID)
	if actorID == uuid.Nil && strings.TrimSpace(event.ActorID) != "" {
		// go-users keys actors by uuid; keep non uuid author ids readable.
		data["actor"] = event.ActorID
	}
	channel := event.Channel
	if channel == "" {
		channel = activity.DefaultChannel
	}

	record := Record{
		ActorID:    actorID,
		UserID:     parseID(event.UserID),
		TenantID:   parseID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    channel,
		Data:       data,
		OccurredAt: event.OccurredAt,
	}
	return h.Sink.Log(ctx, record)
}

func parseID(value string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return id
}
