package sessioncmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-editorial/internal/autosave"
	"github.com/goliatone/go-editorial/internal/lifecycle"
	"github.com/goliatone/go-editorial/internal/publish"
)

const (
	saveDraftMessageType  = "editorial.session.save_draft"
	publishMessageType    = "editorial.session.publish"
	transitionMessageType = "editorial.session.transition"
)

// SaveDraftCommand requests a manual save of an open session.
type SaveDraftCommand struct {
	SessionID      string                 `json:"session_id"`
	ResultCallback func(*autosave.Report) `json:"-"`
}

// Type implements command.Message.
func (SaveDraftCommand) Type() string { return saveDraftMessageType }

// Validate ensures the session is addressed.
func (cmd SaveDraftCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.SessionID, validation.Required, validation.By(notBlank("editorial.session.id_required", "session id is required"))),
	)
}

// PublishCommand requests a publish of an open session. Confirmed carries the
// author's answer to the confirmation prompt.
type PublishCommand struct {
	SessionID      string                `json:"session_id"`
	Confirmed      bool                  `json:"confirmed"`
	ResultCallback func(*publish.Result) `json:"-"`
}

// Type implements command.Message.
func (PublishCommand) Type() string { return publishMessageType }

// Validate ensures the session is addressed.
func (cmd PublishCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.SessionID, validation.Required, validation.By(notBlank("editorial.session.id_required", "session id is required"))),
	)
}

// TransitionCommand archives or restores the document of an open session.
type TransitionCommand struct {
	SessionID      string                `json:"session_id"`
	Action         lifecycle.Action      `json:"action"`
	ResultCallback func(*publish.Result) `json:"-"`
}

// Type implements command.Message.
func (TransitionCommand) Type() string { return transitionMessageType }

// Validate ensures the session is addressed and the action is an admin transition.
func (cmd TransitionCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.SessionID, validation.Required, validation.By(notBlank("editorial.session.id_required", "session id is required"))),
		validation.Field(&cmd.Action, validation.Required, validation.In(lifecycle.ActionArchive, lifecycle.ActionRestore).
			ErrorObject(validation.NewError("editorial.session.action_invalid", "action must be archive or restore"))),
	)
}

func notBlank(code, message string) validation.RuleFunc {
	return func(value any) error {
		text, _ := value.(string)
		if strings.TrimSpace(text) == "" {
			return validation.NewError(code, message)
		}
		return nil
	}
}
