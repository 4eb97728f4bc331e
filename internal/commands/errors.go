package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-editorial/internal/domain"
)

const (
	textCodeInvalidMessage = "COMMAND_VALIDATION_FAILED"
	textCodeCanceled       = "COMMAND_CANCELED"
	textCodeFailed         = "COMMAND_EXECUTION_FAILED"
)

// classify tags err for callers of a command. Errors already carrying a
// category, including every domain error, pass through untouched. The
// returned status drives telemetry.
func classify(err error) (TelemetryStatus, error) {
	switch {
	case err == nil:
		return TelemetryStatusSuccess, nil
	case errors.Is(err, domain.ErrTimeout):
		return TelemetryStatusContextError, err
	case errors.Is(err, context.DeadlineExceeded):
		return TelemetryStatusContextError, domain.TimeoutError("command", err)
	case errors.Is(err, context.Canceled):
		return TelemetryStatusContextError, tag(err, goerrors.CategoryCommand, textCodeCanceled, "command cancelled")
	default:
		return TelemetryStatusFailed, tag(err, goerrors.CategoryCommand, textCodeFailed, "command execution failed")
	}
}

func invalidMessage(err error) error {
	return tag(err, goerrors.CategoryValidation, textCodeInvalidMessage, "command validation failed")
}

func tag(err error, category goerrors.Category, code, message string) error {
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, category, message).WithTextCode(code)
}
