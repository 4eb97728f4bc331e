package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

// TelemetryStatus is the outcome class of one command execution.
type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo describes a finished command. Logger already carries the
// command fields.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

// Telemetry is invoked once per execution, after the outcome is known.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// DefaultTelemetry logs the outcome. A nil logger uses the execution logger
// carried by TelemetryInfo.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	return func(_ context.Context, _ T, info TelemetryInfo) {
		entry := logger
		if entry == nil {
			entry = EnsureLogger(info.Logger)
		} else {
			entry = logging.WithFields(entry, info.Fields)
		}
		elapsed := info.Duration.Milliseconds()
		switch info.Status {
		case TelemetryStatusSuccess:
			entry.Info("command.execute.success", "duration_ms", elapsed)
		case TelemetryStatusContextError:
			entry.Warn("command.execute.context_error", "duration_ms", elapsed, "error", info.Error)
		default:
			entry.Error("command.execute.failed", "duration_ms", elapsed, "error", info.Error)
		}
	}
}
