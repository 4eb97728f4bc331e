package logging

import (
	"context"
	"maps"
	"strings"

	"github.com/goliatone/go-editorial/pkg/interfaces"
)

const (
	rootModule     = "editorial"
	bufferModule   = "editorial.buffer"
	autosaveModule = "editorial.autosave"
	publishModule  = "editorial.publish"
	gatewayModule  = "editorial.gateway"
	uploadModule   = "editorial.upload"
	commandsModule = "editorial.commands"
)

const (
	fieldSessionID  = "session_id"
	fieldDocumentID = "document_id"
	fieldKind       = "kind"
)

// ModuleLogger returns the logger for module, tagged with a "module" field.
// A nil provider yields a no-op logger.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}
	var logger interfaces.Logger = noopLogger{}
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}
	return WithFields(logger, map[string]any{"module": module})
}

// WithFields attaches fields when logger implements interfaces.FieldsLogger
// and returns it unchanged otherwise. The map is copied.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	fl, ok := logger.(interfaces.FieldsLogger)
	if !ok || len(fields) == 0 {
		return logger
	}
	return fl.WithFields(maps.Clone(fields))
}

// BufferLogger returns the logger namespace reserved for content buffers.
func BufferLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, bufferModule)
}

// AutosaveLogger returns the logger namespace reserved for the autosave scheduler.
func AutosaveLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, autosaveModule)
}

// PublishLogger returns the logger namespace reserved for publish coordination.
func PublishLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, publishModule)
}

// GatewayLogger returns the logger namespace reserved for store calls.
func GatewayLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, gatewayModule)
}

// UploadLogger returns the logger namespace reserved for asset uploads.
func UploadLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, uploadModule)
}

// CommandsLogger returns the logger namespace reserved for command handlers.
func CommandsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, commandsModule)
}

// WithSessionContext enriches the provided logger with the editing session,
// document identity and kind. Empty values are ignored.
func WithSessionContext(logger interfaces.Logger, sessionID, documentID, kind string) interfaces.Logger {
	fields := map[string]any{}
	if trimmed := strings.TrimSpace(sessionID); trimmed != "" {
		fields[fieldSessionID] = trimmed
	}
	if trimmed := strings.TrimSpace(documentID); trimmed != "" {
		fields[fieldDocumentID] = trimmed
	}
	if trimmed := strings.TrimSpace(kind); trimmed != "" {
		fields[fieldKind] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
