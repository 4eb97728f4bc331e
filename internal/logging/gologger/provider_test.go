package gologger

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

func TestNewProviderRejectsUnknownFormat(t *testing.T) {
	if _, err := NewProvider(Config{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestProviderReusesModuleLoggers(t *testing.T) {
	p, err := NewProvider(Config{Level: "debug", Format: "console", Focus: []string{" ", "editorial.autosave"}})
	if err != nil {
		t.Fatalf("NewProvider returned error: %v", err)
	}

	first := p.GetLogger("editorial.autosave")
	second := p.GetLogger(" editorial.autosave ")
	if first != second {
		t.Fatal("expected repeated lookups to share the child logger")
	}
	logging.WithFields(first, map[string]any{"session_id": "s-1"}).Debug("autosave.scheduled")

	var nilProvider *Provider
	nilProvider.GetLogger("editorial.publish").Info("dropped")
}

func TestEntryLoggerDelegates(t *testing.T) {
	stub := &stubLogger{}
	logger := adapt(stub)

	logger.Trace("t", "key", "value")
	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")
	logger.Fatal("f")

	want := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	if len(stub.calls) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), stub.calls)
	}
	for i := range want {
		if stub.calls[i] != want[i] {
			t.Fatalf("call %d: expected %q, got %q", i, want[i], stub.calls[i])
		}
	}
}

func TestEntryLoggerClonesFields(t *testing.T) {
	stub := &stubLogger{}
	logger, ok := adapt(stub).(interfaces.FieldsLogger)
	if !ok {
		t.Fatal("expected the adapter to accept fields")
	}

	fields := map[string]any{"kind": "article"}
	logger.WithFields(fields)
	fields["kind"] = "project"

	if len(stub.fields) != 1 || stub.fields[0]["kind"] != "article" {
		t.Fatalf("expected cloned fields, got %v", stub.fields)
	}
	if same, ok := logger.WithFields(nil).(entryLogger); !ok || same.inner != stub {
		t.Fatal("expected empty fields to return the same logger")
	}
}

func TestEntryLoggerPropagatesContext(t *testing.T) {
	stub := &stubLogger{}
	ctx := context.WithValue(context.Background(), struct{}{}, "session")

	adapt(stub).WithContext(ctx)
	if len(stub.contexts) != 1 || stub.contexts[0] != ctx {
		t.Fatalf("expected context propagation, got %#v", stub.contexts)
	}
}

type stubLogger struct {
	calls    []string
	fields   []map[string]any
	contexts []context.Context
}

var _ glog.Logger = (*stubLogger)(nil)
var _ glog.FieldsLogger = (*stubLogger)(nil)

func (s *stubLogger) Trace(string, ...any) { s.calls = append(s.calls, "trace") }
func (s *stubLogger) Debug(string, ...any) { s.calls = append(s.calls, "debug") }
func (s *stubLogger) Info(string, ...any)  { s.calls = append(s.calls, "info") }
func (s *stubLogger) Warn(string, ...any)  { s.calls = append(s.calls, "warn") }
func (s *stubLogger) Error(string, ...any) { s.calls = append(s.calls, "error") }
func (s *stubLogger) Fatal(string, ...any) { s.calls = append(s.calls, "fatal") }

func (s *stubLogger) WithContext(ctx context.Context) glog.Logger {
	s.contexts = append(s.contexts, ctx)
	return s
}

func (s *stubLogger) WithFields(fields map[string]any) glog.Logger {
	s.fields = append(s.fields, fields)
	return s
}
