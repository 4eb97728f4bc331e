package di_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	usertypes "github.com/goliatone/go-users/pkg/types"

	"github.com/goliatone/go-editorial/internal/blob"
	"github.com/goliatone/go-editorial/internal/buffer"
	"github.com/goliatone/go-editorial/internal/di"
	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/internal/editor"
	"github.com/goliatone/go-editorial/internal/identity"
	"github.com/goliatone/go-editorial/internal/runtimeconfig"
	"github.com/goliatone/go-editorial/internal/store"
	"github.com/goliatone/go-editorial/internal/timers"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Autosave.Debounce = 0
	if _, err := di.NewContainer(cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestContainerDefaultsToMemoryBackends(t *testing.T) {
	container, err := di.NewContainer(runtimeconfig.DefaultConfig(), di.WithLoggerProvider(newRecordingProvider()))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	if _, ok := container.Store().(*store.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", container.Store())
	}
	if _, ok := container.BinaryStorage().(*blob.MemoryStorage); !ok {
		t.Fatalf("expected memory blob storage, got %T", container.BinaryStorage())
	}
	if container.Gateway(domain.KindArticle) == nil {
		t.Fatal("expected gateway")
	}
	if container.CommandTimeout() != 30*time.Second {
		t.Fatalf("unexpected command timeout %s", container.CommandTimeout())
	}
}

func TestContainerLogsConfiguration(t *testing.T) {
	rec := newRecordingProvider()
	if _, err := di.NewContainer(runtimeconfig.DefaultConfig(), di.WithLoggerProvider(rec)); err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	entry := rec.find("container.configured")
	if entry == nil {
		t.Fatalf("expected container.configured log entry, got %#v", rec.entries)
	}
	if got := entry.fields["storage"]; got != "memory" {
		t.Fatalf("expected storage field memory, got %v", got)
	}
	if got := entry.fields["module"]; got != "editorial.di" {
		t.Fatalf("expected module field editorial.di, got %v", got)
	}
}

func TestContainerBunStoreWithCache(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Provider = runtimeconfig.StorageBun
	cfg.Storage.Driver = "sqlite3"
	cfg.Storage.DSN = fmt.Sprintf("file:di_container_%d?mode=memory&cache=shared", time.Now().UnixNano())
	cfg.Storage.Cache = true

	container, err := di.NewContainer(cfg, di.WithLoggerProvider(newRecordingProvider()))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	if _, ok := container.Store().(*store.BunStore); !ok {
		t.Fatalf("expected bun store, got %T", container.Store())
	}

	ctx := context.Background()
	record, err := container.Store().Create(ctx, "articles", map[string]any{"title": "Cached", "slug": "cached"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id, _ := record["id"].(string)
	got, err := container.Store().Get(ctx, "articles", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got["title"] != "Cached" {
		t.Fatalf("unexpected record %#v", got)
	}
}

func TestContainerFilesystemBlobs(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Blob.Provider = runtimeconfig.BlobFilesystem
	cfg.Blob.Dir = filepath.Join(t.TempDir(), "uploads")
	cfg.Blob.BaseURL = "/media"

	container, err := di.NewContainer(cfg, di.WithLoggerProvider(newRecordingProvider()))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	url, err := container.BinaryStorage().Upload(context.Background(), "media", "a/b.png", []byte("x"), "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "/media/media/a/b.png" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestContainerS3RequiresCredentials(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Blob.Provider = runtimeconfig.BlobS3
	cfg.Blob.S3.Region = "eu-west-1"
	if _, err := di.NewContainer(cfg, di.WithLoggerProvider(newRecordingProvider())); err == nil {
		t.Fatal("expected error for missing s3 credentials")
	}
}

func TestSessionOptionsDriveAutosave(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Autosave.Debounce = 2 * time.Second
	clock := timers.NewManual(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))

	container, err := di.NewContainer(cfg,
		di.WithLoggerProvider(newRecordingProvider()),
		di.WithIdentityProvider(identity.Static{User: &interfaces.User{ID: "author-1"}}),
		di.WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	session := editor.New("s-1", buffer.New(), container.Gateway(domain.KindArticle), container.SessionOptions(editor.WithTimers(clock))...)
	t.Cleanup(func() { _ = session.Close(context.Background()) })

	session.SetTitle("Configured debounce")
	clock.Advance(time.Second)
	if session.Snapshot().Identity != "" {
		t.Fatal("autosave fired before the configured debounce")
	}
	clock.Advance(time.Second)
	if session.Snapshot().Identity == "" {
		t.Fatal("expected autosave after the configured debounce")
	}
	if session.Uploads() == nil {
		t.Fatal("expected upload mediator from configured storage")
	}
}

func TestContainerRoutesKindsToTheirTables(t *testing.T) {
	container, err := di.NewContainer(runtimeconfig.DefaultConfig(), di.WithLoggerProvider(newRecordingProvider()))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	if got := container.Gateway(domain.KindProject).Table(); got != "projects" {
		t.Fatalf("expected projects table, got %s", got)
	}
	if got := container.Gateway(domain.KindArticle).Table(); got != "articles" {
		t.Fatalf("expected articles table, got %s", got)
	}
}

type activitySink struct {
	mu      sync.Mutex
	records []usertypes.ActivityRecord
}

func (s *activitySink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func TestContainerForwardsActivityToSink(t *testing.T) {
	sink := &activitySink{}
	clock := timers.NewManual(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	container, err := di.NewContainer(runtimeconfig.DefaultConfig(),
		di.WithLoggerProvider(newRecordingProvider()),
		di.WithIdentityProvider(identity.Static{User: &interfaces.User{ID: "author-1"}}),
		di.WithActivitySink(sink),
		di.WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	session := editor.New("s-2", buffer.New(buffer.WithKind(domain.KindProject)), container.Gateway(domain.KindProject),
		container.SessionOptions(editor.WithTimers(clock))...)
	t.Cleanup(func() { _ = session.Close(context.Background()) })

	session.SetTitle("Portfolio")
	session.SetBody("<p>Case study</p>")
	if _, err := session.RequestPublish(context.Background(), true); err != nil {
		t.Fatalf("publish: %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.records) != 1 {
		t.Fatalf("expected one activity record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.Verb != "publish" || record.ObjectType != "project" || record.Data["actor"] != "author-1" {
		t.Fatalf("unexpected record %+v", record)
	}
	if _, err := container.Store().Get(context.Background(), "projects", record.ObjectID); err != nil {
		t.Fatalf("expected document in projects table: %v", err)
	}
}

type recordingProvider struct {
	mu      sync.Mutex
	entries []recordedEntry
}

type recordedEntry struct {
	msg    string
	fields map[string]any
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{}
}

func (p *recordingProvider) GetLogger(name string) interfaces.Logger {
	return &recordingLogger{provider: p, fields: map[string]any{"logger": name}}
}

func (p *recordingProvider) record(msg string, fields map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, recordedEntry{msg: msg, fields: fields})
}

func (p *recordingProvider) find(msg string) *recordedEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.entries {
		if p.entries[i].msg == msg {
			return &p.entries[i]
		}
	}
	return nil
}

type recordingLogger struct {
	provider *recordingProvider
	fields   map[string]any
}

func (l *recordingLogger) Trace(msg string, args ...any) { l.log(msg, args...) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.log(msg, args...) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.log(msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log(msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log(msg, args...) }
func (l *recordingLogger) Fatal(msg string, args ...any) { l.log(msg, args...) }

func (l *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{provider: l.provider, fields: merged}
}

func (l *recordingLogger) WithContext(context.Context) interfaces.Logger { return l }

func (l *recordingLogger) log(msg string, args ...any) {
	fields := make(map[string]any, len(l.fields)+len(args)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	l.provider.record(msg, fields)
}
