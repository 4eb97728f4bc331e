package console_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/internal/logging/console"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 14, 15, 9, 26, 535897000, time.UTC)
}

func TestConsoleLogger_WritesTextEntry(t *testing.T) {
	var buf bytes.Buffer
	minLevel := console.LevelDebug
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: fixedClock,
		MinLevel: &minLevel,
	})

	logger := logging.WithFields(provider.GetLogger("editorial.autosave"),
		map[string]any{"module": "editorial.autosave", "session_id": "sess-1234"})

	documentID := uuid.MustParse("8a51a9b1-2d30-4b2c-8ecd-2c0b87dfa999")
	logger.Info("autosave.save.completed",
		"document_id", documentID,
		"saved_at", time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
		"took", 1500*time.Millisecond,
	)

	got := strings.TrimSpace(buf.String())
	want := "2024-03-14T15:09:26.535897Z INFO autosave.save.completed document_id=8a51a9b1-2d30-4b2c-8ecd-2c0b87dfa999 logger=editorial.autosave module=editorial.autosave saved_at=2024-03-15T08:00:00Z session_id=sess-1234 took=1.5s"
	if got != want {
		t.Fatalf("unexpected log entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	minLevel := console.LevelInfo
	provider := console.NewProvider(console.Options{Writer: &buf, MinLevel: &minLevel})

	logger := provider.GetLogger("editorial.test")
	logger.Debug("ignored.debug", "foo", "bar")
	logger.Info("included.info", "foo", "bar")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single log line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "included.info") {
		t.Fatalf("expected info log to be written, got %s", lines[0])
	}
}

func TestConsoleLogger_FormatsErrorsAndQuotesSpaces(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) },
	})

	provider.GetLogger("editorial.gateway").Error("gateway.save.failed",
		"error", errors.New("store rejected the request"),
		"table", "articles",
		"orphan",
	)

	got := strings.TrimSpace(buf.String())
	want := `2026-10-19T09:00:00Z ERROR gateway.save.failed error="store rejected the request" field_2=orphan logger=editorial.gateway table=articles`
	if got != want {
		t.Fatalf("unexpected log entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestConsoleLogger_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf, TimeFunc: fixedClock, JSON: true})

	provider.GetLogger("editorial.publish").Warn("publish.failed",
		"error", errors.New("title is required"),
		"attempt", 2,
	)

	var doc map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &doc); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if doc["level"] != "warn" || doc["msg"] != "publish.failed" {
		t.Fatalf("unexpected level or message: %v", doc)
	}
	if doc["error"] != "title is required" {
		t.Fatalf("expected error rendered as string, got %v", doc["error"])
	}
	if doc["attempt"] != float64(2) {
		t.Fatalf("expected numeric attempt, got %v", doc["attempt"])
	}
	if doc["logger"] != "editorial.publish" {
		t.Fatalf("expected logger name, got %v", doc["logger"])
	}
}

func TestConsoleLogger_FocusMutesOtherModules(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf, Focus: []string{" editorial.upload "}})

	provider.GetLogger("editorial.autosave").Info("autosave.skipped")
	provider.GetLogger("editorial.upload").Info("upload.completed")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "autosave.skipped") {
		t.Fatalf("expected unfocused logger to be muted, got %s", out)
	}
	if !strings.Contains(out, "upload.completed") {
		t.Fatalf("expected focused logger output, got %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	if level, ok := console.ParseLevel("WARNING"); !ok || level != console.LevelWarn {
		t.Fatalf("expected warn level, got %v %v", level, ok)
	}
	if _, ok := console.ParseLevel("verbose"); ok {
		t.Fatalf("expected unknown level to report false")
	}
}
