package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-editorial/internal/buffer"
	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/internal/gateway"
	"github.com/goliatone/go-editorial/internal/lifecycle"
	"github.com/goliatone/go-editorial/internal/saveguard"
)

type saveCall struct {
	identity string
	payload  gateway.Payload
}

type stubSaver struct {
	mu      sync.Mutex
	calls   []saveCall
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (s *stubSaver) Save(_ context.Context, identity string, payload gateway.Payload) (*gateway.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, saveCall{identity: identity, payload: payload})
	err := s.err
	block, entered := s.block, s.entered
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	if identity == "" {
		return &gateway.Result{Identity: "new-1", Created: true}, nil
	}
	return &gateway.Result{Identity: identity}, nil
}

func (s *stubSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func TestPublishNewDocument(t *testing.T) {
	buf := buffer.New(buffer.WithFields(
		buffer.Field{Name: domain.FieldTitle, Value: "A"},
		buffer.Field{Name: domain.FieldBody, Value: "<p>B</p>"},
	))
	saver := &stubSaver{}
	var savedRevision uint64
	coordinator := New(buf, saver, WithClock(clock), WithOnSaved(func(revision uint64, _ time.Time) {
		savedRevision = revision
	}))

	result, err := coordinator.Publish(context.Background(), Request{Confirmed: true})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if saver.count() != 1 {
		t.Fatalf("expected one create, got %d", saver.count())
	}
	call := saver.calls[0]
	if call.identity != "" {
		t.Fatalf("expected create semantics, got %q", call.identity)
	}
	if call.payload["status"] != "published" || call.payload["slug"] != "a" {
		t.Fatalf("unexpected payload %v", call.payload)
	}
	if at, _ := call.payload["published_at"].(time.Time); !at.Equal(now) {
		t.Fatalf("expected published_at now, got %v", call.payload["published_at"])
	}
	if !result.Created || result.Identity != "new-1" || result.DisplayState != domain.DisplayPublished {
		t.Fatalf("unexpected result %+v", result)
	}
	if buf.Identity() != "new-1" || buf.Status() != domain.StatusPublished || buf.Slug() != "a" {
		t.Fatalf("buffer not updated: %q %q %q", buf.Identity(), buf.Status(), buf.Slug())
	}
	if savedRevision != buf.Revision() {
		t.Fatalf("expected saved hook with revision %d, got %d", buf.Revision(), savedRevision)
	}
}

func TestRepublishKeepsSlugAndPublishedAt(t *testing.T) {
	first := now.Add(-48 * time.Hour)
	buf := buffer.New(
		buffer.WithIdentity("7"),
		buffer.WithStatus(domain.StatusPublished),
		buffer.WithSlug("a"),
		buffer.WithPublishedAt(&first),
		buffer.WithFields(
			buffer.Field{Name: domain.FieldTitle, Value: "A"},
			buffer.Field{Name: domain.FieldBody, Value: "<p>B</p>"},
		),
	)
	buf.SetField(domain.FieldTitle, "A brand new title")
	saver := &stubSaver{}
	coordinator := New(buf, saver, WithClock(clock))

	result, err := coordinator.Publish(context.Background(), Request{Confirmed: true})
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	call := saver.calls[0]
	if call.identity != "7" {
		t.Fatalf("expected update of 7, got %q", call.identity)
	}
	if _, ok := call.payload["slug"]; ok {
		t.Fatalf("republish must not send a slug, got %v", call.payload["slug"])
	}
	if at, _ := call.payload["published_at"].(time.Time); !at.Equal(first) {
		t.Fatalf("published_at must be preserved, got %v", call.payload["published_at"])
	}
	if result.Slug != "a" || buf.Slug() != "a" {
		t.Fatalf("slug changed: %q %q", result.Slug, buf.Slug())
	}
}

func TestPublishScheduledDisplayState(t *testing.T) {
	future := now.Add(24 * time.Hour)
	buf := buffer.New(
		buffer.WithPublishedAt(&future),
		buffer.WithFields(
			buffer.Field{Name: domain.FieldTitle, Value: "Later"},
			buffer.Field{Name: domain.FieldBody, Value: "<p>soon</p>"},
		),
	)
	result, err := New(buf, &stubSaver{}, WithClock(clock)).Publish(context.Background(), Request{Confirmed: true})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if result.DisplayState != domain.DisplayScheduled {
		t.Fatalf("expected scheduled, got %s", result.DisplayState)
	}
}

func TestPublishValidationMakesNoCall(t *testing.T) {
	cases := []struct {
		name  string
		title string
		body  string
		field string
	}{
		{name: "missing title", title: "  ", body: "<p>text</p>", field: domain.FieldTitle},
		{name: "empty body", title: "Title", body: "<p><br></p>", field: domain.FieldBody},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := buffer.New(buffer.WithFields(
				buffer.Field{Name: domain.FieldTitle, Value: tc.title},
				buffer.Field{Name: domain.FieldBody, Value: tc.body},
			))
			saver := &stubSaver{}
			_, err := New(buf, saver).Publish(context.Background(), Request{Confirmed: true})
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
				t.Fatalf("expected validation category, got %v", err)
			}
			var typed *goerrors.Error
			if !errors.As(err, &typed) {
				t.Fatalf("expected go-errors value, got %T", err)
			}
			if _, ok := typed.ValidationMap()[tc.field]; !ok {
				t.Fatalf("expected %s in validation details, got %v", tc.field, typed.ValidationMap())
			}
			if saver.count() != 0 {
				t.Fatalf("validation failure must not reach the store")
			}
		})
	}
}

func TestPublishRequiresConfirmation(t *testing.T) {
	buf := buffer.New(buffer.WithFields(
		buffer.Field{Name: domain.FieldTitle, Value: "A"},
		buffer.Field{Name: domain.FieldBody, Value: "<p>B</p>"},
	))
	saver := &stubSaver{}
	_, err := New(buf, saver).Publish(context.Background(), Request{})
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if saver.count() != 0 || buf.Status() != domain.StatusDraft {
		t.Fatalf("unconfirmed publish must not change anything")
	}
}

func TestPublishFailureLeavesBufferUntouched(t *testing.T) {
	buf := buffer.New(buffer.WithFields(
		buffer.Field{Name: domain.FieldTitle, Value: "A"},
		buffer.Field{Name: domain.FieldBody, Value: "<p>B</p>"},
	))
	saver := &stubSaver{err: domain.TimeoutError("create articles", context.DeadlineExceeded)}
	coordinator := New(buf, saver, WithClock(clock))

	_, err := coordinator.Publish(context.Background(), Request{Confirmed: true})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if buf.Status() != domain.StatusDraft || buf.Identity() != "" || buf.PublishedAt() != nil {
		t.Fatalf("buffer must be untouched after failure")
	}
	if coordinator.Publishing() {
		t.Fatalf("guard must be released after failure")
	}
}

func TestArchivedDocumentCannotBePublished(t *testing.T) {
	buf := buffer.New(
		buffer.WithIdentity("9"),
		buffer.WithStatus(domain.StatusArchived),
		buffer.WithFields(
			buffer.Field{Name: domain.FieldTitle, Value: "Old"},
			buffer.Field{Name: domain.FieldBody, Value: "<p>gone</p>"},
		),
	)
	saver := &stubSaver{}
	_, err := New(buf, saver).Publish(context.Background(), Request{Confirmed: true})
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if saver.count() != 0 {
		t.Fatalf("rejected transition must not reach the store")
	}
}

func TestConcurrentPublishIsRejected(t *testing.T) {
	buf := buffer.New(buffer.WithFields(
		buffer.Field{Name: domain.FieldTitle, Value: "A"},
		buffer.Field{Name: domain.FieldBody, Value: "<p>B</p>"},
	))
	saver := &stubSaver{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	coordinator := New(buf, saver, WithClock(clock))

	done := make(chan error, 1)
	go func() {
		_, err := coordinator.Publish(context.Background(), Request{Confirmed: true})
		done <- err
	}()
	<-saver.entered

	if _, err := coordinator.Publish(context.Background(), Request{Confirmed: true}); !errors.Is(err, ErrPublishInProgress) {
		t.Fatalf("expected in progress error, got %v", err)
	}

	close(saver.block)
	if err := <-done; err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if saver.count() != 1 {
		t.Fatalf("expected a single store call, got %d", saver.count())
	}
}

func TestPublishWaitsForInFlightSave(t *testing.T) {
	buf := buffer.New(buffer.WithFields(
		buffer.Field{Name: domain.FieldTitle, Value: "A"},
		buffer.Field{Name: domain.FieldBody, Value: "<p>B</p>"},
	))
	guard := saveguard.New()
	release, ok := guard.TryBeginSave()
	if !ok {
		t.Fatalf("expected to take the guard")
	}
	saver := &stubSaver{}
	coordinator := New(buf, saver, WithGuard(guard), WithClock(clock))

	done := make(chan error, 1)
	go func() {
		_, err := coordinator.Publish(context.Background(), Request{Confirmed: true})
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("publish finished before the save drained: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
	release()
	if err := <-done; err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestArchiveAndRestore(t *testing.T) {
	buf := buffer.New(
		buffer.WithIdentity("3"),
		buffer.WithStatus(domain.StatusPublished),
		buffer.WithFields(buffer.Field{Name: domain.FieldTitle, Value: "T"}),
	)
	saver := &stubSaver{}
	coordinator := New(buf, saver, WithClock(clock))

	result, err := coordinator.Transition(context.Background(), lifecycle.ActionArchive)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if result.Status != domain.StatusArchived || buf.Status() != domain.StatusArchived {
		t.Fatalf("expected archived, got %s / %s", result.Status, buf.Status())
	}
	if saver.calls[0].payload["status"] != "archived" {
		t.Fatalf("unexpected payload %v", saver.calls[0].payload)
	}

	if _, err := coordinator.Transition(context.Background(), lifecycle.ActionRestore); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if buf.Status() != domain.StatusDraft {
		t.Fatalf("expected draft after restore, got %s", buf.Status())
	}
	if _, err := coordinator.Transition(context.Background(), lifecycle.ActionRestore); !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Fatalf("restore from draft must fail, got %v", err)
	}
}

func TestRestoreThenRenameKeepsPublishedSlug(t *testing.T) {
	first := now.Add(-72 * time.Hour)
	buf := buffer.New(
		buffer.WithIdentity("3"),
		buffer.WithStatus(domain.StatusPublished),
		buffer.WithSlug("original-title"),
		buffer.WithPublishedAt(&first),
		buffer.WithFields(
			buffer.Field{Name: domain.FieldTitle, Value: "Original Title"},
			buffer.Field{Name: domain.FieldBody, Value: "<p>Body</p>"},
		),
	)
	saver := &stubSaver{}
	coordinator := New(buf, saver, WithClock(clock))
	ctx := context.Background()

	if _, err := coordinator.Transition(ctx, lifecycle.ActionArchive); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := coordinator.Transition(ctx, lifecycle.ActionRestore); err != nil {
		t.Fatalf("restore: %v", err)
	}
	buf.SetField(domain.FieldTitle, "Renamed")

	result, err := coordinator.Publish(ctx, Request{Confirmed: true})
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if result.Slug != "original-title" || buf.Slug() != "original-title" {
		t.Fatalf("expected slug to stay original-title, got %q / %q", result.Slug, buf.Slug())
	}
	last := saver.calls[len(saver.calls)-1].payload
	if _, ok := last["slug"]; ok {
		t.Fatalf("republish must not send a slug, got %v", last)
	}
	if result.PublishedAt == nil || !result.PublishedAt.Equal(first) {
		t.Fatalf("expected original publish time, got %v", result.PublishedAt)
	}
}
