package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

type storeCall struct {
	op      string
	table   string
	id      string
	payload map[string]any
}

type stubStore struct {
	mu       sync.Mutex
	calls    []storeCall
	createFn func(ctx context.Context, payload map[string]any) (map[string]any, error)
	updateFn func(ctx context.Context, id string, payload map[string]any) (map[string]any, error)
}

func (s *stubStore) Create(ctx context.Context, table string, payload map[string]any) (map[string]any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, storeCall{op: "create", table: table, payload: payload})
	s.mu.Unlock()
	if s.createFn != nil {
		return s.createFn(ctx, payload)
	}
	return map[string]any{"id": "doc-1"}, nil
}

func (s *stubStore) Update(ctx context.Context, table, id string, payload map[string]any) (map[string]any, error) {
	s.mu.Lock()
	s.calls = append(s.calls, storeCall{op: "update", table: table, id: id, payload: payload})
	s.mu.Unlock()
	if s.updateFn != nil {
		return s.updateFn(ctx, id, payload)
	}
	return map[string]any{"id": id}, nil
}

type stubIdentity struct {
	user *interfaces.User
	err  error
}

func (s stubIdentity) CurrentUser(context.Context) (*interfaces.User, error) {
	return s.user, s.err
}

var author = stubIdentity{user: &interfaces.User{ID: "author-1"}}

func TestSaveCreatesAndAttachesAuthor(t *testing.T) {
	store := &stubStore{}
	gw := New(store, author, WithTable("projects"))

	result, err := gw.Save(context.Background(), "", Payload{"title": "Hello World", "id": "ignored"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !result.Created || result.Identity != "doc-1" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(store.calls) != 1 || store.calls[0].op != "create" || store.calls[0].table != "projects" {
		t.Fatalf("unexpected calls %+v", store.calls)
	}
	payload := store.calls[0].payload
	if payload["author_id"] != "author-1" {
		t.Fatalf("expected author attached, got %v", payload)
	}
	if _, ok := payload["id"]; ok {
		t.Fatalf("create payload must not carry an id, got %v", payload)
	}
}

func TestSaveCreateWithoutUserIsUnauthorized(t *testing.T) {
	store := &stubStore{}
	for name, identities := range map[string]interfaces.IdentityProvider{
		"nil provider": nil,
		"no session":   stubIdentity{},
		"lookup error": stubIdentity{err: errors.New("session expired")},
	} {
		gw := New(store, identities)
		_, err := gw.Save(context.Background(), "", Payload{"title": "x"})
		if !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", name, err)
		}
	}
	if len(store.calls) != 0 {
		t.Fatalf("unauthorized creates must not reach the store, got %+v", store.calls)
	}
}

func TestSaveUpdatesByIdentityWithoutResolvingAuthor(t *testing.T) {
	store := &stubStore{}
	gw := New(store, stubIdentity{})

	result, err := gw.Save(context.Background(), "42", Payload{"body": "<p>edit</p>"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if result.Created || result.Identity != "42" {
		t.Fatalf("unexpected result %+v", result)
	}
	if store.calls[0].op != "update" || store.calls[0].id != "42" {
		t.Fatalf("expected update of 42, got %+v", store.calls[0])
	}
	if _, ok := store.calls[0].payload["author_id"]; ok {
		t.Fatalf("updates must not rewrite the author")
	}
}

func TestSavePassesStoreMessageThrough(t *testing.T) {
	store := &stubStore{
		updateFn: func(context.Context, string, map[string]any) (map[string]any, error) {
			return nil, &interfaces.StoreError{Code: "23505", Message: "slug already taken"}
		},
	}
	gw := New(store, author)

	_, err := gw.Save(context.Background(), "42", Payload{})
	if !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("store error must not look like a timeout")
	}
	if msg := domain.UserMessage(err); msg != "slug already taken" {
		t.Fatalf("expected verbatim message, got %q", msg)
	}
	var storeErr *interfaces.StoreError
	if !errors.As(err, &storeErr) || storeErr.Code != "23505" {
		t.Fatalf("expected structured store error to stay reachable, got %v", err)
	}
}

func TestSaveTimesOutDistinctly(t *testing.T) {
	store := &stubStore{
		createFn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	gw := New(store, author, WithTimeout(20*time.Millisecond))

	_, err := gw.Save(context.Background(), "", Payload{"title": "slow"})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if errors.Is(err, domain.ErrStore) {
		t.Fatalf("timeout must not be reported as a store error")
	}
}

type blockingIdentity struct{}

func (blockingIdentity) CurrentUser(ctx context.Context) (*interfaces.User, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSaveCreateBoundsAuthorLookup(t *testing.T) {
	store := &stubStore{}
	gw := New(store, blockingIdentity{}, WithTimeout(20*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := gw.Save(context.Background(), "", Payload{"title": "slow session"})
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrTimeout) {
			t.Fatalf("expected timeout, got %v", err)
		}
		if errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("a slow identity lookup is a timeout, not a missing author")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("author lookup escaped the save bound")
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.calls) != 0 {
		t.Fatalf("create must not reach the store without an author, got %+v", store.calls)
	}
}

func TestSaveCreateWithoutIDIsStoreError(t *testing.T) {
	store := &stubStore{
		createFn: func(context.Context, map[string]any) (map[string]any, error) {
			return map[string]any{"title": "x"}, nil
		},
	}
	gw := New(store, author)
	if _, err := gw.Save(context.Background(), "", Payload{}); !errors.Is(err, domain.ErrStore) {
		t.Fatalf("expected store error for missing id, got %v", err)
	}
}

func TestSaveDoesNotMutateCallerPayload(t *testing.T) {
	gw := New(&stubStore{}, author)
	payload := Payload{"title": "x"}
	if _, err := gw.Save(context.Background(), "", payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := payload["author_id"]; ok {
		t.Fatalf("caller payload must stay untouched")
	}
}
