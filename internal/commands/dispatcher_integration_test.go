package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	"github.com/goliatone/go-editorial/internal/domain"
)

type retrySaveCommand struct {
	SessionID string
}

func (retrySaveCommand) Type() string { return "editorial.test.retry_save" }

func (retrySaveCommand) Validate() error { return nil }

type exhaustSaveCommand struct {
	SessionID string
}

func (exhaustSaveCommand) Type() string { return "editorial.test.exhaust_save" }

func (exhaustSaveCommand) Validate() error { return nil }

func TestDispatcherRetriesStoreFailures(t *testing.T) {
	t.Parallel()

	var attempts int
	handler := NewHandler(func(ctx context.Context, _ retrySaveCommand) error {
		attempts++
		if attempts == 1 {
			return domain.StoreError(errors.New("connection reset"))
		}
		return nil
	}, WithTimeout[retrySaveCommand](time.Second))

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(1))
	t.Cleanup(sub.Unsubscribe)

	if err := dispatcher.Dispatch(context.Background(), retrySaveCommand{SessionID: "s-1"}); err != nil {
		t.Fatalf("dispatch: expected success after retry, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDispatcherSurfacesLastStoreFailure(t *testing.T) {
	t.Parallel()

	var attempts int
	handler := NewHandler(func(ctx context.Context, _ exhaustSaveCommand) error {
		attempts++
		return domain.StoreError(errors.New("row level security policy violated"))
	}, WithTimeout[exhaustSaveCommand](time.Second))

	sub := dispatcher.SubscribeCommand(handler, runner.WithMaxRetries(2))
	t.Cleanup(sub.Unsubscribe)

	err := dispatcher.Dispatch(context.Background(), exhaustSaveCommand{SessionID: "s-2"})
	if err == nil {
		t.Fatal("expected dispatcher to return error after exhausting retries")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}
