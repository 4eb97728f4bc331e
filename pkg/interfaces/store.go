package interfaces

import (
	"context"
	"fmt"
)

// StoreClient is the document store contract consumed by the persistence
// gateway. Payloads and records are plain maps keyed by column name; the
// returned record must carry the canonical "id".
type StoreClient interface {
	Create(ctx context.Context, table string, payload map[string]any) (map[string]any, error)
	Update(ctx context.Context, table, id string, payload map[string]any) (map[string]any, error)
}

// StoreError is the structured failure a store client reports. Message is
// meant for humans and is shown to the author as is.
type StoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("store error %s", e.Code)
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StoreReader loads a stored document so an editing session can resume it.
type StoreReader interface {
	Get(ctx context.Context, table, id string) (map[string]any, error)
}
