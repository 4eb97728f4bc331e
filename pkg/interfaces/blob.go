package interfaces

import "context"

// BinaryStorage persists uploaded assets and returns the public reference the
// document body should point at.
type BinaryStorage interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
}
