package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key was never set or has been deleted.
var ErrNotFound = errors.New("storage: key not found")

// Store is the synchronous local key/value persistence used for session keys.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
