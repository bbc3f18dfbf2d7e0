package objstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("objstore: key not found")

// Store is an opaque key/value blob repository. A Put followed by a Get on
// the same key must observe the written bytes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// PutIfAbsent writes data only when key does not exist yet and reports
	// whether it wrote. The check and the write are a single atomic step.
	PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}
