package cache

import "context"

// Backend stores opaque encoded entries by key. Load returns ErrMiss for
// unknown keys.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) (bool, error)
	RemoveAll(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	Size(ctx context.Context) (int64, error)
	Location() string
	Close() error
}
