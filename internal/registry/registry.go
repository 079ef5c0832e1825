// Package registry provides keyed stores for the transient state the
// service shares across requests: crawl statuses, pause keys, and
// recently-scraped markers. Call sites depend on the Store interface
// so a multi-instance deployment can swap the memory implementation
// for the Redis one without touching them.
package registry

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("registry: key not found")

// Store is a keyed byte store. Values are JSON-encoded by callers.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
