// Package cache declares the key/value contract used to share the record
// collection between dashboard replicas.
package cache

import (
	"context"
	"time"
)

type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type Writer interface {
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}
