// Package storage persists generated audio behind a uniform Backend
// interface with an ordered fallback chain: GCS bucket, then NATS object
// store, then local disk. The backend that accepts a write determines the
// shape of the returned URL; callers must treat it as opaque.
package storage

import (
	"context"
	"errors"
)

// ErrAllBackendsFailed is returned by Chain when every configured backend
// rejects an operation.
var ErrAllBackendsFailed = errors.New("all storage backends failed")

// Backend stores audio artifacts under caller-chosen keys. Store must be
// idempotent under retry with the same key (overwrite semantics): a stale-job
// recovery may re-synthesize and re-store an item under its original key.
type Backend interface {
	// Store writes data under key and returns a retrievable URL.
	Store(ctx context.Context, key string, data []byte) (string, error)
	// Fetch reads the bytes previously stored under key.
	Fetch(ctx context.Context, key string) ([]byte, error)
	// Delete removes the object under key.
	Delete(ctx context.Context, key string) error
	// Name identifies the backend in logs.
	Name() string
}
