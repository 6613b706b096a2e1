package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Chain tries each backend in registration order and returns the first
// success. It implements Backend itself, so callers are indifferent to
// whether they hold a single backend or a chain.
type Chain struct {
	backends []Backend
	logger   *slog.Logger
}

// NewChain creates a fallback chain over the given backends, in priority
// order. At least one backend is required.
func NewChain(logger *slog.Logger, backends ...Backend) (*Chain, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("storage chain requires at least one backend")
	}
	return &Chain{backends: backends, logger: logger}, nil
}

// Name implements Backend
func (c *Chain) Name() string { return "chain" }

// Store writes through the first backend that accepts the data
func (c *Chain) Store(ctx context.Context, key string, data []byte) (string, error) {
	var lastErr error
	for _, b := range c.backends {
		url, err := b.Store(ctx, key, data)
		if err == nil {
			return url, nil
		}
		lastErr = err
		c.logger.Warn("storage backend failed, trying next",
			"backend", b.Name(), "key", key, "error", err.Error())
	}
	return "", fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
}

// Fetch reads from the first backend holding the key. A key stored via a
// fallback backend is only present there, so every backend is consulted.
func (c *Chain) Fetch(ctx context.Context, key string) ([]byte, error) {
	var lastErr error
	for _, b := range c.backends {
		data, err := b.Fetch(ctx, key)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
}

// Delete removes the key from every backend that holds it. Absence on a
// backend is not an error for the chain as a whole.
func (c *Chain) Delete(ctx context.Context, key string) error {
	deleted := false
	var lastErr error
	for _, b := range c.backends {
		if err := b.Delete(ctx, key); err != nil {
			lastErr = err
			continue
		}
		deleted = true
	}
	if !deleted {
		return fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
	}
	return nil
}
