package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBackend stores audio in a Google Cloud Storage bucket. This is the
// primary backend in production.
type GCSBackend struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
}

// NewGCSBackend creates a GCS-backed store for the given bucket. If
// GOOGLE_APPLICATION_CREDENTIALS_JSON points at a service account file it is
// used; otherwise ambient ADC applies. cdnDomain, when non-empty, is used to
// build public URLs instead of the storage.googleapis.com form.
func NewGCSBackend(ctx context.Context, bucket, cdnDomain string) (*GCSBackend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket name is required")
	}

	var opts []option.ClientOption
	if saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"); saPath != "" {
		opts = append(opts, option.WithCredentialsFile(saPath))
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSBackend{client: client, bucket: bucket, cdnDomain: cdnDomain}, nil
}

// Name implements Backend
func (g *GCSBackend) Name() string { return "gcs" }

// Store uploads data under key. GCS object writes replace any existing
// object, which gives the overwrite-on-retry semantics the job loop needs.
func (g *GCSBackend) Store(ctx context.Context, key string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "audio/mpeg"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %q to GCS: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize GCS object %q: %w", key, err)
	}

	return g.publicURL(key), nil
}

// Fetch downloads the object stored under key
func (g *GCSBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object %q: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %q: %w", key, err)
	}
	return data, nil
}

// Delete removes the object stored under key
func (g *GCSBackend) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := g.client.Bucket(g.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q: %w", key, err)
	}
	return nil
}

func (g *GCSBackend) publicURL(key string) string {
	if g.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", g.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, key)
}
