package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
)

// natsAudioBucket is the JetStream object store bucket holding audio blobs.
const natsAudioBucket = "narrator-audio"

// NATSBackend stores audio in a NATS JetStream object store. It acts as the
// secondary backend when the GCS bucket is unreachable; URLs use a nats://
// scheme and resolve only through Fetch, not over plain HTTP.
type NATSBackend struct {
	conn   *nats.Conn
	store  nats.ObjectStore
	bucket string
}

// NewNATSBackend connects to the NATS server and creates or binds the audio
// object store bucket.
func NewNATSBackend(url string) (*NATSBackend, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      natsAudioBucket,
		Description: "Generated brief narration audio",
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		// Bucket may already exist; bind to it.
		store, err = js.ObjectStore(natsAudioBucket)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to bind object store bucket %q: %w", natsAudioBucket, err)
		}
	}

	return &NATSBackend{conn: conn, store: store, bucket: natsAudioBucket}, nil
}

// Name implements Backend
func (n *NATSBackend) Name() string { return "nats" }

// Store puts data under key. ObjectStore.Put replaces an existing object
// with the same name, so retried stores are safe.
func (n *NATSBackend) Store(_ context.Context, key string, data []byte) (string, error) {
	_, err := n.store.Put(&nats.ObjectMeta{Name: key}, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to put object %q to bucket %q: %w", key, n.bucket, err)
	}
	return fmt.Sprintf("nats://%s/%s", n.bucket, key), nil
}

// Fetch reads the object stored under key
func (n *NATSBackend) Fetch(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q from bucket %q: %w", key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()
	if readErr != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", key, readErr)
	}
	if closeErr != nil {
		return data, fmt.Errorf("failed to close object %q: %w", key, closeErr)
	}
	return data, nil
}

// Delete removes the object stored under key
func (n *NATSBackend) Delete(_ context.Context, key string) error {
	if err := n.store.Delete(key); err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return fmt.Errorf("object %q not found in bucket %q: %w", key, n.bucket, err)
		}
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying NATS connection
func (n *NATSBackend) Close() {
	n.conn.Close()
}
