// Package objectstore stores generated audio artifacts in a NATS JetStream
// object store bucket. It backs the optional job lane; the HTTP API streams
// audio directly and never touches the bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// AudioStore implements the core.ObjectStore interface on a JetStream
// object store bucket.
type AudioStore struct {
	bucket string
	store  nats.ObjectStore
}

// New binds to the named bucket, creating it if it does not exist yet.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*AudioStore, error) {
	store, err := ensureBucket(jetstreamContext, bucketName)
	if err != nil {
		return nil, err
	}

	return &AudioStore{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Download retrieves an artifact by key.
func (s *AudioStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := s.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q from bucket %q: %w", key, s.bucket, err)
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

// Upload saves an artifact under the given key.
func (s *AudioStore) Upload(_ context.Context, key string, data []byte) error {
	meta := &nats.ObjectMeta{
		Name: key,
	}

	_, err := s.store.Put(meta, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put object %q into bucket %q: %w", key, s.bucket, err)
	}

	return nil
}

// ensureBucket uses a create-first approach and falls back to binding when
// the bucket already exists.
func ensureBucket(jetstreamContext nats.JetStreamContext, bucketName string) (nats.ObjectStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Generated audio artifacts for the %s bucket.", bucketName),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err == nil {
		return store, nil
	}

	if errors.Is(err, jetstream.ErrBucketExists) {
		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing bucket %q: %w", bucketName, err)
		}

		return store, nil
	}

	return nil, fmt.Errorf("failed to create object store bucket %q: %w", bucketName, err)
}
