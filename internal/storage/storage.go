// Package storage abstracts where uploaded file bytes live. The default
// backend is the local filesystem; an S3-compatible backend is available for
// deployments that want durable object storage.
package storage

import (
	"context"
	"io"
)

// Blobs stores and retrieves raw file contents by key. Keys are
// slash-separated relative paths ("users/42/ab12.csv").
type Blobs interface {
	// Put writes the object under the given key, creating parent paths as
	// needed. size is the exact byte count.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Get returns the object's content for streaming.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
