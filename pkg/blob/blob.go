// Package blob defines the object-storage boundary the engine consumes.
// Storage mechanics live outside the engine; tools only ever download,
// stream, or upload opaque blobs by id.
package blob

import (
	"context"
	"io"
)

// Info describes a stored blob.
type Info struct {
	ID          string
	Filename    string
	ContentType string
	ByteSize    int64
}

// Store is the blob/object store interface.
type Store interface {
	// Download returns the full contents of a blob.
	Download(ctx context.Context, id string) ([]byte, error)

	// Open returns a reader over a blob's contents.
	Open(ctx context.Context, id string) (io.ReadCloser, error)

	// Stat returns blob metadata.
	Stat(ctx context.Context, id string) (*Info, error)

	// Put uploads content and returns the created blob's metadata.
	Put(ctx context.Context, filename, contentType string, content io.Reader) (*Info, error)

	// LocalPath returns a directly readable filesystem path for the blob
	// and true, when the backing store is local disk. Callers fall back to
	// Download into a temporary file otherwise.
	LocalPath(id string) (string, bool)
}
