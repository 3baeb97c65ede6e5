package filestorage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when a bucket has no object at the path.
var ErrObjectNotFound = errors.New("object not found")

// Object describes bytes to be written to a bucket.
type Object struct {
	Bucket      string
	Path        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// BlobStore is the blob container abstraction. Put overwrites an existing
// object at the same path. Delete of a missing object is not an error.
type BlobStore interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, bucket, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, path string) error
	SignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
	EnsureBucket(ctx context.Context, bucket string) error
}
