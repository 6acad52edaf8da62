package storage

import (
	"context"
	"io"
)

// ObjectInfo represents metadata for an uploaded export.
type ObjectInfo struct {
	Key  string
	Size int64
	URL  string
}

// ObjectStorage captures the S3-compatible operations used to publish cut
// lists and plan workbooks.
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader, size int64) (ObjectInfo, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
