package storage

import (
	"context"
	"io"
)

// Reader provides read access to stored content
type Reader interface {
	// GetReader returns a reader for the content at the given key
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)
}

// Writer stores produced artifacts
type Writer interface {
	// Put writes r under key and returns the stored location
	Put(ctx context.Context, key string, r io.Reader) (string, error)
}
