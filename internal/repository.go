package internal

import (
	"context"
	"io"
)

// Repository is where a run keeps everything it produces: snapshots,
// archived records and reports. Paths are slash separated and relative
// to the repository root.
type Repository interface {
	Write(ctx context.Context, path string, reader io.Reader) error
	// Read returns an error wrapping fs.ErrNotExist when path is missing.
	Read(ctx context.Context, path string) (io.ReadCloser, error)
	// List returns the paths found under prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
