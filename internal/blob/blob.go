// Package blob stores uploaded file bodies. Metadata stays in
// Postgres; only the bytes live here.
package blob

import (
	"context"
	"io"
)

// Store is the byte backend: a MinIO bucket when configured, a local
// directory otherwise.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
}
