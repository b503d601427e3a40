// File: internal/repository/blob/interface.go
package blob

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by Get when nothing is stored under the key.
var ErrBlobNotFound = errors.New("blob not found")

// Repository is a key/value store of opaque blobs. Put replaces the whole
// value for a key in one step; there is no partial update.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
