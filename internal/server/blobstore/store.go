// Package blobstore keeps ciphertext blobs outside the database.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Store writes, streams and deletes opaque blobs addressed by key.
// Errors are wrapped with common.ErrStorageFailure.
type Store interface {
	Write(ctx context.Context, key string, r io.Reader, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh, date-partitioned storage key.
func NewKey() string {
	d := time.Now().UTC()
	return fmt.Sprintf("files/%d/%02d/%02d/%s.bin", d.Year(), d.Month(), d.Day(), uuid.New())
}
