// Package files persists file records.
package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/webxfer/internal/server/models"
)

// fileColumns is the column list every full-record read selects or returns.
const fileColumns = `id, token_hash, salt, encrypted_metadata, storage_key, ciphertext_length,
	max_downloads, download_count, expires_at, created_at`

// Repository stores file records. Implementations must make
// ConditionalIncrement a single atomic statement.
type Repository interface {
	// Create inserts a new record.
	Create(ctx context.Context, f *models.FileRecord) error
	// Candidates lists the (id, salt, hash) triples of every record that is
	// not soft-deleted.
	Candidates(ctx context.Context) ([]models.Candidate, error)
	// Get returns a record that is not soft-deleted, or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.FileRecord, error)
	// ConditionalIncrement bumps download_count iff the record is active at
	// now and returns the updated record. ok is false when nothing was updated.
	ConditionalIncrement(ctx context.Context, id string, now time.Time) (f *models.FileRecord, ok bool, err error)
	// SoftDelete sets deleted_at once; a second call returns common.ErrorNotFound.
	SoftDelete(ctx context.Context, id string, now time.Time) error
	// ListExpired returns live records whose expires_at <= now.
	ListExpired(ctx context.Context, now time.Time) ([]models.ExpiredFile, error)
}
