// Package models defines server-side data models persisted in the database.
package models

import "time"

// FileRecord is the server's view of one shared file. Content and metadata
// are ciphertext; the server only ever holds the token fingerprint.
type FileRecord struct {
	ID string
	// TokenHash is SHA-256(token || salt).
	TokenHash []byte
	// Salt is public and stored in clear.
	Salt []byte
	// Metadata is the encrypted metadata blob.
	Metadata []byte

	// StorageKey locates the ciphertext in the blob store.
	StorageKey       string
	CiphertextLength int64

	MaxDownloads  int64
	DownloadCount int64

	// ExpiresAt is nil for files that never expire.
	ExpiresAt *time.Time
	CreatedAt time.Time
	// DeletedAt is set once by the sweeper and is terminal.
	DeletedAt *time.Time
}

// Remaining reports how many downloads are still allowed.
func (f *FileRecord) Remaining() int64 {
	if n := f.MaxDownloads - f.DownloadCount; n > 0 {
		return n
	}
	return 0
}

// ExpiredAt reports whether the record is past its expiry at now.
func (f *FileRecord) ExpiredAt(now time.Time) bool {
	return f.ExpiresAt != nil && !now.Before(*f.ExpiresAt)
}

// Candidate is the minimal projection used for token resolution.
type Candidate struct {
	ID   string
	Salt []byte
	Hash []byte
}

// ExpiredFile is the projection listed by the sweeper.
type ExpiredFile struct {
	ID         string
	StorageKey string
}
