package rpc

import "time"

// DownloadChunkSize is the payload size of one DownloadChunk.
const DownloadChunkSize = 64 * 1024

// UploadRequest carries an already encrypted file. Token is URL-safe
// unpadded base64; Salt is standard padded base64.
type UploadRequest struct {
	EncryptedPayload  []byte     `json:"encrypted_payload"`
	EncryptedMetadata []byte     `json:"encrypted_metadata"`
	Salt              string     `json:"salt"`
	Token             string     `json:"token"`
	MaxDownloads      int64      `json:"max_downloads"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	NotifyEmail       string     `json:"notify_email,omitempty"`
}

type UploadResponse struct {
	ShareReference string `json:"share_reference"`
}

// TokenRequest addresses a file by its capability token.
type TokenRequest struct {
	Token string `json:"token"`
}

type StatusResponse struct {
	DownloadsRemaining int64      `json:"downloads_remaining"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type MetadataResponse struct {
	EncryptedMetadata []byte `json:"encrypted_metadata"`
	Salt              string `json:"salt"`
}

type DownloadChunk struct {
	Data []byte `json:"data"`
}

type SweepRequest struct{}

type SweepResponse struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

type PruneAuditRequest struct {
	// RetentionSeconds of zero selects the server default.
	RetentionSeconds int64 `json:"retention_seconds"`
}

type PruneAuditResponse struct {
	Deleted int64 `json:"deleted"`
}
