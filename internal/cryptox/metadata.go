package cryptox

import (
	"encoding/json"
	"fmt"
)

// Metadata describes the original file. It is encrypted exactly like the
// content and never reaches the server in clear.
type Metadata struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	// LastModified is in Unix milliseconds.
	LastModified int64 `json:"lastModified"`
}

// EncryptMetadata serializes m to JSON and seals it under key.
func EncryptMetadata(m Metadata, key Key) ([]byte, error) {
	plaintext, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return Encrypt(plaintext, key)
}

// DecryptMetadata opens and parses metadata sealed by EncryptMetadata.
func DecryptMetadata(ciphertext []byte, key Key) (*Metadata, error) {
	plaintext, err := Decrypt(ciphertext, key)
	if err != nil {
		return nil, err
	}

	var m Metadata
	if err := json.Unmarshal(plaintext, &m); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	return &m, nil
}
