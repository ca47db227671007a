package cryptox

import (
	"encoding/binary"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/webxfer/internal/common"
	"golang.org/x/crypto/blake2b"
)

// KDFContextSize is the required length of the key derivation context.
const KDFContextSize = 8

// kdfSubkeyID selects the content key among the subkeys of a token.
const kdfSubkeyID uint64 = 1

// DeriveKey derives the file key from a token and the file's salt.
//
// The subkey is BLAKE2b-256 keyed with the token over context || LE64(subkey id);
// it is then XORed with the salt. The same (token, salt, context) always
// yields the same key, which lets sender and receiver derive it independently.
func DeriveKey(token Token, salt Salt, context string) (Key, error) {
	var key Key

	if len(context) != KDFContextSize {
		return key, fmt.Errorf("%w: want %d bytes, got %d", common.ErrInvalidContext, KDFContextSize, len(context))
	}

	h, err := blake2b.New256(token[:])
	if err != nil {
		return key, err
	}

	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], kdfSubkeyID)

	h.Write([]byte(context))
	h.Write(id[:])

	subkey := h.Sum(nil)
	defer memguard.WipeBytes(subkey)

	for i := range key {
		key[i] = subkey[i] ^ salt[i]
	}

	return key, nil
}
