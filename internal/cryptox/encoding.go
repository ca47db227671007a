// Package cryptox holds the client-side cryptography of webxfer: capability
// tokens, per-file salts, key derivation and authenticated encryption of file
// content and metadata.
//
// Token and Salt are distinct types with distinct text encodings (URL-safe
// unpadded base64 for tokens, standard padded base64 for salts), so mixing
// them up does not compile.
package cryptox

import (
	"encoding/base64"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/webxfer/internal/common"
)

const (
	TokenSize = 32
	SaltSize  = 32
	KeySize   = 32
)

var (
	tokenEncoding = base64.RawURLEncoding
	saltEncoding  = base64.StdEncoding
)

// Token is the 256-bit capability secret carried in a share link.
type Token [TokenSize]byte

// GenerateToken returns a fresh random token.
func GenerateToken() Token {
	var t Token
	copy(t[:], common.GenerateRandByteArray(TokenSize))
	return t
}

// ParseToken decodes a token from its link form.
func ParseToken(s string) (Token, error) {
	var t Token
	b, err := tokenEncoding.DecodeString(s)
	if err != nil {
		return t, fmt.Errorf("%w: %v", common.ErrMalformedToken, err)
	}
	if len(b) != TokenSize {
		return t, fmt.Errorf("%w: want %d bytes, got %d", common.ErrMalformedToken, TokenSize, len(b))
	}
	copy(t[:], b)
	return t, nil
}

// Encode returns the link form of the token.
func (t Token) Encode() string {
	return tokenEncoding.EncodeToString(t[:])
}

// Display returns a shortened, non-reversible hint suitable for UI echo.
func (t Token) Display() string {
	return t.Encode()[:16] + "..."
}

// String is redacted so a token passed to a logger or fmt verb never leaks.
func (t Token) String() string {
	return "[token]"
}

// Salt is the public per-file random value.
type Salt [SaltSize]byte

// GenerateSalt returns a fresh random salt.
func GenerateSalt() Salt {
	var s Salt
	copy(s[:], common.GenerateRandByteArray(SaltSize))
	return s
}

// ParseSalt decodes a salt from standard padded base64.
func ParseSalt(s string) (Salt, error) {
	var salt Salt
	b, err := saltEncoding.DecodeString(s)
	if err != nil {
		return salt, fmt.Errorf("%w: %v", common.ErrMalformedSalt, err)
	}
	return SaltFromBytes(b)
}

// SaltFromBytes copies raw salt bytes, checking the length.
func SaltFromBytes(b []byte) (Salt, error) {
	var salt Salt
	if len(b) != SaltSize {
		return salt, fmt.Errorf("%w: want %d bytes, got %d", common.ErrMalformedSalt, SaltSize, len(b))
	}
	copy(salt[:], b)
	return salt, nil
}

func (s Salt) String() string {
	return saltEncoding.EncodeToString(s[:])
}

func (s Salt) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Salt) UnmarshalText(b []byte) error {
	parsed, err := ParseSalt(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Key is a derived 256-bit symmetric key. It is never persisted.
type Key [KeySize]byte

// Wipe zeroes the key in place.
func (k *Key) Wipe() {
	memguard.WipeBytes(k[:])
}

// String is redacted, see Token.String.
func (k Key) String() string {
	return "[key]"
}
