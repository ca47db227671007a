package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the operator
// access token on admin calls.
const AccessTokenHeaderName = "access_token"

// KDFContext is the public 8-byte domain separator for key derivation.
const KDFContext = "WEBXFER1"

// The salt and ciphertext length travel next to the ciphertext stream under
// these names (HTTP header and gRPC header metadata).
const (
	SaltHeaderName              = "X-File-Salt"
	SaltMetadataKey             = "x-file-salt"
	CiphertextLengthMetadataKey = "x-ciphertext-length"
)
