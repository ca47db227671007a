// Package services holds the client-side transfer workflows. All
// encryption and decryption happens here; the server only ever sees
// ciphertext, the salt and a token fingerprint.
package services
